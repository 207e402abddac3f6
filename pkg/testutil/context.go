package testutil

import (
	"net/http"

	"emailscore/pkg/domain"
	"emailscore/pkg/requestcontext"
)

// WithWorkspace sets the workspace and user the auth middleware would have
// stored, so handlers can be tested without a credential.
func WithWorkspace(req *http.Request, workspaceID domain.WorkspaceID, userID domain.UserID) *http.Request {
	ctx := requestcontext.WithUserID(requestcontext.WithWorkspaceID(req.Context(), workspaceID), userID)
	return req.WithContext(ctx)
}
