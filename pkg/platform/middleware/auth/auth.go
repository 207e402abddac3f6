package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/httputil"
	request "emailscore/pkg/platform/middleware/request"
	"emailscore/pkg/requestcontext"
)

const (
	HeaderAPIKey = "X-API-Key"

	MethodJWT    = "jwt"
	MethodAPIKey = "api_key"
)

// Principal is the authenticated caller: always a workspace, optionally a user.
type Principal struct {
	WorkspaceID domain.WorkspaceID
	UserID      domain.UserID
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Principal, error)
}

// APIKeyAuthenticator resolves an API key to its owning workspace.
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, key string) (*Principal, error)
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth accepts either a bearer token or an X-API-Key header and stores
// the resolved workspace and user in the request context. Either validator may
// be nil to disable that scheme.
func RequireAuth(tokens TokenValidator, keys APIKeyAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			var (
				principal *Principal
				method    string
				err       error
			)
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && tokens != nil {
				method = MethodJWT
				principal, err = tokens.ValidateToken(token)
			} else if key := r.Header.Get(HeaderAPIKey); key != "" && keys != nil {
				method = MethodAPIKey
				principal, err = keys.AuthenticateAPIKey(ctx, key)
			} else {
				logger.WarnContext(ctx, "unauthorized access - missing credential",
					"request_id", requestID,
				)
				unauthorized(w, "Missing or invalid credentials")
				return
			}

			if err != nil {
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.ErrorContext(ctx, "failed to authenticate request",
						"error", err,
						"method", method,
						"request_id", requestID,
					)
					httputil.WriteError(w, err)
					return
				}
				logger.WarnContext(ctx, "unauthorized access - invalid credential",
					"error", err,
					"method", method,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired credentials")
				return
			}
			if principal == nil || principal.WorkspaceID.IsNil() {
				unauthorized(w, "Credential is not bound to a workspace")
				return
			}

			ctx = requestcontext.WithWorkspaceID(ctx, principal.WorkspaceID)
			ctx = requestcontext.WithUserID(ctx, principal.UserID)
			ctx = requestcontext.WithAuthMethod(ctx, method)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
