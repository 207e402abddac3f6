package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/requestcontext"
)

type stubTokens struct {
	principal *Principal
	err       error
}

func (s stubTokens) ValidateToken(string) (*Principal, error) { return s.principal, s.err }

type stubKeys struct {
	principal *Principal
	err       error
}

func (s stubKeys) AuthenticateAPIKey(context.Context, string) (*Principal, error) {
	return s.principal, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	workspaceID := domain.WorkspaceID(uuid.New())
	userID := domain.UserID(uuid.New())
	ok := &Principal{WorkspaceID: workspaceID, UserID: userID}

	var gotWorkspace domain.WorkspaceID
	var gotMethod string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWorkspace = requestcontext.WorkspaceID(r.Context())
		gotMethod = requestcontext.AuthMethod(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("bearer token sets workspace", func(t *testing.T) {
		h := RequireAuth(stubTokens{principal: ok}, nil, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, workspaceID, gotWorkspace)
		assert.Equal(t, MethodJWT, gotMethod)
	})

	t.Run("api key sets workspace", func(t *testing.T) {
		h := RequireAuth(nil, stubKeys{principal: ok}, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderAPIKey, "esk_abc_def")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, MethodAPIKey, gotMethod)
	})

	t.Run("missing credential is 401", func(t *testing.T) {
		h := RequireAuth(stubTokens{principal: ok}, stubKeys{principal: ok}, logger)(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is 401", func(t *testing.T) {
		h := RequireAuth(stubTokens{err: dErrors.New(dErrors.CodeUnauthorized, "expired")}, nil, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("store failure is 500", func(t *testing.T) {
		h := RequireAuth(nil, stubKeys{err: errors.New("db down")}, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderAPIKey, "esk_abc_def")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
