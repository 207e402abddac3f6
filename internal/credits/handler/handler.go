package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/httputil"
	"emailscore/pkg/requestcontext"
)

// Service defines the credit operations exposed over HTTP.
type Service interface {
	Balance(ctx context.Context, workspaceID domain.WorkspaceID) (int64, error)
	Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the workspace-scoped endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credits", h.HandleBalance)
}

// RegisterAdmin mounts endpoints for the admin router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/workspaces/{id}/credits", h.HandleGrant)
}

type balanceResponse struct {
	AvailableCredits int64 `json:"available_credits"`
}

// HandleBalance handles GET /v1/credits.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := requestcontext.WorkspaceID(ctx)
	if workspaceID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	balance, err := h.service.Balance(ctx, workspaceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read credit balance",
			"request_id", requestcontext.RequestID(ctx),
			"workspace_id", workspaceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{AvailableCredits: balance})
}

// GrantRequest is the body for POST /admin/workspaces/{id}/credits.
type GrantRequest struct {
	Amount int64 `json:"amount"`
}

func (r *GrantRequest) Validate() error {
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// HandleGrant handles POST /admin/workspaces/{id}/credits.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workspaceID, err := domain.ParseWorkspaceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	balance, err := h.service.Grant(ctx, workspaceID, req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to grant credits",
			"request_id", requestID,
			"workspace_id", workspaceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{AvailableCredits: balance})
}
