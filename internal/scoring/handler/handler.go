package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/httputil"
	"emailscore/pkg/requestcontext"
)

// Verifier scores a single address.
type Verifier interface {
	Verify(ctx context.Context, address string) (models.EmailRecord, error)
}

// CreditLedger charges one credit per verification.
type CreditLedger interface {
	Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
	Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

const creditsPerVerification = 1

type Handler struct {
	verifier Verifier
	credits  CreditLedger
	logger   *slog.Logger
}

func New(verifier Verifier, credits CreditLedger, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, credits: credits, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
}

// VerifyRequest is the body for POST /v1/verify.
type VerifyRequest struct {
	Email string `json:"email"`
}

func (r *VerifyRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *VerifyRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

// HandleVerify handles POST /v1/verify. The credit is taken before any
// scoring work and returned only if scoring never produced a verdict.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	workspaceID := requestcontext.WorkspaceID(ctx)
	if workspaceID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.credits.Deduct(ctx, workspaceID, creditsPerVerification); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInsufficientCredits) {
			h.logger.ErrorContext(ctx, "failed to deduct verification credit",
				"request_id", requestID,
				"workspace_id", workspaceID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	record, err := h.verifier.Verify(ctx, req.Email)
	if err != nil {
		h.refund(ctx, workspaceID)
		h.logger.WarnContext(ctx, "verification interrupted",
			"request_id", requestID,
			"workspace_id", workspaceID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "verification interrupted"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) refund(ctx context.Context, workspaceID domain.WorkspaceID) {
	if _, err := h.credits.Grant(context.WithoutCancel(ctx), workspaceID, creditsPerVerification); err != nil {
		h.logger.ErrorContext(ctx, "failed to refund verification credit",
			"workspace_id", workspaceID,
			"error", err,
		)
	}
}
