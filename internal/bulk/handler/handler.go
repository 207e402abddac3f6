package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"emailscore/internal/bulk/models"
	"emailscore/internal/bulk/service"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/httputil"
	"emailscore/pkg/requestcontext"
)

// Service defines the bulk list operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, in service.SubmitInput) (*models.List, error)
	Get(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error)
	Records(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID, limit, offset int) ([]models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/lists", h.HandleSubmit)
	r.Get("/lists/{id}", h.HandleGet)
	r.Get("/lists/{id}/records", h.HandleRecords)
}

// SubmitRequest is the body for POST /v1/lists.
type SubmitRequest struct {
	Data        []map[string]any `json:"data"`
	EmailColumn string           `json:"emailColumn"`
}

func (r *SubmitRequest) Normalize() {
	r.EmailColumn = strings.TrimSpace(r.EmailColumn)
}

func (r *SubmitRequest) Validate() error {
	if r.EmailColumn == "" {
		return dErrors.New(dErrors.CodeValidation, "emailColumn is required")
	}
	if len(r.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "data must contain at least one record")
	}
	return nil
}

type submitResponse struct {
	ListID domain.ListID `json:"list_id"`
}

type listResponse struct {
	ListID  domain.ListID     `json:"list_id"`
	Status  models.ListStatus `json:"status"`
	Size    int               `json:"size"`
	Summary *models.Summary   `json:"summary"`
}

type recordsResponse struct {
	Records []models.Record `json:"records"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// HandleSubmit handles POST /v1/lists.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	workspaceID := requestcontext.WorkspaceID(ctx)
	if workspaceID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	list, err := h.service.Submit(ctx, service.SubmitInput{
		WorkspaceID: workspaceID,
		UserID:      requestcontext.UserID(ctx),
		EmailColumn: req.EmailColumn,
		Data:        req.Data,
	})
	if err != nil {
		h.logFailure(ctx, "failed to submit list", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, submitResponse{ListID: list.ID})
}

// HandleGet handles GET /v1/lists/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, listID, ok := h.scope(w, r)
	if !ok {
		return
	}

	list, err := h.service.Get(ctx, workspaceID, listID)
	if err != nil {
		h.logFailure(ctx, "failed to load list", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		ListID:  list.ID,
		Status:  list.Status,
		Size:    list.Size,
		Summary: list.Summary,
	})
}

// HandleRecords handles GET /v1/lists/{id}/records?limit=&offset=.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, listID, ok := h.scope(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if limit == 0 {
		limit = service.DefaultPageSize
	}
	limit = min(limit, service.MaxPageSize)

	records, err := h.service.Records(ctx, workspaceID, listID, limit, offset)
	if err != nil {
		h.logFailure(ctx, "failed to load list records", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordsResponse{Records: records, Limit: limit, Offset: offset})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (domain.WorkspaceID, domain.ListID, bool) {
	workspaceID := requestcontext.WorkspaceID(r.Context())
	if workspaceID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.WorkspaceID{}, domain.ListID{}, false
	}
	listID, err := domain.ParseListID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.WorkspaceID{}, domain.ListID{}, false
	}
	return workspaceID, listID, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"workspace_id", requestcontext.WorkspaceID(ctx),
			"error", err,
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, key+" must be a non-negative integer")
	}
	return n, nil
}
