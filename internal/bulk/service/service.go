// Package service accepts bulk verification lists and exposes their results.
package service

import (
	"context"
	"errors"
	"log/slog"

	"emailscore/internal/bulk/metrics"
	"emailscore/internal/bulk/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/requestcontext"
)

const (
	MaxRecords = 50_000

	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type Store interface {
	CreateList(ctx context.Context, list *models.List) error
	FindList(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error)
	UpdateList(ctx context.Context, list *models.List) error
	ListRecords(ctx context.Context, workspaceID domain.WorkspaceID, listID domain.ListID, limit, offset int) ([]models.Record, error)
}

// CreditLedger reserves credits up front and returns them when a list
// never reaches the runner.
type CreditLedger interface {
	Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
	Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

// Dispatcher hands a task to a runner. Name prefixes the stored task handle.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, task models.Task) error
}

type Service struct {
	store      Store
	credits    CreditLedger
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, credits CreditLedger, dispatcher Dispatcher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("list store is required")
	}
	if credits == nil {
		return nil, errors.New("credit ledger is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	s := &Service{store: store, credits: credits, dispatcher: dispatcher, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitInput is a validated bulk submission.
type SubmitInput struct {
	WorkspaceID domain.WorkspaceID
	UserID      domain.UserID
	EmailColumn string
	Data        []map[string]any
}

func (in SubmitInput) validate() error {
	if in.WorkspaceID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if in.EmailColumn == "" {
		return dErrors.New(dErrors.CodeValidation, "emailColumn is required")
	}
	if len(in.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "data must contain at least one record")
	}
	if len(in.Data) > MaxRecords {
		return dErrors.New(dErrors.CodeValidation, "data exceeds the maximum list size")
	}
	return nil
}

// Submit reserves one credit per record, records the list and dispatches it.
// Insufficient credits reject the whole list before any work is done.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.List, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	size := int64(len(in.Data))
	if _, err := s.credits.Deduct(ctx, in.WorkspaceID, size); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	list, err := models.NewList(domain.NewListID(), in.WorkspaceID, in.UserID, len(in.Data), now)
	if err != nil {
		s.refund(ctx, in.WorkspaceID, size)
		return nil, err
	}
	if err := s.store.CreateList(ctx, list); err != nil {
		s.refund(ctx, in.WorkspaceID, size)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create list")
	}

	if err := list.MarkProcessing(s.dispatcher.Name()+":"+list.ID.String(), now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateList(ctx, list); err != nil {
		s.abandon(ctx, list, size)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update list")
	}

	task := models.Task{
		ListID:          list.ID,
		WorkspaceID:     list.WorkspaceID,
		UserID:          list.UserID,
		EmailColumn:     in.EmailColumn,
		Data:            in.Data,
		CreditsReserved: true,
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		s.abandon(ctx, list, size)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dispatch list")
	}

	s.metrics.IncrementSubmitted()
	s.logger.InfoContext(ctx, "bulk list submitted",
		"request_id", requestcontext.RequestID(ctx),
		"list_id", list.ID,
		"workspace_id", list.WorkspaceID,
		"size", list.Size,
		"dispatcher", s.dispatcher.Name(),
	)
	return list, nil
}

func (s *Service) Get(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error) {
	list, err := s.store.FindList(ctx, workspaceID, id)
	if err != nil {
		return nil, translate(err, "failed to load list")
	}
	return list, nil
}

// Records pages through the stored verdicts of a list in insertion order.
func (s *Service) Records(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID, limit, offset int) ([]models.Record, error) {
	if limit < 0 || offset < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "limit and offset must not be negative")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	if _, err := s.Get(ctx, workspaceID, id); err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(ctx, workspaceID, id, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load list records")
	}
	return records, nil
}

// abandon fails a list that never reached the runner and returns its credits.
func (s *Service) abandon(ctx context.Context, list *models.List, size int64) {
	if err := list.Fail(requestcontext.Now(ctx)); err == nil {
		if err := s.store.UpdateList(ctx, list); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark undispatched list as error",
				"list_id", list.ID,
				"error", err,
			)
		}
	}
	s.refund(ctx, list.WorkspaceID, size)
}

func (s *Service) refund(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) {
	if _, err := s.credits.Grant(ctx, workspaceID, amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to refund reserved credits",
			"workspace_id", workspaceID,
			"amount", amount,
			"error", err,
		)
	}
}

func translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "list not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
