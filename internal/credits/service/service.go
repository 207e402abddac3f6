// Package service is the workspace credit ledger. Every verification costs
// one credit; balances never go negative.
package service

import (
	"context"
	"errors"
	"log/slog"

	"emailscore/internal/credits/metrics"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	"emailscore/pkg/platform/sentinel"
)

// Store performs balance changes atomically at the storage layer.
type Store interface {
	// Balance returns sentinel.ErrNotFound for an unknown workspace.
	Balance(ctx context.Context, workspaceID domain.WorkspaceID) (int64, error)
	// Deduct removes amount in one step or fails with sentinel.ErrInsufficient,
	// leaving the balance untouched.
	Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
	Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credit store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Balance(ctx context.Context, workspaceID domain.WorkspaceID) (int64, error) {
	balance, err := s.store.Balance(ctx, workspaceID)
	if err != nil {
		return 0, s.translate(err, "read credit balance")
	}
	return balance, nil
}

// Require is an advisory check that amount is currently available. It
// reserves nothing; Deduct is the authoritative step.
func (s *Service) Require(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) error {
	balance, err := s.Balance(ctx, workspaceID)
	if err != nil {
		return err
	}
	if balance < amount {
		s.metrics.IncrementInsufficient()
		return dErrors.New(dErrors.CodeInsufficientCredits, "insufficient credits")
	}
	return nil
}

// Deduct atomically removes amount credits and returns the remaining balance.
func (s *Service) Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credit amount must be positive")
	}
	remaining, err := s.store.Deduct(ctx, workspaceID, amount)
	if err != nil {
		if errors.Is(err, sentinel.ErrInsufficient) {
			s.metrics.IncrementInsufficient()
			s.logger.InfoContext(ctx, "credit deduction rejected",
				"workspace_id", workspaceID,
				"amount", amount,
			)
		}
		return 0, s.translate(err, "deduct credits")
	}
	s.metrics.AddDeducted(amount)
	return remaining, nil
}

// Grant tops a workspace up, for seeding and administration.
func (s *Service) Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credit amount must be positive")
	}
	balance, err := s.store.Grant(ctx, workspaceID, amount)
	if err != nil {
		return 0, s.translate(err, "grant credits")
	}
	s.metrics.AddGranted(amount)
	s.logger.InfoContext(ctx, "credits granted",
		"workspace_id", workspaceID,
		"amount", amount,
		"balance", balance,
	)
	return balance, nil
}

func (s *Service) translate(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrInsufficient):
		return dErrors.New(dErrors.CodeInsufficientCredits, "insufficient credits")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "workspace not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}
