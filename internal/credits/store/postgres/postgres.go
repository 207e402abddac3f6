package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/platform/tx"
)

// Store keeps balances on workspaces.available_credits. Deductions are one
// conditional UPDATE so concurrent callers can never overdraw.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Balance(ctx context.Context, workspaceID domain.WorkspaceID) (int64, error) {
	var balance int64
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT available_credits FROM workspaces WHERE id = $1`,
		uuid.UUID(workspaceID),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("read credit balance: %w", err)
	}
	return balance, nil
}

func (s *Store) Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	query := `
		UPDATE workspaces
		SET available_credits = available_credits - $2
		WHERE id = $1 AND available_credits >= $2
		RETURNING available_credits
	`
	var remaining int64
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(workspaceID), amount).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}
	// No row updated: either the workspace is missing or the balance is short.
	if _, balErr := s.Balance(ctx, workspaceID); balErr != nil {
		return 0, balErr
	}
	return 0, sentinel.ErrInsufficient
}

func (s *Store) Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	query := `
		UPDATE workspaces
		SET available_credits = available_credits + $2
		WHERE id = $1
		RETURNING available_credits
	`
	var balance int64
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(workspaceID), amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("grant credits: %w", err)
	}
	return balance, nil
}
