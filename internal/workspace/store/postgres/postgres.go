package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"emailscore/internal/workspace/models"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx,
		`INSERT INTO workspaces (id, name, available_credits, created_at) VALUES ($1, $2, 0, $3)`,
		uuid.UUID(ws.ID), ws.Name, ws.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

func (s *Store) FindWorkspace(ctx context.Context, id domain.WorkspaceID) (*models.Workspace, error) {
	var (
		ws  models.Workspace
		raw uuid.UUID
	)
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = $1`, uuid.UUID(id),
	).Scan(&raw, &ws.Name, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find workspace: %w", err)
	}
	ws.ID = domain.WorkspaceID(raw)
	return &ws, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx,
		`INSERT INTO users (id, workspace_id, email, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(user.ID), uuid.UUID(user.WorkspaceID), user.Email, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, id domain.UserID) (*models.User, error) {
	var (
		user        models.User
		rawID, wsID uuid.UUID
	)
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, workspace_id, email, created_at FROM users WHERE id = $1`, uuid.UUID(id),
	).Scan(&rawID, &wsID, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.ID = domain.UserID(rawID)
	user.WorkspaceID = domain.WorkspaceID(wsID)
	return &user, nil
}

func (s *Store) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	var userID any
	if !key.UserID.IsNil() {
		userID = uuid.UUID(key.UserID)
	}
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx,
		`INSERT INTO api_keys (prefix, secret_hash, workspace_id, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		key.Prefix, key.SecretHash, uuid.UUID(key.WorkspaceID), userID, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *Store) FindAPIKey(ctx context.Context, prefix string) (*models.APIKey, error) {
	var (
		key       models.APIKey
		wsID      uuid.UUID
		userID    uuid.NullUUID
		revokedAt sql.NullTime
	)
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT prefix, secret_hash, workspace_id, user_id, created_at, revoked_at
		FROM api_keys WHERE prefix = $1
	`, prefix).Scan(&key.Prefix, &key.SecretHash, &wsID, &userID, &key.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	key.WorkspaceID = domain.WorkspaceID(wsID)
	if userID.Valid {
		key.UserID = domain.UserID(userID.UUID)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		key.RevokedAt = &t
	}
	return &key, nil
}
