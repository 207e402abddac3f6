// Package service manages the workspace directory: workspaces, their users
// and the API keys that authenticate them.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"emailscore/internal/workspace/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	authmw "emailscore/pkg/platform/middleware/auth"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/requestcontext"
)

type Store interface {
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	FindWorkspace(ctx context.Context, id domain.WorkspaceID) (*models.Workspace, error)
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id domain.UserID) (*models.User, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	FindAPIKey(ctx context.Context, prefix string) (*models.APIKey, error)
}

// CreditGranter seeds a new workspace's balance.
type CreditGranter interface {
	Grant(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

type Service struct {
	store      Store
	credits    CreditGranter
	logger     *slog.Logger
	bcryptCost int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCreditGranter(g CreditGranter) Option {
	return func(s *Service) { s.credits = g }
}

// WithBcryptCost lowers the hashing cost (tests).
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost {
			s.bcryptCost = cost
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("workspace store is required")
	}
	s := &Service{store: store, logger: slog.Default(), bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateWorkspace creates a workspace, optionally granting it starting credits.
func (s *Service) CreateWorkspace(ctx context.Context, name string, credits int64) (*models.Workspace, error) {
	ws, err := models.NewWorkspace(domain.WorkspaceID(uuid.New()), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create workspace")
	}
	if credits > 0 && s.credits != nil {
		if _, err := s.credits.Grant(ctx, ws.ID, credits); err != nil {
			return nil, err
		}
	}
	s.logger.InfoContext(ctx, "workspace created", "workspace_id", ws.ID, "credits", credits)
	return ws, nil
}

func (s *Service) AddUser(ctx context.Context, workspaceID domain.WorkspaceID, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user email is required")
	}
	if _, err := s.store.FindWorkspace(ctx, workspaceID); err != nil {
		return nil, s.translate(err, "workspace")
	}
	user := &models.User{
		ID:          domain.UserID(uuid.New()),
		WorkspaceID: workspaceID,
		Email:       email,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}
	return user, nil
}

// UserEmail returns the notification address of a user.
func (s *Service) UserEmail(ctx context.Context, userID domain.UserID) (string, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return "", s.translate(err, "user")
	}
	return user.Email, nil
}

// IssueAPIKey creates a key for the workspace and returns its plaintext form,
// which is never stored.
func (s *Service) IssueAPIKey(ctx context.Context, workspaceID domain.WorkspaceID, userID domain.UserID) (string, error) {
	prefix, err := randomHex(6)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate api key")
	}
	secret, err := randomHex(24)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate api key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash api key")
	}
	key := &models.APIKey{
		Prefix:      prefix,
		SecretHash:  string(hash),
		WorkspaceID: workspaceID,
		UserID:      userID,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "store api key")
	}
	s.logger.InfoContext(ctx, "api key issued", "workspace_id", workspaceID, "prefix", prefix)
	return models.FormatAPIKey(prefix, secret), nil
}

// AuthenticateAPIKey implements the auth middleware's key lookup.
func (s *Service) AuthenticateAPIKey(ctx context.Context, key string) (*authmw.Principal, error) {
	prefix, secret, err := models.ParseAPIKey(key)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.FindAPIKey(ctx, prefix)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find api key")
	}
	if stored.IsRevoked() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "api key revoked")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(secret)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	}
	return &authmw.Principal{WorkspaceID: stored.WorkspaceID, UserID: stored.UserID}, nil
}

func (s *Service) translate(err error, entity string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "find "+entity)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
