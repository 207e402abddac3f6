package models

import (
	"strings"
	"time"

	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
)

// Workspace owns users, API keys, lists and a credit balance.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - CreatedAt is immutable after construction
type Workspace struct {
	ID        domain.WorkspaceID `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewWorkspace(id domain.WorkspaceID, name string, now time.Time) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "workspace name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "workspace name must be 128 characters or less")
	}
	return &Workspace{ID: id, Name: name, CreatedAt: now}, nil
}

// User is a workspace member; Email receives job notifications.
type User struct {
	ID          domain.UserID      `json:"id"`
	WorkspaceID domain.WorkspaceID `json:"workspace_id"`
	Email       string             `json:"email"`
	CreatedAt   time.Time          `json:"created_at"`
}

// APIKey is stored by its public prefix; only a hash of the secret is kept.
type APIKey struct {
	Prefix      string
	SecretHash  string
	WorkspaceID domain.WorkspaceID
	UserID      domain.UserID
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// APIKeyScheme is the literal that starts every key.
const APIKeyScheme = "esk"

// FormatAPIKey renders the plaintext key handed to the caller once.
func FormatAPIKey(prefix, secret string) string {
	return APIKeyScheme + "_" + prefix + "_" + secret
}

// ParseAPIKey splits esk_<prefix>_<secret>. The prefix never contains '_'.
func ParseAPIKey(key string) (prefix, secret string, err error) {
	rest, ok := strings.CutPrefix(key, APIKeyScheme+"_")
	if !ok {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "malformed api key")
	}
	prefix, secret, ok = strings.Cut(rest, "_")
	if !ok || prefix == "" || secret == "" {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "malformed api key")
	}
	return prefix, secret, nil
}
