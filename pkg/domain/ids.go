// Package domain holds typed identifiers shared across features.
//
// Each ID is a distinct named type over uuid.UUID so a ListID can never be
// passed where a WorkspaceID is expected. Parse functions are the trust
// boundary for IDs arriving in URLs, tokens and job payloads.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "emailscore/pkg/domain-errors"
)

type (
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	ListID      uuid.UUID
)

func (id WorkspaceID) String() string { return uuid.UUID(id).String() }
func (id WorkspaceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ListID) String() string { return uuid.UUID(id).String() }
func (id ListID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func NewListID() ListID { return ListID(uuid.New()) }

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > 64 || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return id, nil
}

func ParseWorkspaceID(s string) (WorkspaceID, error) {
	id, err := parseUUID(s, "workspace id")
	return WorkspaceID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user id")
	return UserID(id), err
}

func ParseListID(s string) (ListID, error) {
	id, err := parseUUID(s, "list id")
	return ListID(id), err
}

// Text encoding keeps IDs readable in JSON payloads and job messages.

func (id WorkspaceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id ListID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }

func (id *WorkspaceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ListID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
