package models

import (
	"time"

	scoring "emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
)

// ListStatus tracks a bulk list through pending → processing → completed|error.
type ListStatus string

const (
	ListStatusPending    ListStatus = "pending"
	ListStatusProcessing ListStatus = "processing"
	ListStatusCompleted  ListStatus = "completed"
	ListStatusError      ListStatus = "error"
)

func (s ListStatus) String() string {
	return string(s)
}

func (s ListStatus) IsValid() bool {
	switch s {
	case ListStatusPending, ListStatusProcessing, ListStatusCompleted, ListStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ListStatus) IsTerminal() bool {
	return s == ListStatusCompleted || s == ListStatusError
}

// CanTransitionTo encodes the allowed edges. A pending list may fail
// directly when dispatch never happened.
func (s ListStatus) CanTransitionTo(next ListStatus) bool {
	switch s {
	case ListStatusPending:
		return next == ListStatusProcessing || next == ListStatusError
	case ListStatusProcessing:
		return next == ListStatusCompleted || next == ListStatusError
	}
	return false
}

// Summary counts verdicts for a completed list. Unknown counts records whose
// verification was cut short.
type Summary struct {
	Deliverable   int `json:"deliverable"`
	Risky         int `json:"risky"`
	Undeliverable int `json:"undeliverable"`
	Unknown       int `json:"unknown"`
}

func (s *Summary) Add(status scoring.Status) {
	switch status {
	case scoring.StatusDeliverable:
		s.Deliverable++
	case scoring.StatusRisky:
		s.Risky++
	case scoring.StatusUndeliverable:
		s.Undeliverable++
	default:
		s.Unknown++
	}
}

func (s *Summary) Merge(other Summary) {
	s.Deliverable += other.Deliverable
	s.Risky += other.Risky
	s.Undeliverable += other.Undeliverable
	s.Unknown += other.Unknown
}

func (s Summary) Total() int {
	return s.Deliverable + s.Risky + s.Undeliverable + s.Unknown
}

// List is one bulk submission. Only the job that owns it mutates it.
type List struct {
	ID          domain.ListID      `json:"id"`
	WorkspaceID domain.WorkspaceID `json:"workspace_id"`
	UserID      domain.UserID      `json:"user_id"`
	Status      ListStatus         `json:"status"`
	Size        int                `json:"size"`
	Summary     *Summary           `json:"summary"`
	TaskHandle  *string            `json:"task_handle"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewList(id domain.ListID, workspaceID domain.WorkspaceID, userID domain.UserID, size int, now time.Time) (*List, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "list id is required")
	}
	if workspaceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "workspace id is required")
	}
	if size <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "list must contain at least one record")
	}
	return &List{
		ID:          id,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Status:      ListStatusPending,
		Size:        size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (l *List) transition(next ListStatus, now time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"list cannot move from "+l.Status.String()+" to "+next.String())
	}
	l.Status = next
	l.UpdatedAt = now
	return nil
}

// MarkProcessing records the runner handle once the list has been dispatched.
func (l *List) MarkProcessing(handle string, now time.Time) error {
	if err := l.transition(ListStatusProcessing, now); err != nil {
		return err
	}
	l.TaskHandle = &handle
	return nil
}

func (l *List) Complete(summary Summary, now time.Time) error {
	if err := l.transition(ListStatusCompleted, now); err != nil {
		return err
	}
	l.Summary = &summary
	return nil
}

func (l *List) Fail(now time.Time) error {
	return l.transition(ListStatusError, now)
}

// Record is one persisted verdict, tagged with the raw input row.
type Record struct {
	scoring.EmailRecord
	ListID       domain.ListID      `json:"-"`
	WorkspaceID  domain.WorkspaceID `json:"-"`
	CustomFields map[string]any     `json:"custom_fields"`
}

// Task is the unit handed to the job runner. It travels as JSON when the
// Kafka dispatcher is used.
type Task struct {
	ListID          domain.ListID      `json:"list_id"`
	WorkspaceID     domain.WorkspaceID `json:"workspace_id"`
	UserID          domain.UserID      `json:"user_id"`
	EmailColumn     string             `json:"email_column"`
	Data            []map[string]any   `json:"data"`
	CreditsReserved bool               `json:"credits_reserved"`
}
