package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scoring "emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
)

func TestListStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ListStatus
		want     bool
	}{
		{ListStatusPending, ListStatusProcessing, true},
		{ListStatusPending, ListStatusError, true},
		{ListStatusPending, ListStatusCompleted, false},
		{ListStatusProcessing, ListStatusCompleted, true},
		{ListStatusProcessing, ListStatusError, true},
		{ListStatusProcessing, ListStatusPending, false},
		{ListStatusCompleted, ListStatusError, false},
		{ListStatusError, ListStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, ListStatusCompleted.IsTerminal())
	assert.False(t, ListStatusProcessing.IsTerminal())
	assert.False(t, ListStatus("paused").IsValid())
}

func TestList_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list, err := NewList(domain.NewListID(), domain.WorkspaceID(uuid.New()), domain.UserID{}, 3, now)
	require.NoError(t, err)
	assert.Equal(t, ListStatusPending, list.Status)

	err = list.Complete(Summary{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "pending cannot complete")

	require.NoError(t, list.MarkProcessing("inline:abc", now.Add(time.Second)))
	assert.Equal(t, "inline:abc", *list.TaskHandle)

	require.NoError(t, list.Complete(Summary{Deliverable: 1, Undeliverable: 2}, now.Add(2*time.Second)))
	assert.Equal(t, ListStatusCompleted, list.Status)
	assert.Equal(t, 3, list.Summary.Total())
	assert.Equal(t, now.Add(2*time.Second), list.UpdatedAt)

	assert.Error(t, list.Fail(now), "completed is terminal")
}

func TestNewList_Invariants(t *testing.T) {
	now := time.Now()
	ws := domain.WorkspaceID(uuid.New())

	_, err := NewList(domain.ListID{}, ws, domain.UserID{}, 1, now)
	assert.Error(t, err)
	_, err = NewList(domain.NewListID(), domain.WorkspaceID{}, domain.UserID{}, 1, now)
	assert.Error(t, err)
	_, err = NewList(domain.NewListID(), ws, domain.UserID{}, 0, now)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(scoring.StatusDeliverable)
	s.Add(scoring.StatusRisky)
	s.Add(scoring.StatusUndeliverable)
	s.Add(scoring.StatusUndeliverable)
	s.Add(scoring.Status(""))

	s.Merge(Summary{Deliverable: 2})
	assert.Equal(t, Summary{Deliverable: 3, Risky: 1, Undeliverable: 2, Unknown: 1}, s)
	assert.Equal(t, 7, s.Total())
}
