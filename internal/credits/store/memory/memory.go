package memory

import (
	"context"
	"sync"

	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
)

// Store holds balances in a map guarded by one mutex, so each change is a
// single critical section.
type Store struct {
	mu       sync.Mutex
	balances map[domain.WorkspaceID]int64
}

func New() *Store {
	return &Store{balances: make(map[domain.WorkspaceID]int64)}
}

func (s *Store) Balance(_ context.Context, workspaceID domain.WorkspaceID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[workspaceID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return balance, nil
}

func (s *Store) Deduct(_ context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[workspaceID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if balance < amount {
		return 0, sentinel.ErrInsufficient
	}
	s.balances[workspaceID] = balance - amount
	return balance - amount, nil
}

// Grant creates the workspace balance on first use.
func (s *Store) Grant(_ context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[workspaceID] += amount
	return s.balances[workspaceID], nil
}
