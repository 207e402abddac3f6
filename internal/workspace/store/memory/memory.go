package memory

import (
	"context"
	"sync"

	"emailscore/internal/workspace/models"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
)

type Store struct {
	mu         sync.RWMutex
	workspaces map[domain.WorkspaceID]*models.Workspace
	users      map[domain.UserID]*models.User
	keys       map[string]*models.APIKey
}

func New() *Store {
	return &Store{
		workspaces: make(map[domain.WorkspaceID]*models.Workspace),
		users:      make(map[domain.UserID]*models.User),
		keys:       make(map[string]*models.APIKey),
	}
}

func (s *Store) CreateWorkspace(_ context.Context, ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workspaces[ws.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *Store) FindWorkspace(_ context.Context, id domain.WorkspaceID) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) FindUser(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key.Prefix]; exists {
		return sentinel.ErrConflict
	}
	cp := *key
	s.keys[key.Prefix] = &cp
	return nil
}

func (s *Store) FindAPIKey(_ context.Context, prefix string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[prefix]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *key
	return &cp, nil
}
