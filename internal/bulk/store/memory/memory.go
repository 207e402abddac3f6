package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"emailscore/internal/bulk/models"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
)

// Store keeps lists and their records in process memory. Values are copied
// on the way in and out.
type Store struct {
	mu      sync.RWMutex
	lists   map[domain.ListID]models.List
	records map[domain.ListID][]models.Record
}

func New() *Store {
	return &Store{
		lists:   make(map[domain.ListID]models.List),
		records: make(map[domain.ListID][]models.Record),
	}
}

func (s *Store) CreateList(_ context.Context, list *models.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[list.ID]; ok {
		return fmt.Errorf("list %s: %w", list.ID, sentinel.ErrConflict)
	}
	s.lists[list.ID] = copyList(list)
	return nil
}

func (s *Store) FindList(_ context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[id]
	if !ok || list.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("list %s: %w", id, sentinel.ErrNotFound)
	}
	out := copyList(&list)
	return &out, nil
}

func (s *Store) UpdateList(_ context.Context, list *models.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[list.ID]; !ok {
		return fmt.Errorf("list %s: %w", list.ID, sentinel.ErrNotFound)
	}
	s.lists[list.ID] = copyList(list)
	return nil
}

func (s *Store) InsertRecords(_ context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.CustomFields = maps.Clone(r.CustomFields)
		s.records[r.ListID] = append(s.records[r.ListID], r)
	}
	return nil
}

func (s *Store) DeleteRecords(_ context.Context, listID domain.ListID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, listID)
	return nil
}

func (s *Store) ListRecords(_ context.Context, workspaceID domain.WorkspaceID, listID domain.ListID, limit, offset int) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if list, ok := s.lists[listID]; !ok || list.WorkspaceID != workspaceID {
		return []models.Record{}, nil
	}
	all := s.records[listID]
	if offset >= len(all) {
		return []models.Record{}, nil
	}
	end := min(offset+limit, len(all))
	out := make([]models.Record, 0, end-offset)
	for _, r := range all[offset:end] {
		r.CustomFields = maps.Clone(r.CustomFields)
		out = append(out, r)
	}
	return out, nil
}

func copyList(l *models.List) models.List {
	out := *l
	if l.Summary != nil {
		summary := *l.Summary
		out.Summary = &summary
	}
	if l.TaskHandle != nil {
		handle := *l.TaskHandle
		out.TaskHandle = &handle
	}
	return out
}
