package session

import (
	"sync"

	"docdesk/internal/desk"
)

// MemoryStore holds the session for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	user *desk.AuthenticatedUser
}

var _ desk.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(user *desk.AuthenticatedUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return nil
	}
	u := *user
	u.Permissions = append([]string(nil), user.Permissions...)
	s.user = &u
	return nil
}

func (s *MemoryStore) Load() (*desk.AuthenticatedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, desk.ErrNoSession
	}
	u := *s.user
	u.Permissions = append([]string(nil), s.user.Permissions...)
	return &u, nil
}

func (s *MemoryStore) Clear() error {
	return s.Save(nil)
}
