// Package memory provides map backed stores for tests and single process runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	db_models "nebula-backend/internal/models"
	"nebula-backend/internal/store"

	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

type slotKey struct {
	owner string
	key   string
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*db_models.User
	slots map[slotKey][]byte
}

func NewStore() *Store {
	return &Store{
		users: make(map[uuid.UUID]*db_models.User),
		slots: make(map[slotKey][]byte),
	}
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*db_models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*db_models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, user *db_models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrConflict
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) SetUserApproval(_ context.Context, id uuid.UUID, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsApproved = approved
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) GetSlot(_ context.Context, owner, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[slotKey{owner, key}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) PutSlot(_ context.Context, owner, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[slotKey{owner, key}] = append([]byte(nil), value...)
	return nil
}

func (s *Store) DeleteSlot(_ context.Context, owner, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slotKey{owner, key})
	return nil
}
