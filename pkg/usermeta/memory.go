package usermeta

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps metadata in process memory. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return newUser(userID), nil
	}
	return &User{
		ID:              u.ID,
		PublicMetadata:  u.PublicMetadata.Clone(),
		PrivateMetadata: u.PrivateMetadata.Clone(),
	}, nil
}

func (s *MemoryStore) UpdateUserMetadata(_ context.Context, userID string, upd Update) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = newUser(userID)
		s.users[userID] = u
	}
	u.PublicMetadata.Merge(upd.Public)
	u.PrivateMetadata.Merge(upd.Private)
	return nil
}

func (s *MemoryStore) ListUserIDs(ctx context.Context, fn func(string) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}
