package user

import (
	"context"
	"sync"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory user store for development and tests.
// Email uniqueness is enforced under the store mutex, standing in for a
// database unique index.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]*User)}
}

// FindByEmail looks up a user by email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// Create inserts a new user, rejecting duplicate emails.
func (s *MemoryStore) Create(_ context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	copied := *u
	s.byEmail[u.Email] = &copied
	result := copied
	return &result, nil
}

// Update overwrites an existing user record.
func (s *MemoryStore) Update(_ context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; !exists {
		return nil, ErrNotFound
	}

	copied := *u
	s.byEmail[u.Email] = &copied
	result := copied
	return &result, nil
}
