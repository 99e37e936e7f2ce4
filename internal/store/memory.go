package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
)

// MemoryUserStore is a UserStore kept in process memory. It backs the server
// when no database URL is configured and is used throughout the tests.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]domain.User
	byUsername map[string]uuid.UUID
}

var _ UserStore = (*MemoryUserStore)(nil)

// NewMemoryUserStore returns an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       make(map[uuid.UUID]domain.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

// Create implements UserStore.
func (s *MemoryUserStore) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: nil user", ErrInvalidEntity)
	}

	stored := *user
	stored.Password = ""
	if err := stored.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[stored.Username]; taken {
		return ErrUsernameExists
	}
	if _, taken := s.byID[stored.ID]; taken {
		return fmt.Errorf("%w: id", ErrDuplicate)
	}

	s.byID[stored.ID] = stored
	s.byUsername[stored.Username] = stored.ID
	return nil
}

// GetByID implements UserStore.
func (s *MemoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// GetByUsername implements UserStore.
func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := s.byID[id]
	return &user, nil
}

// Delete implements UserStore.
func (s *MemoryUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byID, id)
	delete(s.byUsername, user.Username)
	return nil
}

// WithTx returns the store itself; memory writes are not transactional.
func (s *MemoryUserStore) WithTx(_ *sql.Tx) UserStore {
	return s
}
