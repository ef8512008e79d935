package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

// MemoryUserStore is an in-memory implementation of the UserStore
// interface for tests and the demo binary
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*core.User
}

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*core.User),
	}
}

var _ ports.UserStore = (*MemoryUserStore)(nil)

// FindByID retrieves a user by id
func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

// FindByEmail retrieves a user by normalized email
func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			found := *user
			return &found, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// FindByWalletAddress retrieves a user by wallet address
func (s *MemoryUserStore) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.WalletAddress == address {
			found := *user
			return &found, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// Create stores a new user, assigning an id when the caller left it empty
func (s *MemoryUserStore) Create(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// UpdateLastLogin stamps the user's last login time
func (s *MemoryUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	user.LastLoginAt = time.Now()
	return nil
}

// Delete removes a user; tests use it to simulate deleted accounts
func (s *MemoryUserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	return nil
}
