package store

import (
	"context"
	"sync"
	"time"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

// MemoryChallengeRepository is an in-memory implementation of the
// ChallengeRepository interface for single-process deployments and tests
type MemoryChallengeRepository struct {
	mu         sync.Mutex
	challenges map[string]*core.Challenge
}

// NewMemoryChallengeRepository creates a new in-memory challenge repository
func NewMemoryChallengeRepository() *MemoryChallengeRepository {
	return &MemoryChallengeRepository{
		challenges: make(map[string]*core.Challenge),
	}
}

var _ ports.ChallengeRepository = (*MemoryChallengeRepository)(nil)

// Save stores a challenge
func (r *MemoryChallengeRepository) Save(ctx context.Context, ch *core.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *ch
	r.challenges[ch.ID] = &stored
	return nil
}

// FindByMessage looks up a challenge by exact message and address match
func (r *MemoryChallengeRepository) FindByMessage(ctx context.Context, message, address string) (*core.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.challenges {
		if ch.Message == message && ch.Address == address {
			found := *ch
			return &found, nil
		}
	}
	return nil, core.ErrChallengeNotFound
}

// Consume marks a challenge used. The check and the mark happen under one
// lock so two concurrent verifications cannot both succeed.
func (r *MemoryChallengeRepository) Consume(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.challenges[id]
	if !ok {
		return core.ErrChallengeNotFound
	}
	if ch.Used {
		return core.ErrChallengeUsed
	}
	ch.Used = true
	return nil
}

// Delete removes a challenge
func (r *MemoryChallengeRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.challenges, id)
	return nil
}

// DeleteExpired removes every challenge past its expiry
func (r *MemoryChallengeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, ch := range r.challenges {
		if now.After(ch.ExpiresAt) {
			delete(r.challenges, id)
			removed++
		}
	}
	return removed, nil
}
