package store

import (
	"context"
	"sync"
	"time"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

// MemoryCodeRepository is an in-memory implementation of the
// CodeRepository interface
type MemoryCodeRepository struct {
	mu      sync.Mutex
	byCode  map[string]*core.OneTimeCode
	byEmail map[string]string // email -> live code
}

// NewMemoryCodeRepository creates a new in-memory code repository
func NewMemoryCodeRepository() *MemoryCodeRepository {
	return &MemoryCodeRepository{
		byCode:  make(map[string]*core.OneTimeCode),
		byEmail: make(map[string]string),
	}
}

var _ ports.CodeRepository = (*MemoryCodeRepository)(nil)

// Save stores a code, replacing any live code for the same email
func (r *MemoryCodeRepository) Save(ctx context.Context, code *core.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.byEmail[code.Email]; ok {
		delete(r.byCode, prior)
	}
	stored := *code
	r.byCode[code.Code] = &stored
	r.byEmail[code.Email] = code.Code
	return nil
}

// FindByCode looks up a code record
func (r *MemoryCodeRepository) FindByCode(ctx context.Context, code string) (*core.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byCode[code]
	if !ok {
		return nil, core.ErrCodeNotFound
	}
	found := *rec
	return &found, nil
}

// FindByEmail looks up the live code record for an email
func (r *MemoryCodeRepository) FindByEmail(ctx context.Context, email string) (*core.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byEmail[email]
	if !ok {
		return nil, core.ErrCodeNotFound
	}
	rec, ok := r.byCode[code]
	if !ok {
		return nil, core.ErrCodeNotFound
	}
	found := *rec
	return &found, nil
}

// IncrementAttempts bumps the attempt counter under the store lock and
// returns the post-increment count
func (r *MemoryCodeRepository) IncrementAttempts(ctx context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byCode[code]
	if !ok {
		return 0, core.ErrCodeNotFound
	}
	rec.Attempts++
	return rec.Attempts, nil
}

// MarkVerified records the first successful verification
func (r *MemoryCodeRepository) MarkVerified(ctx context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byCode[code]
	if !ok {
		return core.ErrCodeNotFound
	}
	if !rec.Verified {
		rec.Verified = true
		rec.VerifiedAt = at
	}
	return nil
}

// Delete removes a code record
func (r *MemoryCodeRepository) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(code)
	return nil
}

// DeleteByEmail removes any code record for an email
func (r *MemoryCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if code, ok := r.byEmail[email]; ok {
		r.remove(code)
	}
	return nil
}

// DeleteExpired removes every record past its expiry
func (r *MemoryCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, rec := range r.byCode {
		if now.After(rec.ExpiresAt) {
			r.remove(code)
			removed++
		}
	}
	return removed, nil
}

// remove deletes a record and its email index entry; callers hold the lock
func (r *MemoryCodeRepository) remove(code string) {
	rec, ok := r.byCode[code]
	if !ok {
		return
	}
	delete(r.byCode, code)
	if r.byEmail[rec.Email] == code {
		delete(r.byEmail, rec.Email)
	}
}
