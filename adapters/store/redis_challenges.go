package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

const (
	challengeKeyPrefix = "auth:challenge:"
	challengeMsgPrefix = "auth:challenge:msg:"

	// Records outlive their logical expiry slightly so verification can
	// still report Expired instead of NotFound right after the deadline
	expiryGrace = time.Minute
)

// RedisChallengeRepository implements the ChallengeRepository interface on
// Redis so multiple instances share one challenge store
type RedisChallengeRepository struct {
	client *redis.Client
}

// NewRedisChallengeRepository creates a new Redis-backed challenge repository
func NewRedisChallengeRepository(client *redis.Client) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client}
}

var _ ports.ChallengeRepository = (*RedisChallengeRepository)(nil)

func challengeKey(id string) string {
	return challengeKeyPrefix + id
}

// challengeMsgKey indexes a challenge by its exact message and address
func challengeMsgKey(message, address string) string {
	sum := sha256.Sum256([]byte(message + "\x00" + address))
	return challengeMsgPrefix + hex.EncodeToString(sum[:])
}

// Save stores a challenge and its message index
func (r *RedisChallengeRepository) Save(ctx context.Context, ch *core.Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}

	ttl := time.Until(ch.ExpiresAt) + expiryGrace
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, challengeKey(ch.ID), payload, ttl)
	pipe.Set(ctx, challengeMsgKey(ch.Message, ch.Address), ch.ID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return core.ErrStoreOperationFailed
	}
	return nil
}

// FindByMessage looks up a challenge through the message index
func (r *RedisChallengeRepository) FindByMessage(ctx context.Context, message, address string) (*core.Challenge, error) {
	id, err := r.client.Get(ctx, challengeMsgKey(message, address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, core.ErrStoreOperationFailed
	}
	return r.get(ctx, id)
}

func (r *RedisChallengeRepository) get(ctx context.Context, id string) (*core.Challenge, error) {
	payload, err := r.client.Get(ctx, challengeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, core.ErrStoreOperationFailed
	}

	var ch core.Challenge
	if err := json.Unmarshal(payload, &ch); err != nil {
		return nil, core.ErrStoreOperationFailed
	}
	return &ch, nil
}

// Consume marks a challenge used under an optimistic WATCH transaction so
// concurrent verifications cannot both succeed
func (r *RedisChallengeRepository) Consume(ctx context.Context, id string) error {
	key := challengeKey(id)

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return core.ErrChallengeNotFound
			}
			return core.ErrStoreOperationFailed
		}

		var ch core.Challenge
		if err := json.Unmarshal(payload, &ch); err != nil {
			return core.ErrStoreOperationFailed
		}
		if ch.Used {
			return core.ErrChallengeUsed
		}
		ch.Used = true

		updated, err := json.Marshal(&ch)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := r.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	// A concurrent writer won every retry; the only writer is Consume
	// itself, so the challenge is used.
	return core.ErrChallengeUsed
}

// Delete removes a challenge and its message index
func (r *RedisChallengeRepository) Delete(ctx context.Context, id string) error {
	ch, err := r.get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) {
			return nil
		}
		return err
	}
	if err := r.client.Del(ctx, challengeKey(id), challengeMsgKey(ch.Message, ch.Address)).Err(); err != nil {
		return core.ErrStoreOperationFailed
	}
	return nil
}

// DeleteExpired is a no-op for Redis: key TTLs already bound memory
func (r *RedisChallengeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
