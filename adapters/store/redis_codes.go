package store

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

const (
	codeKeyPrefix  = "auth:otp:code:"
	emailKeyPrefix = "auth:otp:email:"
)

// RedisCodeRepository implements the CodeRepository interface on Redis.
// Records are hashes so the attempt counter can use HINCRBY, which is
// atomic across instances.
type RedisCodeRepository struct {
	client *redis.Client
}

// NewRedisCodeRepository creates a new Redis-backed code repository
func NewRedisCodeRepository(client *redis.Client) *RedisCodeRepository {
	return &RedisCodeRepository{client: client}
}

var _ ports.CodeRepository = (*RedisCodeRepository)(nil)

func codeKey(code string) string {
	return codeKeyPrefix + code
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}

// Save stores a code, replacing any live code for the same email
func (r *RedisCodeRepository) Save(ctx context.Context, code *core.OneTimeCode) error {
	if err := r.DeleteByEmail(ctx, code.Email); err != nil {
		return err
	}

	ttl := time.Until(code.ExpiresAt) + expiryGrace
	fields := map[string]interface{}{
		"email":      code.Email,
		"payload":    base64.StdEncoding.EncodeToString(code.PendingPayload),
		"createdAt":  code.CreatedAt.UnixMilli(),
		"expiresAt":  code.ExpiresAt.UnixMilli(),
		"attempts":   code.Attempts,
		"verified":   boolField(code.Verified),
		"verifiedAt": code.VerifiedAt.UnixMilli(),
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, codeKey(code.Code), fields)
	pipe.Expire(ctx, codeKey(code.Code), ttl)
	pipe.Set(ctx, emailKey(code.Email), code.Code, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return core.ErrStoreOperationFailed
	}
	return nil
}

// FindByCode looks up a code record
func (r *RedisCodeRepository) FindByCode(ctx context.Context, code string) (*core.OneTimeCode, error) {
	fields, err := r.client.HGetAll(ctx, codeKey(code)).Result()
	if err != nil {
		return nil, core.ErrStoreOperationFailed
	}
	if len(fields) == 0 {
		return nil, core.ErrCodeNotFound
	}
	return decodeCode(code, fields)
}

// FindByEmail looks up the live code record for an email
func (r *RedisCodeRepository) FindByEmail(ctx context.Context, email string) (*core.OneTimeCode, error) {
	code, err := r.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCodeNotFound
		}
		return nil, core.ErrStoreOperationFailed
	}
	return r.FindByCode(ctx, code)
}

// IncrementAttempts bumps the attempt counter with HINCRBY and returns the
// post-increment count
func (r *RedisCodeRepository) IncrementAttempts(ctx context.Context, code string) (int, error) {
	exists, err := r.client.Exists(ctx, codeKey(code)).Result()
	if err != nil {
		return 0, core.ErrStoreOperationFailed
	}
	if exists == 0 {
		return 0, core.ErrCodeNotFound
	}

	attempts, err := r.client.HIncrBy(ctx, codeKey(code), "attempts", 1).Result()
	if err != nil {
		return 0, core.ErrStoreOperationFailed
	}
	return int(attempts), nil
}

// MarkVerified records the first successful verification
func (r *RedisCodeRepository) MarkVerified(ctx context.Context, code string, at time.Time) error {
	err := r.client.HSet(ctx, codeKey(code), map[string]interface{}{
		"verified":   1,
		"verifiedAt": at.UnixMilli(),
	}).Err()
	if err != nil {
		return core.ErrStoreOperationFailed
	}
	return nil
}

// Delete removes a code record and its email index entry
func (r *RedisCodeRepository) Delete(ctx context.Context, code string) error {
	email, err := r.client.HGet(ctx, codeKey(code), "email").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return core.ErrStoreOperationFailed
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, codeKey(code))
	pipe.Del(ctx, emailKey(email))
	if _, err := pipe.Exec(ctx); err != nil {
		return core.ErrStoreOperationFailed
	}
	return nil
}

// DeleteByEmail removes any code record for an email
func (r *RedisCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	code, err := r.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return core.ErrStoreOperationFailed
	}
	return r.Delete(ctx, code)
}

// DeleteExpired is a no-op for Redis: key TTLs already bound memory
func (r *RedisCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func decodeCode(code string, fields map[string]string) (*core.OneTimeCode, error) {
	payload, err := base64.StdEncoding.DecodeString(fields["payload"])
	if err != nil {
		return nil, core.ErrStoreOperationFailed
	}
	attempts, _ := strconv.Atoi(fields["attempts"])

	rec := &core.OneTimeCode{
		Code:           code,
		Email:          fields["email"],
		PendingPayload: payload,
		CreatedAt:      millisField(fields["createdAt"]),
		ExpiresAt:      millisField(fields["expiresAt"]),
		Attempts:       attempts,
		Verified:       fields["verified"] == "1",
	}
	if rec.Verified {
		rec.VerifiedAt = millisField(fields["verifiedAt"])
	}
	return rec, nil
}

func millisField(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}
