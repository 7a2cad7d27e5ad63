package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/urlessen/identity-api/internal/models"
)

// Sessions of one user live in a single hash: field = token, value = JSON row.
const sessionKeyPrefix = "sessions:user:"

var reuseScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
local n = redis.call('HLEN', KEYS[1])
if n > 0 then
	redis.call('DEL', KEYS[1])
end
return n
`)

var rotateScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
	return false
end
local row = cjson.decode(current)
row.token = ARGV[2]
row.rotated_at = ARGV[3]
local encoded = cjson.encode(row)
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[1], ARGV[2], encoded)
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return encoded
`)

type redisSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	RotatedAt time.Time `json:"rotated_at"`
}

// RedisSessionRepository stores refresh sessions in Redis. Each method is a
// single command or script and therefore atomic.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionRepository constructs the store. A positive ttl expires a
// user's sessions once none has been created or rotated for that long.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// Create stores a session row. ID is generated when empty.
func (r *RedisSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.RotatedAt = now

	payload, err := json.Marshal(redisSession{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		CreatedAt: session.CreatedAt,
		RotatedAt: session.RotatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKey(session.UserID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, session.Token, payload)
	if r.ttl > 0 {
		pipe.PExpire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

// Rotate swaps oldToken for newToken within the user's hash.
func (r *RedisSessionRepository) Rotate(ctx context.Context, userID, oldToken, newToken string) (*models.Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	raw, err := rotateScript.Run(ctx, r.client, []string{sessionKey(userID)}, oldToken, newToken, now, r.ttl.Milliseconds()).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis rotate session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &models.Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Token:     stored.Token,
		CreatedAt: stored.CreatedAt,
		RotatedAt: stored.RotatedAt,
	}, nil
}

// Delete removes the session holding token.
func (r *RedisSessionRepository) Delete(ctx context.Context, userID, token string) (int64, error) {
	n, err := r.client.HDel(ctx, sessionKey(userID), token).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete session: %w", err)
	}
	return n, nil
}

// DeleteAllOnReuse drops the user's hash unless it holds token.
func (r *RedisSessionRepository) DeleteAllOnReuse(ctx context.Context, userID, token string) (int64, error) {
	n, err := reuseScript.Run(ctx, r.client, []string{sessionKey(userID)}, token).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis delete sessions on reuse: %w", err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
