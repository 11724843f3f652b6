package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limit defines a token bucket for one interaction kind.
type Limit struct {
	Capacity int64 // burst size
	Refill   int64 // tokens added per window
}

// Default interaction limits.
var (
	LikeLimit    = Limit{Capacity: 60, Refill: 60}
	CommentLimit = Limit{Capacity: 20, Refill: 20}
)

// Limiter rate-limits viewer interactions per user and action using
// Redis-backed token buckets. The bucket state lives entirely in Redis
// so every service replica enforces the same budget.
type Limiter struct {
	redis  *redis.Client
	window time.Duration
	limits map[string]Limit
}

func New(redisClient *redis.Client) *Limiter {
	return &Limiter{
		redis:  redisClient,
		window: time.Minute,
		limits: map[string]Limit{
			"like":    LikeLimit,
			"comment": CommentLimit,
		},
	}
}

// SetLimit overrides the bucket for an action. Mostly for tests.
func (l *Limiter) SetLimit(action string, limit Limit) {
	l.limits[action] = limit
}

// consumeScript refills the bucket for elapsed time, then tries to
// take one token. Runs atomically inside Redis.
const consumeScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'refreshed')
local tokens = tonumber(state[1]) or capacity
local refreshed = tonumber(state[2]) or now

local gained = math.floor(((now - refreshed) / window) * refill)
if gained > 0 then
	tokens = math.min(capacity, tokens + gained)
	refreshed = now
end

local allowed = 0
if tokens > 0 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HMSET', key, 'tokens', tokens, 'refreshed', refreshed)
redis.call('EXPIRE', key, window * 2)
return allowed
`

// Allow reports whether userID may perform the action now. Actions
// without a configured limit are always allowed.
func (l *Limiter) Allow(ctx context.Context, userID, action string) (bool, error) {
	limit, ok := l.limits[action]
	if !ok {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", action, userID)
	now := time.Now().Unix()

	result, err := l.redis.Eval(ctx, consumeScript, []string{key},
		limit.Capacity, limit.Refill, int64(l.window.Seconds()), now).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}

	return allowed == 1, nil
}

// Reset clears the bucket for a user action.
func (l *Limiter) Reset(ctx context.Context, userID, action string) error {
	return l.redis.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", action, userID)).Err()
}
