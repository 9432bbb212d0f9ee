package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a Redis sliding window limiter keyed by an arbitrary
// scope, used to throttle expensive operations such as CSV exports per
// organizer. Each allowed call is a member of a sorted set scored by its
// timestamp; a Lua script trims, counts and adds atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	now         func() time.Time
}

// ARGV: now (ms), window (ms), limit, member.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, math.floor(window / 1000) + 1)
    return 1
else
    return 0
end
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		now:         time.Now,
	}
}

func rlKey(scope, id string) string {
	return fmt.Sprintf("rl:%s:%s", scope, id)
}

// Allow reports whether another call for scope/id fits in limit calls per
// window. A non-positive limit disables the check. Redis failures fail open.
func (rl *RateLimiter) Allow(ctx context.Context, scope, id string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}

	key := rlKey(scope, id)
	now := rl.now().UnixMilli()

	result, err := rl.script.Run(ctx, rl.redisClient, []string{key},
		now, window.Milliseconds(), limit, uuid.NewString(),
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "scope", scope, "id", id)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "scope", scope, "id", id, "limit", limit)
		return false
	}

	return true
}
