/**
 * @description
 * This file implements a distributed fixed-window rate limiter on Redis,
 * applied to the token-exchange endpoints. Link and relink each hit the
 * aggregation provider's token endpoints, so a misbehaving client must not be
 * able to hammer them.
 */
package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var linkRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLinkRateLimiter implements distributed rate limiting using Redis.
// A nil limiter (no Redis configured) never limits.
type RedisLinkRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLinkRateLimiter(client redis.UniversalClient, prefix string) *RedisLinkRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "horizon:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisLinkRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// ConsumeRateLimit counts one attempt for subject under scope and reports how
// many attempts the current window has seen and, when over limit, how long
// until the window resets.
func (r *RedisLinkRateLimiter) ConsumeRateLimit(
	ctx context.Context,
	scope string,
	subject string,
	limit int,
	window time.Duration,
) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.TrimSpace(subject)
	if normalizedScope == "" || normalizedSubject == "" {
		return 0, 0, nil
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedScope, normalizedSubject)
	result, err := linkRateLimitScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(result) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script result length %d", len(result))
	}

	currentCount, ok := result[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count type %T", result[0])
	}
	ttlMillis, ok := result[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit ttl type %T", result[1])
	}

	retryAfter := int(math.Ceil(float64(ttlMillis) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(currentCount), retryAfter, nil
}
