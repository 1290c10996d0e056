package cache

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// admissionScript increments the caller's window counter, starting the
// window expiry on the first hit and capping the count at limit+1.
// Returns {count, ttl_ms}.
var admissionScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local cap = tonumber(ARGV[2]) + 1
if count > cap then
  redis.call('DECR', KEYS[1])
  count = cap
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// AdmissionCache is a fixed-window admitter shared across instances
type AdmissionCache interface {
	Admit(ctx context.Context, key string) (model.AdmissionResult, error)
}

type admissionCache struct {
	client *redis.Client
	limit  int
	window time.Duration
	clock  clock.Clock
}

// NewAdmissionCache creates a Redis-backed admitter allowing limit requests
// per window for each key.
func NewAdmissionCache(client *redis.Client, limit int, window time.Duration, clk clock.Clock) AdmissionCache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &admissionCache{
		client: client,
		limit:  limit,
		window: window,
		clock:  clk,
	}
}

func (c *admissionCache) key(callerKey string) string {
	return fmt.Sprintf("admission:%s", callerKey)
}

func (c *admissionCache) Admit(ctx context.Context, key string) (model.AdmissionResult, error) {
	vals, err := admissionScript.Run(ctx, c.client, []string{c.key(key)}, c.window.Milliseconds(), c.limit).Int64Slice()
	if err != nil {
		return model.AdmissionResult{}, err
	}
	if len(vals) != 2 {
		return model.AdmissionResult{}, fmt.Errorf("admission script returned %d values", len(vals))
	}
	return admissionFromCounter(vals[0], time.Duration(vals[1])*time.Millisecond, c.limit, c.window, c.clock.Now()), nil
}

// admissionFromCounter converts the script's counter and remaining TTL into
// an AdmissionResult. A non-positive TTL means the key has no expiry yet and
// the full window is assumed.
func admissionFromCounter(count int64, ttl time.Duration, limit int, window time.Duration, now time.Time) model.AdmissionResult {
	if ttl <= 0 {
		ttl = window
	}
	resetAt := now.Add(ttl)

	if count > int64(limit) {
		retry := int(math.Ceil(ttl.Seconds()))
		if retry < 1 {
			retry = 1
		}
		return model.AdmissionResult{Limited: true, Remaining: 0, ResetAt: resetAt, RetryAfterSeconds: retry}
	}
	return model.AdmissionResult{Remaining: limit - int(count), ResetAt: resetAt}
}
