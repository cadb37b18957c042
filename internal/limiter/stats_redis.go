package limiter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder aggregates admission events into Redis hashes.
//
// Layout under prefix:
//
//	<prefix>:total                  allowed / denied
//	<prefix>:limiter                <limiter>:allowed / <limiter>:denied
//	<prefix>:minute:<yyyymmddhhmm>  allowed / denied (expires after ttl)
//	<prefix>:key:<id>               allowed / denied (only with track keys)
type RedisRecorder struct {
	rdb *redis.Client

	prefix    string
	ttl       time.Duration
	bucket    string // "minute" or "none"
	trackKeys bool
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

func WithRedisBucket(bucket string) RedisOption {
	return func(r *RedisRecorder) { r.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithRedisTrackKeys(track bool) RedisOption {
	return func(r *RedisRecorder) { r.trackKeys = track }
}

// NewRedisRecorder wraps an existing client. The caller owns the client.
func NewRedisRecorder(rdb *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "chatgate:admissions",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	if name := strings.TrimSpace(ev.Limiter); name != "" {
		pipe.HIncrBy(ctx, r.prefix+":limiter", name+":"+field, 1)
	}

	if r.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", r.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, bucketKey, r.ttl)
		}
	}

	if r.trackKeys {
		if k := strings.TrimSpace(ev.Key); k != "" {
			keyKey := r.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if r.ttl > 0 {
				pipe.Expire(ctx, keyKey, r.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks connectivity; used as a health check.
func (r *RedisRecorder) Ping(ctx context.Context) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Ping(ctx).Err()
}

// CheckHealth lets the recorder be registered as a health checker.
func (r *RedisRecorder) CheckHealth(ctx context.Context) error {
	return r.Ping(ctx)
}

// Summary reads the per-limiter hash back into Counters.
func (r *RedisRecorder) Summary(ctx context.Context) (map[string]Counters, error) {
	out := make(map[string]Counters)
	if r == nil || r.rdb == nil {
		return out, nil
	}

	fields, err := r.rdb.HGetAll(ctx, r.prefix+":limiter").Result()
	if err != nil {
		return nil, fmt.Errorf("read admission summary: %w", err)
	}
	for field, raw := range fields {
		name, decision, ok := cutLast(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		c := out[name]
		switch decision {
		case "allowed":
			c.Allowed += n
		case "denied":
			c.Denied += n
		default:
			continue
		}
		out[name] = c
	}
	return out, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
