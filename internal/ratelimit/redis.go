package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the limiter with Redis. Besides plain get/put it
// implements WindowIncrementer via a Lua script, making the
// increment-or-initialize step a single atomic round trip.
type RedisStore struct {
	rdb  *redis.Client
	incr *redis.Script
}

// incrWindowScript: KEYS[1] counter key; ARGV = now(ms), window(ms), max, ttl(s).
// Returns 1 when the request is allowed, 0 when throttled.
var incrWindowScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
if raw then
  local rec = cjson.decode(raw)
  if now - rec.windowStart < window then
    if rec.count >= max then
      return 0
    end
    redis.call('SET', KEYS[1], cjson.encode({count = rec.count + 1, windowStart = rec.windowStart}), 'EX', ttl)
    return 1
  end
end
redis.call('SET', KEYS[1], cjson.encode({count = 1, windowStart = now}), 'EX', ttl)
return 1
`)

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		incr: incrWindowScript,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Corrupt record: treat as absent so the window restarts.
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, ttl).Err()
}

func (s *RedisStore) IncrWindow(ctx context.Context, key string, window, ttl time.Duration, max int) (bool, error) {
	res, err := s.incr.Run(ctx, s.rdb, []string{key},
		time.Now().UnixMilli(), window.Milliseconds(), max, int(ttl.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
