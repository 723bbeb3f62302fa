/**
 * @description
 * Redis implementation of the Store contract. Each record lives at
 * `<prefix>:doc:<collection>:<id>` as a JSON string, and a per-collection set
 * at `<prefix>:ids:<collection>` tracks member IDs for Query scans.
 *
 * AtomicIncrement runs as a Lua script so the decode-increment-encode cycle
 * executes atomically inside Redis; concurrent increments against the same
 * record serialize on the server and none are lost.
 *
 * @dependencies
 * - context, encoding/json, errors, fmt, strings: Standard Go libraries.
 * - github.com/redis/go-redis/v9: Redis client.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var atomicIncrementScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return redis.error_reply("NOTFOUND")
end
local doc = cjson.decode(raw)
local current = doc[ARGV[1]]
if current == nil then
  current = 0
end
current = current + tonumber(ARGV[2])
doc[ARGV[1]] = current
redis.call("SET", KEYS[1], cjson.encode(doc))
return current
`)

// RedisStore is a Redis-backed document store.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an established Redis client. The prefix namespaces all
// keys so several environments can share one instance.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "upi"
	}
	return &RedisStore{client: client, prefix: trimmed}
}

func (r *RedisStore) docKey(collection, id string) string {
	return fmt.Sprintf("%s:doc:%s:%s", r.prefix, collection, id)
}

func (r *RedisStore) idsKey(collection string) string {
	return fmt.Sprintf("%s:ids:%s", r.prefix, collection)
}

func (r *RedisStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, nil
}

func (r *RedisStore) Query(ctx context.Context, collection, field, value string) ([][]byte, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(collection, id)
	}
	raws, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var out [][]byte
	for _, v := range raws {
		s, ok := v.(string)
		if !ok {
			continue // id set member whose document expired or was removed
		}
		raw := []byte(s)
		if matchesField(raw, field, value) {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (r *RedisStore) Set(ctx context.Context, collection, id string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.docKey(collection, id), raw, 0)
	pipe.SAdd(ctx, r.idsKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) AtomicIncrement(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	result, err := atomicIncrementScript.Run(ctx, r.client,
		[]string{r.docKey(collection, id)}, field, delta).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "NOTFOUND") {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

func (r *RedisStore) Close() {
	_ = r.client.Close()
}
