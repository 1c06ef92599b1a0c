package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldText      = "text"
	fieldMetadata  = "metadata"
	fieldEmbedding = "embedding"
)

// RedisIndex stores one hash per item (<prefix>:item:<id>) holding the
// document text, metadata JSON and float32 embedding, plus a set of indexed
// ids (<prefix>:ids). Queries score every member by cosine distance.
type RedisIndex struct {
	client   redis.UniversalClient
	embedder Embedder
	prefix   string
	logger   *zap.Logger
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex creates a Redis-backed index
func NewRedisIndex(client redis.UniversalClient, embedder Embedder, prefix string, log *zap.Logger) *RedisIndex {
	if prefix == "" {
		prefix = "assistant"
	}
	return &RedisIndex{client: client, embedder: embedder, prefix: prefix, logger: logger.OrNop(log)}
}

func (r *RedisIndex) itemKey(id int64) string {
	return fmt.Sprintf("%s:item:%d", r.prefix, id)
}

func (r *RedisIndex) idsKey() string {
	return r.prefix + ":ids"
}

// Upsert embeds text and stores it under id
func (r *RedisIndex) Upsert(ctx context.Context, id int64, text string, metadata Metadata) error {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return &IndexError{Op: "embed", ItemID: id, Err: err}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return &IndexError{Op: "upsert", ItemID: id, Err: err}
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.itemKey(id), map[string]any{
		fieldText:      text,
		fieldMetadata:  string(meta),
		fieldEmbedding: encodeVector(vec),
	})
	pipe.SAdd(ctx, r.idsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &IndexError{Op: "upsert", ItemID: id, Err: err}
	}
	return nil
}

// Query returns the k members closest to text
func (r *RedisIndex) Query(ctx context.Context, text string, k int) ([]Match, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}
	if len(ids) == 0 {
		return []Match{}, nil
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &IndexError{Op: "embed", Err: err}
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, raw := range ids {
		cmds[i] = pipe.HGet(ctx, r.prefix+":item:"+raw, fieldEmbedding)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, &IndexError{Op: "query", Err: err}
	}

	matches := make([]Match, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			stale = append(stale, ids[i])
			continue
		}
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return nil, &IndexError{Op: "query", ItemID: id, Err: err}
		}
		member, err := decodeVector(data)
		if err != nil {
			r.logger.Warn("semantic_index_corrupt_entry", zap.Int64("item_id", id), zap.Error(err))
			continue
		}
		matches = append(matches, Match{ID: id, Distance: cosineDistance(vec, member)})
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.idsKey(), stale...).Err(); err != nil {
			r.logger.Warn("semantic_index_cleanup_failed", zap.Int("stale", len(stale)), zap.Error(err))
		}
	}

	return topK(matches, k), nil
}

// Delete removes id from the index. Deleting a missing id succeeds.
func (r *RedisIndex) Delete(ctx context.Context, id int64) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.itemKey(id))
	pipe.SRem(ctx, r.idsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &IndexError{Op: "delete", ItemID: id, Err: err}
	}
	return nil
}

// Reset removes every indexed document
func (r *RedisIndex) Reset(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return &IndexError{Op: "reset", Err: err}
	}
	keys := make([]string, 0, len(ids)+1)
	for _, raw := range ids {
		keys = append(keys, r.prefix+":item:"+raw)
	}
	keys = append(keys, r.idsKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return &IndexError{Op: "reset", Err: err}
	}
	return nil
}

// Count returns the number of indexed documents
func (r *RedisIndex) Count(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, r.idsKey()).Result()
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	return n, nil
}

// HealthCheck pings Redis
func (r *RedisIndex) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
