package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSnapshotter mirrors in-memory store collections as JSON blobs in
// Redis so ticket and notification state survives a process restart.
type RedisSnapshotter struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSnapshotter builds a snapshotter over the given client.
func NewRedisSnapshotter(client *redis.Client, prefix string, logger *zap.Logger) *RedisSnapshotter {
	if prefix == "" {
		prefix = "grievance"
	}
	return &RedisSnapshotter{client: client, prefix: prefix, logger: logger}
}

func (s *RedisSnapshotter) key(collection string) string {
	return s.prefix + ":snapshot:" + collection
}

// Save stores one collection blob. Failures are logged, not propagated:
// the in-memory state stays authoritative.
func (s *RedisSnapshotter) Save(ctx context.Context, collection string, blob []byte) error {
	if err := s.client.Set(ctx, s.key(collection), blob, 0).Err(); err != nil {
		s.logger.Warn("snapshot save failed",
			zap.String("collection", collection), zap.Error(err))
		return err
	}
	return nil
}

// Load fetches one collection blob. A missing key yields an empty blob.
func (s *RedisSnapshotter) Load(ctx context.Context, collection string) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}
