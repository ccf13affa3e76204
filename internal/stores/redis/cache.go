package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/config"
)

// SnapshotCache stores encoded index snapshots keyed by the fingerprint of
// the source files. Cache failures are never fatal: the caller falls back to
// a fresh build.
type SnapshotCache struct {
	log    logger.Logger
	rdb    *Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(log logger.Logger, rdb *Client, cfg *config.CacheConfig) *SnapshotCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "refstats:snapshot:"
	}
	return &SnapshotCache{
		log:    log,
		rdb:    rdb,
		prefix: prefix,
		ttl:    cfg.TTL,
	}
}

// FingerprintKey builds a deterministic cache key from (name, size, mtime)
// of every source file, in the order given. Any stat failure yields an
// error; a changed file must never hit a stale entry.
func FingerprintKey(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("failed to stat source %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s|%d|%d;", st.Name(), st.Size(), st.ModTime().UnixMilli())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached blob for a key, or found=false on a clean miss.
func (c *SnapshotCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot cache get failed: %w", err)
	}
	return data, true, nil
}

func (c *SnapshotCache) Put(ctx context.Context, key string, blob []byte) error {
	if err := c.rdb.Set(ctx, c.prefix+key, blob, c.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot cache put failed: %w", err)
	}
	c.log.Debugf("Snapshot cached: key=%s, %d bytes", key, len(blob))
	return nil
}
