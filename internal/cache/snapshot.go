package cache

import (
	"encoding/json"

	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
)

// DefaultKey is the single key the last good configuration is stored under.
const DefaultKey = "lastConfig"

// SnapshotCache stores the last good ConfigSnapshot in a Store. Failures are
// logged and reported as a miss; they never reach the caller.
type SnapshotCache struct {
	store Store
	key   string
}

// NewSnapshotCache wraps store using DefaultKey.
func NewSnapshotCache(store Store) *SnapshotCache {
	return &SnapshotCache{store: store, key: DefaultKey}
}

// Load returns the cached snapshot, if a readable one exists.
func (c *SnapshotCache) Load() (*snapshot.Snapshot, bool) {
	blob, ok, err := c.store.Get(c.key)
	if err != nil {
		logging.Warn("Cache read failed, treating as miss", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	snap, err := snapshot.Parse(blob)
	if err != nil {
		logging.Warn("Cached snapshot is corrupt, ignoring", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}
	return snap, true
}

// Save overwrites the cached snapshot in full. Secret fields are dropped.
func (c *SnapshotCache) Save(s *snapshot.Snapshot) {
	blob, err := json.Marshal(snapshot.Public(s))
	if err != nil {
		logging.Warn("Failed to encode snapshot for cache", zap.Error(err))
		return
	}
	if err := c.store.Set(c.key, blob); err != nil {
		logging.Warn("Cache write failed", zap.String("key", c.key), zap.Error(err))
	}
}
