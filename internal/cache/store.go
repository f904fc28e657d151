package cache

import (
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/muurk/dmxsync/internal/config"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Store persists named blobs outside process memory.
type Store interface {
	// Get returns the blob under key. A missing key is (nil, false, nil).
	Get(key string) ([]byte, bool, error)

	// Set replaces the blob under key.
	Set(key string, blob []byte) error
}

// Open builds the Store selected by the settings.
func Open(s config.CacheSettings) (Store, error) {
	switch s.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		dir := s.Dir
		if dir == "" {
			var err error
			if dir, err = config.DefaultCacheDir(); err != nil {
				return nil, err
			}
		}
		return NewFileStore(dir), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}
