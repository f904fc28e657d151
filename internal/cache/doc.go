// Package cache persists the last successfully retrieved configuration so
// the dashboard can paint immediately on start and keep showing something
// useful while the device is unreachable.
//
// Backends implement Store (get/set of a named blob): FileStore under the
// user cache directory, MemoryStore, and RedisStore for a cache shared by
// several dmxsync instances. SnapshotCache sits on top and turns every
// backend failure into a logged cache miss.
package cache
