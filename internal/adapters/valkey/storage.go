package valkey

import (
	"context"
	"time"
)

const storageTimeout = 2 * time.Second

// Storage implements fiber.Storage on top of a Cache so the rate limiter
// shares counters across API replicas. Keys are namespaced by prefix.
type Storage struct {
	cache  *Cache
	prefix string
}

// NewStorage returns a Storage writing keys under prefix.
func NewStorage(cache *Cache, prefix string) *Storage {
	return &Storage{cache: cache, prefix: prefix}
}

func (s *Storage) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s.cache.Get(ctx, s.prefix+key)
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s.cache.set(ctx, s.prefix+key, val, exp)
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s.cache.Delete(ctx, s.prefix+key)
}

// Reset deletes every key under the prefix.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*storageTimeout)
	defer cancel()

	client := s.cache.client
	var cursor uint64
	for {
		entry, err := client.Do(ctx, client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			if err := client.Do(ctx, client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return err
			}
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

// Close is a no-op; the underlying Cache is closed by its owner.
func (s *Storage) Close() error {
	return nil
}
