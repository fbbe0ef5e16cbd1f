package geo

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Cache stores the last fix per device key.
type Cache interface {
	GetPosition(ctx context.Context, key string) (Position, bool, error)
	PutPosition(ctx context.Context, key string, pos Position, ttl time.Duration) error
}

// Cached serves a cached fix younger than Options.MaximumAge and otherwise
// queries the wrapped locator.
type Cached struct {
	Locator Locator
	Cache   Cache
	Key     string
	Clock   clock.Clock
	Logger  *logrus.Logger
}

func (c *Cached) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	now := c.now()
	if opts.MaximumAge > 0 && c.Cache != nil {
		pos, ok, err := c.Cache.GetPosition(ctx, c.Key)
		if err != nil {
			c.log().WithError(err).Warn("position cache read failed")
		} else if ok && now.Sub(pos.Timestamp) <= opts.MaximumAge {
			return pos, nil
		}
	}

	if c.Locator == nil {
		return Position{}, ErrUnavailable
	}
	pos, err := c.Locator.CurrentPosition(ctx, opts)
	if err != nil {
		return Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = now
	}
	if opts.MaximumAge > 0 && c.Cache != nil {
		if err := c.Cache.PutPosition(ctx, c.Key, pos, opts.MaximumAge); err != nil {
			c.log().WithError(err).Warn("position cache write failed")
		}
	}
	return pos, nil
}

func (c *Cached) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

func (c *Cached) log() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger.WithField("key", c.Key)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]Position
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]Position)}
}

func (m *MemoryCache) GetPosition(_ context.Context, key string) (Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.items[key]
	return pos, ok, nil
}

func (m *MemoryCache) PutPosition(_ context.Context, key string, pos Position, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = pos
	return nil
}
