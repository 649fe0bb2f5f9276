// Package sessions provides the in-memory, time-bounded cache that maps
// an opaque session identifier to a cleaned table so clients can make
// follow-up chart requests without re-uploading.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/datapeek/datapeek/pkg/models"
)

// DefaultTTL is how long an uploaded table stays available.
const DefaultTTL = time.Hour

// Clock abstracts time.Now so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// ErrNotFound is returned when no session exists for the given ID.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return "session not found: " + e.ID
}

// ErrExpired is returned when a session exists but its TTL has elapsed.
// The lookup that observes expiry also evicts the entry.
type ErrExpired struct {
	ID string
}

func (e *ErrExpired) Error() string {
	return "session expired: " + e.ID
}

// Cache is a thread-safe in-memory session store with time-based expiry.
// All check-and-evict paths run under a single mutex so a concurrent
// lookup can never observe a half-evicted entry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*models.Session
	ttl     time.Duration
	clock   Clock
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a custom clock, used by tests to step time.
func WithClock(c Clock) Option {
	return func(s *Cache) { s.clock = c }
}

// NewCache creates an empty session cache. A non-positive ttl falls back
// to DefaultTTL.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]*models.Session),
		ttl:     ttl,
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put stores a cleaned table under a fresh random session ID and returns
// the ID. Each upload owns its table exclusively; no two sessions share
// one. Expired entries are swept opportunistically on every Put, so the
// cache needs no background goroutine.
func (c *Cache) Put(table *models.Table, filename string) string {
	now := c.clock.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		Table:     table,
		Filename:  filename,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[session.ID] = session
	swept := c.sweepLocked(now)
	c.mu.Unlock()

	if swept > 0 {
		log.Debug().Int("swept", swept).Msg("expired sessions evicted")
	}
	return session.ID
}

// Get returns the live session for id. A missing ID yields ErrNotFound;
// an entry past its expiry yields ErrExpired and is evicted as a side
// effect of the lookup.
func (c *Cache) Get(id string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.entries[id]
	if !ok {
		return nil, &ErrNotFound{ID: id}
	}
	if !c.clock.Now().Before(session.ExpiresAt) {
		delete(c.entries, id)
		return nil, &ErrExpired{ID: id}
	}
	return session, nil
}

// Sweep removes every entry whose expiry is in the past and reports how
// many were evicted.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.clock.Now())
}

func (c *Cache) sweepLocked(now time.Time) int {
	swept := 0
	for id, session := range c.entries {
		if !now.Before(session.ExpiresAt) {
			delete(c.entries, id)
			swept++
		}
	}
	return swept
}

// Len reports the number of live entries, counting any not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
