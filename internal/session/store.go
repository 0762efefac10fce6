// Package session provides the process-wide store for per-call sessions.
//
// Sessions are keyed by the opaque call SID assigned by the telephony
// platform. The platform serializes turns within one call, so the store only
// needs to be safe for concurrent access across distinct calls.
package session

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/partsline/partsline/internal/models"
)

// DefaultTTL is how long an idle session survives before it is evicted.
// Abandoned calls (caller hangs up mid-flow) age out instead of leaking.
const DefaultTTL = 30 * time.Minute

// Store is the injectable session store abstraction. The call flow
// controller owns a Store and never touches a concrete map, so it can be
// swapped for a test double or a distributed backend.
type Store interface {
	// Get returns the session for a call SID, or false if none exists
	// (never created, already deleted, or expired).
	Get(callSID string) (*models.CallSession, bool)

	// Put inserts or replaces the session for its call SID and refreshes
	// its idle expiration.
	Put(sess *models.CallSession)

	// Delete removes the session for a call SID. Deleting a missing
	// session is a no-op.
	Delete(callSID string)

	// Len reports the number of live sessions, for health reporting.
	Len() int
}

// Opts holds configuration options for the cache-backed store.
type Opts struct {
	TTL time.Duration
}

// Option defines a configuration option for the cache-backed store.
type Option func(*Opts)

// WithTTL overrides the idle session expiration.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// CacheStore implements Store on top of an expiring in-memory cache.
type CacheStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewCacheStore creates a session store with idle expiration.
func NewCacheStore(opts ...Option) *CacheStore {
	cfg := Opts{TTL: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("session.NewCacheStore: creating session store", "ttl", cfg.TTL)
	return &CacheStore{
		cache: gocache.New(cfg.TTL, cfg.TTL),
		ttl:   cfg.TTL,
	}
}

// Get returns the session for a call SID if it is still live.
func (s *CacheStore) Get(callSID string) (*models.CallSession, bool) {
	v, ok := s.cache.Get(callSID)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*models.CallSession)
	return sess, ok
}

// Put stores the session and resets its idle expiration.
func (s *CacheStore) Put(sess *models.CallSession) {
	sess.UpdatedAt = time.Now()
	s.cache.Set(sess.CallSID, sess, s.ttl)
}

// Delete removes the session for a call SID.
func (s *CacheStore) Delete(callSID string) {
	s.cache.Delete(callSID)
}

// Len reports the number of live sessions.
func (s *CacheStore) Len() int {
	return s.cache.ItemCount()
}
