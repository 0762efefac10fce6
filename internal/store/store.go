// Package store provides storage backends for the PartsLine quote log.
//
// Call sessions are deliberately not persisted; only completed quotes
// survive the process. The default backend is in-memory, with SQLite and
// PostgreSQL backends selected by DSN.
package store

import (
	"strings"
	"sync"

	"github.com/partsline/partsline/internal/models"
)

// Store defines the persistence surface for completed quotes.
type Store interface {
	// AddQuote records a quote produced by a completed call.
	AddQuote(q models.Quote) error

	// GetQuotes returns all recorded quotes in insertion order.
	GetQuotes() ([]models.Quote, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Anything that
// does not look like a PostgreSQL URL or key-value DSN is treated as an
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore builds the quote store selected by the configured DSN: in-memory
// when no DSN is set, otherwise SQLite or PostgreSQL by DSN shape.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}

// InMemoryStore is a concurrency-safe in-memory quote log.
type InMemoryStore struct {
	mu     sync.Mutex
	quotes []models.Quote
}

// NewInMemoryStore creates an empty in-memory quote log.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AddQuote records a quote.
func (s *InMemoryStore) AddQuote(q models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, q)
	return nil
}

// GetQuotes returns a copy of all recorded quotes.
func (s *InMemoryStore) GetQuotes() ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Quote, len(s.quotes))
	copy(out, s.quotes)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
