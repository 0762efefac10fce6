// Package store provides storage backends for the PartsLine quote log.
//
// This file implements the PostgreSQL-backed quote store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/partsline/partsline/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a quote log backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("NewPostgresStore: failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("NewPostgresStore: PostgreSQL ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("NewPostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("NewPostgresStore: PostgreSQL quote store ready")
	return &PostgresStore{db: db}, nil
}

// AddQuote records a quote.
func (s *PostgresStore) AddQuote(q models.Quote) error {
	_, err := s.db.Exec(
		"INSERT INTO quotes (call_sid, items, total, time) VALUES ($1, $2, $3, $4)",
		q.CallSID, q.Items, q.Total, q.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

// GetQuotes returns all recorded quotes in insertion order.
func (s *PostgresStore) GetQuotes() ([]models.Quote, error) {
	rows, err := s.db.Query("SELECT call_sid, items, total, time FROM quotes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
