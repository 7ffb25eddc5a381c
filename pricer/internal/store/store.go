// Package store is the data access layer for the price agent: lookup tasks,
// append-only price history, and the time-windowed price cache. All tables
// live in one SQLite database opened by the caller (see dbopen).
package store

import "database/sql"

// Store wraps the agent database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
