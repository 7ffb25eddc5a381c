package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LookupCachedPrice returns the most recent cache row for the key written
// within the freshness window, or nil, nil when none qualifies. Staleness is
// decided here at read time: stale rows simply stop matching, no sweeper.
func (s *Store) LookupCachedPrice(ctx context.Context, partnumber, brand, source string, window time.Duration) (*CachedPrice, error) {
	cutoff := time.Now().Add(-window).UnixMilli()

	c := &CachedPrice{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT partnumber, brand, source, price, url, cached_at
		FROM price_cache
		WHERE partnumber = ? AND brand = ? AND source = ? AND cached_at > ?
		ORDER BY cached_at DESC LIMIT 1`,
		partnumber, brand, source, cutoff,
	).Scan(&c.PartNumber, &c.Brand, &c.Source, &c.Price, &c.URL, &c.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// InsertCachedPrice appends a cache row (write-through after a successful
// extraction). Duplicate inserts within one window are benign; lookups take
// the newest row.
func (s *Store) InsertCachedPrice(ctx context.Context, c *CachedPrice) error {
	if c.CachedAt == 0 {
		c.CachedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO price_cache (id, partnumber, brand, source, price, url, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.Must(uuid.NewV7()).String(), c.PartNumber, c.Brand, c.Source, c.Price, c.URL, c.CachedAt,
	)
	return err
}
