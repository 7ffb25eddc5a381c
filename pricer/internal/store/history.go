package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsertPriceHistory appends a price observation. Returns false when an
// identical (partnumber, brand, source, price) row was already recorded on
// the same UTC day. Repeated lookups within a day must not pile up noise.
func (s *Store) InsertPriceHistory(ctx context.Context, e *PriceHistoryEntry) (bool, error) {
	if e.RecordedAt == 0 {
		e.RecordedAt = time.Now().UnixMilli()
	}
	dayStart := time.UnixMilli(e.RecordedAt).UTC().Truncate(24 * time.Hour).UnixMilli()
	dayEnd := dayStart + 24*time.Hour.Milliseconds()

	var existing int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM price_history
		WHERE partnumber = ? AND brand = ? AND source = ? AND price = ?
		  AND recorded_at >= ? AND recorded_at < ?`,
		e.PartNumber, e.Brand, e.Source, e.Price, dayStart, dayEnd,
	).Scan(&existing)
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO price_history (id, partnumber, brand, source, price, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PartNumber, e.Brand, e.Source, e.Price, e.RecordedAt,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPriceHistory returns observations for a part number, newest first.
func (s *Store) ListPriceHistory(ctx context.Context, partnumber string) ([]*PriceHistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, partnumber, brand, source, price, recorded_at
		FROM price_history WHERE partnumber = ?
		ORDER BY recorded_at DESC`, partnumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*PriceHistoryEntry
	for rows.Next() {
		e := &PriceHistoryEntry{}
		if err := rows.Scan(&e.ID, &e.PartNumber, &e.Brand, &e.Source, &e.Price, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
