package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotCancellable is returned by CancelTask when the task has already
// reached a terminal status.
var ErrNotCancellable = errors.New("store: task is not cancellable")

// CreateTask inserts a new PENDING task. A UUIDv7 id is assigned when empty.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO tasks (id, partnumber, search_brand, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.PartNumber, t.SearchBrand, t.Status, t.CreatedAt,
	)
	return err
}

// GetTask retrieves a task by id. Returns nil, nil when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.DB.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListTasks returns all tasks, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]*Task, error) {
	rows, err := s.DB.QueryContext(ctx, taskSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimOldestPending atomically picks the oldest PENDING task, marks it
// RUNNING with a started timestamp, and returns it. Returns nil, nil when no
// task is pending. The single UPDATE makes the claim safe against concurrent
// readers without any in-process locking.
func (s *Store) ClaimOldestPending(ctx context.Context) (*Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = ?, started_at = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = ?
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING `+taskColumns,
		StatusRunning, time.Now().UnixMilli(), StatusPending,
	)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// CompleteTask transitions a RUNNING task to DONE and writes the aggregate
// result plus every per-source minimum.
func (s *Store) CompleteTask(ctx context.Context, id string, res *TaskResult) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE tasks SET
			status = ?,
			min_price = ?, avg_price = ?,
			zzap_min_price = ?, stparts_min_price = ?, trast_min_price = ?,
			autovid_min_price = ?, autotrade_min_price = ?,
			brand = ?, result_url = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		StatusDone,
		res.MinPrice, res.AvgPrice,
		sourceMin(res.SourceMin, "zzap"), sourceMin(res.SourceMin, "stparts"),
		sourceMin(res.SourceMin, "trast"), sourceMin(res.SourceMin, "autovid"),
		sourceMin(res.SourceMin, "autotrade"),
		res.Brand, res.ResultURL, time.Now().UnixMilli(),
		id, StatusRunning,
	)
	return err
}

// FailTask transitions a RUNNING task to ERROR with a message. No price
// fields are touched.
func (s *Store) FailTask(ctx context.Context, id, message string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE tasks SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		StatusError, message, time.Now().UnixMilli(), id, StatusRunning,
	)
	return err
}

// CancelTask force-transitions a PENDING or RUNNING task to ERROR with the
// message "Cancelled by user". A task already in a terminal status returns
// ErrNotCancellable; an unknown id returns sql.ErrNoRows.
func (s *Store) CancelTask(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE tasks SET status = ?, error_message = 'Cancelled by user', completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusError, time.Now().UnixMilli(), id, StatusPending, StatusRunning,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return sql.ErrNoRows
		}
		return fmt.Errorf("%w: status %s", ErrNotCancellable, t.Status)
	}
	return nil
}

// DistinctBrands returns the brands previously resolved for a part number
// across completed tasks.
func (s *Store) DistinctBrands(ctx context.Context, partnumber string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT DISTINCT brand FROM tasks
		WHERE LOWER(partnumber) = LOWER(?) AND brand != ''`, partnumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

const taskColumns = `id, partnumber, search_brand, status, min_price, avg_price,
	zzap_min_price, stparts_min_price, trast_min_price, autovid_min_price,
	autotrade_min_price, brand, result_url, error_message,
	created_at, started_at, completed_at`

const taskSelect = `SELECT ` + taskColumns + ` FROM tasks`

// sourceMin returns the per-source minimum as a nullable SQL value.
func sourceMin(m map[string]float64, source string) any {
	if v, ok := m[source]; ok {
		return v
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var minPrice, avgPrice sql.NullFloat64
	var perSource [5]sql.NullFloat64
	var startedAt, completedAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.PartNumber, &t.SearchBrand, &t.Status, &minPrice, &avgPrice,
		&perSource[0], &perSource[1], &perSource[2], &perSource[3], &perSource[4],
		&t.Brand, &t.ResultURL, &t.ErrorMessage,
		&t.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if minPrice.Valid {
		t.MinPrice = &minPrice.Float64
	}
	if avgPrice.Valid {
		t.AvgPrice = &avgPrice.Float64
	}
	for i, src := range Sources {
		if perSource[i].Valid {
			if t.SourceMin == nil {
				t.SourceMin = make(map[string]float64, len(Sources))
			}
			t.SourceMin[src] = perSource[i].Float64
		}
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Int64
	}
	return t, nil
}
