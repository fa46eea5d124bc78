package perception

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Calibration is the persisted threshold state of one predicate.
type Calibration struct {
	PredicateID string    `json:"predicate_id"`
	Threshold   int       `json:"threshold"`
	Solved      bool      `json:"solved"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ThresholdStore persists calibration across runs.
type ThresholdStore interface {
	Load(ctx context.Context) ([]Calibration, error)
	Save(ctx context.Context, c Calibration) error
}

// SQLiteStore implements ThresholdStore over the calibrations table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an already-migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns every stored calibration ordered by predicate.
func (s *SQLiteStore) Load(ctx context.Context) ([]Calibration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT predicate_id, threshold, solved, updated_at FROM calibrations ORDER BY predicate_id`)
	if err != nil {
		return nil, fmt.Errorf("querying calibrations: %w", err)
	}
	defer rows.Close()

	var out []Calibration
	for rows.Next() {
		var c Calibration
		var solved int
		var updated string
		if err := rows.Scan(&c.PredicateID, &c.Threshold, &solved, &updated); err != nil {
			return nil, fmt.Errorf("scanning calibration: %w", err)
		}
		c.Solved = solved == 1
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updated) //nolint:errcheck // Written by Save
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calibrations: %w", err)
	}
	return out, nil
}

// Save upserts c, stamping UpdatedAt.
func (s *SQLiteStore) Save(ctx context.Context, c Calibration) error {
	solved := 0
	if c.Solved {
		solved = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calibrations (predicate_id, threshold, solved, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(predicate_id) DO UPDATE SET
			threshold = excluded.threshold,
			solved = excluded.solved,
			updated_at = excluded.updated_at`,
		c.PredicateID, c.Threshold, solved, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving calibration %s: %w", c.PredicateID, err)
	}
	return nil
}
