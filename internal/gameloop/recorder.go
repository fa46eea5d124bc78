package gameloop

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRecorder implements MatchRecorder over the matches table.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates a recorder on an already-migrated database.
func NewSQLiteRecorder(db *sql.DB) *SQLiteRecorder {
	return &SQLiteRecorder{db: db}
}

// Record inserts m. A match ID is written once; recording it again fails.
func (r *SQLiteRecorder) Record(ctx context.Context, m Match) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (id, role, character, started_at, ended_at, outcome, disconnects)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Role, m.Character,
		m.StartedAt.UTC().Format(timeLayout),
		m.EndedAt.UTC().Format(timeLayout),
		string(m.Outcome), m.Disconnects,
	)
	if err != nil {
		return fmt.Errorf("recording match %s: %w", m.ID, err)
	}
	return nil
}

// Recent returns up to limit matches, newest first.
//
// Parameters:
//   - ctx: Query context
//   - limit: Maximum rows; values < 1 return nothing
//
// Returns:
//   - []Match: Matches ordered by started_at descending
//   - error: If the query fails
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Match, error) {
	if limit < 1 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, character, started_at, ended_at, outcome, disconnects
		FROM matches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var started, ended, outcome string
		if err := rows.Scan(&m.ID, &m.Role, &m.Character, &started, &ended, &outcome, &m.Disconnects); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.StartedAt, _ = time.Parse(timeLayout, started) //nolint:errcheck // Written by Record
		m.EndedAt, _ = time.Parse(timeLayout, ended)     //nolint:errcheck // Written by Record
		m.Outcome = Outcome(outcome)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return out, nil
}

// Summary counts matches by outcome.
func (r *SQLiteRecorder) Summary(ctx context.Context) (map[Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM matches GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("summarising matches: %w", err)
	}
	defer rows.Close()

	out := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out[Outcome(outcome)] = n
	}
	return out, rows.Err()
}
