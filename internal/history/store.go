package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/microwave/internal/cook"
)

// DefaultLimit caps List when no positive limit is given.
const DefaultLimit = 50

// ErrInvalidEntry is returned by Record for an entry that cannot be stored.
var ErrInvalidEntry = errors.New("history: invalid entry")

// Entry is one finished cooking session.
type Entry struct {
	ID        string
	Power     int // watts
	Duration  int // seconds requested
	Remaining int // seconds left when it ended
	Outcome   cook.Outcome
	StartedAt time.Time
	EndedAt   time.Time
}

// Elapsed returns how long the tube actually ran.
func (e Entry) Elapsed() time.Duration {
	return time.Duration(e.Duration-e.Remaining) * time.Second
}

// Store reads and writes cooking_sessions.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database. Tests pass a go-sqlmock handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record inserts e. A missing ID is generated and a zero EndedAt set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Outcome != cook.OutcomeCompleted && e.Outcome != cook.OutcomeCancelled {
		return fmt.Errorf("outcome %q: %w", e.Outcome, ErrInvalidEntry)
	}
	if e.Power <= 0 || e.Duration <= 0 || e.Remaining < 0 || e.Remaining > e.Duration {
		return fmt.Errorf("power %d duration %d remaining %d: %w", e.Power, e.Duration, e.Remaining, ErrInvalidEntry)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EndedAt.IsZero() {
		e.EndedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooking_sessions (id, power, duration_s, remaining_s, outcome, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Power,
		e.Duration,
		e.Remaining,
		string(e.Outcome),
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit sessions, most recently ended first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, power, duration_s, remaining_s, outcome, started_at, ended_at
		FROM cooking_sessions
		ORDER BY ended_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                  Entry
			outcome            string
			startedAt, endedAt string
		)
		if err := rows.Scan(&e.ID, &e.Power, &e.Duration, &e.Remaining, &outcome, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.Outcome = cook.Outcome(outcome)
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at of %s: %w", e.ID, err)
		}
		if e.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, fmt.Errorf("parse ended_at of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
