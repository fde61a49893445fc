package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

const eventColumns = `id, session_id, seq, timestamp, event_type, actor_id, elapsed, payload`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db  *sql.DB
	seq atomic.Int64
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Append stores event. A zero Seq is replaced by the next local sequence number.
func (r *SQLiteEventRepository) Append(ctx context.Context, event Event) error {
	if event.Seq == 0 {
		event.Seq = r.seq.Add(1)
	}
	payload := string(event.Payload)
	if payload == "" {
		payload = "null"
	}

	query := `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Seq, event.Timestamp, event.EventType,
		event.ActorID, event.Elapsed, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload string
		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Seq, &e.Timestamp, &e.EventType,
			&e.ActorID, &e.Elapsed, &payload,
		)
		if err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySession(ctx context.Context, sessionID string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, sessionID, eventType string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Start(ctx context.Context, sessionID, locale string, startedAt time.Time) error {
	query := `INSERT INTO sessions (session_id, locale, started_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, locale, startedAt); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) Finish(ctx context.Context, sessionID, outcome string, elapsed float64, endedAt time.Time) error {
	query := `UPDATE sessions SET outcome = ?, elapsed = ?, ended_at = ? WHERE session_id = ? AND outcome = ''`
	res, err := r.db.ExecContext(ctx, query, outcome, elapsed, endedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.New(apperrors.CodeNotFound, "no open session "+sessionID)
	}
	return nil
}

func scanSession(scan func(dest ...interface{}) error) (SessionRecord, error) {
	var s SessionRecord
	var ended sql.NullTime
	if err := scan(&s.ID, &s.Locale, &s.StartedAt, &ended, &s.Outcome, &s.Elapsed); err != nil {
		return SessionRecord{}, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

func (r *SQLiteSessionRepository) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	query := `SELECT session_id, locale, started_at, ended_at, outcome, elapsed FROM sessions WHERE session_id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, "session "+sessionID+" not found", err)
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSessionRepository) Recent(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT session_id, locale, started_at, ended_at, outcome, elapsed FROM sessions ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
