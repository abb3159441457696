package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

const defaultListLimit = 100

// SQLiteJournal is the single-file journal for deployments without PostgreSQL.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLiteJournal opens (creating if needed) the journal database at path.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	j := &SQLiteJournal{db: db}
	if err := j.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (r *SQLiteJournal) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			equipment_id TEXT NOT NULL,
			inspector_name TEXT NOT NULL,
			result TEXT NOT NULL,
			accepted INTEGER NOT NULL,
			payload TEXT NOT NULL,
			attempted_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_attempted_at ON submissions(attempted_at);`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("failed to init sqlite journal: %w", err)
		}
	}
	return nil
}

func (r *SQLiteJournal) Close() error {
	return r.db.Close()
}

func (r *SQLiteJournal) Record(ctx context.Context, s *domain.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions(id, session_id, equipment_id, inspector_name, result, accepted, payload, attempted_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		s.ID.String(), s.SessionID, s.EquipmentID, s.InspectorName, string(s.Result), s.Accepted, string(s.Payload), s.AttemptedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *SQLiteJournal) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, equipment_id, inspector_name, result, accepted, payload, attempted_at
		 FROM submissions ORDER BY attempted_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		var (
			s       domain.Submission
			id      string
			result  string
			payload string
			at      time.Time
		)
		if err := rows.Scan(&id, &s.SessionID, &s.EquipmentID, &s.InspectorName, &result, &s.Accepted, &payload, &at); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad submission id %q: %w", id, err)
		}
		s.Result = domain.Result(result)
		s.Payload = []byte(payload)
		s.AttemptedAt = at
		out = append(out, s)
	}
	return out, rows.Err()
}
