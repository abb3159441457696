package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// PostgresJournal stores submit attempts in the submissions table
// (migrations/001_create_submissions.up.sql).
type PostgresJournal struct {
	db *pgxpool.Pool
}

func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (r *PostgresJournal) Record(ctx context.Context, s *domain.Submission) error {
	query := `INSERT INTO submissions (id, session_id, equipment_id, inspector_name, result, accepted, payload, attempted_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query, s.ID, s.SessionID, s.EquipmentID, s.InspectorName, string(s.Result), s.Accepted, s.Payload, s.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *PostgresJournal) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT id, session_id, equipment_id, inspector_name, result, accepted, payload, attempted_at
              FROM submissions ORDER BY attempted_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		var s domain.Submission
		var result string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.EquipmentID, &s.InspectorName, &result, &s.Accepted, &s.Payload, &s.AttemptedAt); err != nil {
			return nil, err
		}
		s.Result = domain.Result(result)
		out = append(out, s)
	}
	return out, rows.Err()
}
