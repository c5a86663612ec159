package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-apnea/internal/models"
)

// PostgresJudgmentsRepository 候选判定Repository实现
type PostgresJudgmentsRepository struct {
	db *sql.DB
}

// NewPostgresJudgmentsRepository 创建判定Repository
func NewPostgresJudgmentsRepository(db *sql.DB) *PostgresJudgmentsRepository {
	return &PostgresJudgmentsRepository{db: db}
}

var _ JudgmentsRepository = (*PostgresJudgmentsRepository)(nil)

// UpsertJudgment 保存判定（同一候选重复判定时覆盖，last-write-wins）
func (r *PostgresJudgmentsRepository) UpsertJudgment(ctx context.Context, jobID string, candidateID int, status string) error {
	if !models.ValidCandidateStatus(status) {
		return fmt.Errorf("%w: invalid judgment status: %s", models.ErrValidation, status)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO candidate_judgments (job_id, candidate_id, status, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id, candidate_id)
		 DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		jobID, candidateID, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert judgment: %w", err)
	}
	return nil
}

// ListJudgments 取一个 Job 的全部判定
func (r *PostgresJudgmentsRepository) ListJudgments(ctx context.Context, jobID string) ([]Judgment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT candidate_id, status, updated_at
		 FROM candidate_judgments WHERE job_id = $1 ORDER BY candidate_id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list judgments: %w", err)
	}
	defer rows.Close()

	var judgments []Judgment
	for rows.Next() {
		var j Judgment
		if err := rows.Scan(&j.CandidateID, &j.Status, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan judgment: %w", err)
		}
		judgments = append(judgments, j)
	}
	return judgments, rows.Err()
}
