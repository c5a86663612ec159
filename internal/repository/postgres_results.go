package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-apnea/internal/models"
)

// PostgresResultsRepository 解析结果Repository实现
type PostgresResultsRepository struct {
	db *sql.DB
}

// NewPostgresResultsRepository 创建结果Repository
func NewPostgresResultsRepository(db *sql.DB) *PostgresResultsRepository {
	return &PostgresResultsRepository{db: db}
}

var _ ResultsRepository = (*PostgresResultsRepository)(nil)

// SaveEvents 保存事件列表（先清空旧事件再写入，保持与最新解析一致）
func (r *PostgresResultsRepository) SaveEvents(ctx context.Context, jobID string, events []models.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM apnea_events WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	for _, e := range events {
		var confidence, level sql.NullFloat64
		switch e.Kind {
		case models.EventApnea:
			confidence = sql.NullFloat64{Float64: e.Confidence, Valid: true}
		case models.EventSnore:
			level = sql.NullFloat64{Float64: e.Level, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO apnea_events (job_id, type, start_sec, end_sec, confidence, level)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			jobID, string(e.Kind), e.Start, e.End, confidence, level,
		); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// LoadEvents 读取事件列表（按开始时间排序）
func (r *PostgresResultsRepository) LoadEvents(ctx context.Context, jobID string) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, start_sec, end_sec, confidence, level
		 FROM apnea_events WHERE job_id = $1 ORDER BY start_sec`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var kind string
		var confidence, level sql.NullFloat64
		if err := rows.Scan(&kind, &e.Start, &e.End, &confidence, &level); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		if confidence.Valid {
			e.Confidence = confidence.Float64
		}
		if level.Valid {
			e.Level = level.Float64
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveSummary 保存サマリ（upsert）
func (r *PostgresResultsRepository) SaveSummary(ctx context.Context, jobID string, s models.Summary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO apnea_summary (job_id, apnea_count, apnea_avg_duration, apnea_max_duration,
		         apnea_total_duration, recording_hours, ahi_est, snore_count, snore_total_duration, snore_index)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (job_id)
		 DO UPDATE SET apnea_count = EXCLUDED.apnea_count,
		               apnea_avg_duration = EXCLUDED.apnea_avg_duration,
		               apnea_max_duration = EXCLUDED.apnea_max_duration,
		               apnea_total_duration = EXCLUDED.apnea_total_duration,
		               recording_hours = EXCLUDED.recording_hours,
		               ahi_est = EXCLUDED.ahi_est,
		               snore_count = EXCLUDED.snore_count,
		               snore_total_duration = EXCLUDED.snore_total_duration,
		               snore_index = EXCLUDED.snore_index`,
		jobID, s.ApneaCount, s.ApneaAvgDuration, s.ApneaMaxDuration,
		s.ApneaTotalDuration, s.RecordingHours, s.AHIEstimate,
		s.SnoreCount, s.SnoreTotalDuration, s.SnoreIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// LoadSummary 读取サマリ
func (r *PostgresResultsRepository) LoadSummary(ctx context.Context, jobID string) (*models.Summary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT apnea_count, apnea_avg_duration, apnea_max_duration, apnea_total_duration,
		        recording_hours, ahi_est, snore_count, snore_total_duration, snore_index
		 FROM apnea_summary WHERE job_id = $1`,
		jobID,
	)

	var s models.Summary
	err := row.Scan(&s.ApneaCount, &s.ApneaAvgDuration, &s.ApneaMaxDuration, &s.ApneaTotalDuration,
		&s.RecordingHours, &s.AHIEstimate, &s.SnoreCount, &s.SnoreTotalDuration, &s.SnoreIndex)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: summary for job %s", models.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	return &s, nil
}
