package repository

import (
	"database/sql"
	"fmt"
)

// EnsureSchema 建表（幂等）
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS apnea_jobs (
			job_id TEXT PRIMARY KEY,
			name TEXT,
			file_path TEXT NOT NULL,
			file_size BIGINT,
			created_at TIMESTAMPTZ NOT NULL,
			version TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			duration_sec DOUBLE PRECISION DEFAULT 0,
			recording_start_datetime TEXT,
			time_display_mode TEXT DEFAULT 'relative'
		)`,
		`CREATE TABLE IF NOT EXISTS apnea_events (
			id BIGSERIAL PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES apnea_jobs(job_id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			start_sec DOUBLE PRECISION NOT NULL,
			end_sec DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION,
			level DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS apnea_summary (
			job_id TEXT PRIMARY KEY REFERENCES apnea_jobs(job_id) ON DELETE CASCADE,
			apnea_count INTEGER,
			apnea_avg_duration DOUBLE PRECISION,
			apnea_max_duration DOUBLE PRECISION,
			apnea_total_duration DOUBLE PRECISION,
			recording_hours DOUBLE PRECISION,
			ahi_est DOUBLE PRECISION,
			snore_count INTEGER,
			snore_total_duration DOUBLE PRECISION,
			snore_index DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS candidate_judgments (
			job_id TEXT NOT NULL REFERENCES apnea_jobs(job_id) ON DELETE CASCADE,
			candidate_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (job_id, candidate_id)
		)`,
		`CREATE TABLE IF NOT EXISTS calibration_params (
			job_id TEXT PRIMARY KEY REFERENCES apnea_jobs(job_id) ON DELETE CASCADE,
			silence_threshold DOUBLE PRECISION NOT NULL,
			resume_multiplier DOUBLE PRECISION NOT NULL,
			marker_count INTEGER NOT NULL,
			silence_values TEXT,
			resume_peaks TEXT,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_apnea_events_job ON apnea_events(job_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
