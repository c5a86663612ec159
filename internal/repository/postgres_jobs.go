package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-apnea/internal/models"
)

// PostgresJobsRepository 解析任务Repository实现
type PostgresJobsRepository struct {
	db *sql.DB
}

// NewPostgresJobsRepository 创建任务Repository
func NewPostgresJobsRepository(db *sql.DB) *PostgresJobsRepository {
	return &PostgresJobsRepository{db: db}
}

// 确保实现了接口
var _ JobsRepository = (*PostgresJobsRepository)(nil)

// CreateJob 新建任务
func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO apnea_jobs (job_id, name, file_path, file_size, created_at, version, status, duration_sec, time_display_mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.JobID, job.Name, job.FilePath, job.FileSize, job.CreatedAt,
		job.Version, job.Status, job.DurationSec, models.TimeDisplayRelative,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob 按 ID 取任务
func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT job_id, COALESCE(name, ''), file_path, COALESCE(file_size, 0), created_at,
		        version, status, COALESCE(duration_sec, 0), recording_start_datetime,
		        COALESCE(time_display_mode, 'relative')
		 FROM apnea_jobs WHERE job_id = $1`,
		jobID,
	)

	var job models.Job
	err := row.Scan(&job.JobID, &job.Name, &job.FilePath, &job.FileSize, &job.CreatedAt,
		&job.Version, &job.Status, &job.DurationSec, &job.RecordingStartDatetime,
		&job.TimeDisplayMode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: job %s", models.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs 按创建时间倒序列出任务
func (r *PostgresJobsRepository) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT job_id, COALESCE(name, ''), file_path, COALESCE(file_size, 0), created_at,
		        version, status, COALESCE(duration_sec, 0), recording_start_datetime,
		        COALESCE(time_display_mode, 'relative')
		 FROM apnea_jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(&job.JobID, &job.Name, &job.FilePath, &job.FileSize, &job.CreatedAt,
			&job.Version, &job.Status, &job.DurationSec, &job.RecordingStartDatetime,
			&job.TimeDisplayMode); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus 更新状态与时长
func (r *PostgresJobsRepository) UpdateJobStatus(ctx context.Context, jobID, status string, durationSec float64) error {
	return r.execOne(ctx,
		`UPDATE apnea_jobs SET status = $2, duration_sec = $3 WHERE job_id = $1`,
		jobID, status, durationSec,
	)
}

// UpdateJobName 重命名任务
func (r *PostgresJobsRepository) UpdateJobName(ctx context.Context, jobID, name string) error {
	return r.execOne(ctx,
		`UPDATE apnea_jobs SET name = $2 WHERE job_id = $1`,
		jobID, name,
	)
}

// UpdateRecordingDatetime 设置拍摄开始时刻（ISO8601）
func (r *PostgresJobsRepository) UpdateRecordingDatetime(ctx context.Context, jobID, datetime string) error {
	return r.execOne(ctx,
		`UPDATE apnea_jobs SET recording_start_datetime = $2 WHERE job_id = $1`,
		jobID, datetime,
	)
}

// UpdateTimeDisplayMode 切换时间显示模式
func (r *PostgresJobsRepository) UpdateTimeDisplayMode(ctx context.Context, jobID, mode string) error {
	if mode != models.TimeDisplayRelative && mode != models.TimeDisplayAbsolute {
		return fmt.Errorf("%w: invalid display mode: %s", models.ErrValidation, mode)
	}
	return r.execOne(ctx,
		`UPDATE apnea_jobs SET time_display_mode = $2 WHERE job_id = $1`,
		jobID, mode,
	)
}

// DeleteJob 删除任务（级联删除事件/摘要/判定/校准参数）
func (r *PostgresJobsRepository) DeleteJob(ctx context.Context, jobID string) error {
	return r.execOne(ctx, `DELETE FROM apnea_jobs WHERE job_id = $1`, jobID)
}

// execOne 执行必须恰好影响一行的语句，零行映射为 ErrNotFound
func (r *PostgresJobsRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %v", models.ErrNotFound, args[0])
	}
	return nil
}
