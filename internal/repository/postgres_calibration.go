package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-apnea/internal/models"
)

// PostgresCalibrationRepository 校准参数Repository实现
type PostgresCalibrationRepository struct {
	db *sql.DB
}

// NewPostgresCalibrationRepository 创建校准参数Repository
func NewPostgresCalibrationRepository(db *sql.DB) *PostgresCalibrationRepository {
	return &PostgresCalibrationRepository{db: db}
}

var _ CalibrationRepository = (*PostgresCalibrationRepository)(nil)

// SaveParameters 保存参数（整体替换该 Job 的旧参数）
func (r *PostgresCalibrationRepository) SaveParameters(ctx context.Context, jobID string, params models.CalibrationParameters) error {
	silenceValues, err := json.Marshal(params.SilenceValues)
	if err != nil {
		return fmt.Errorf("failed to marshal silence values: %w", err)
	}
	resumePeaks, err := json.Marshal(params.ResumePeaks)
	if err != nil {
		return fmt.Errorf("failed to marshal resume peaks: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO calibration_params (job_id, silence_threshold, resume_multiplier, marker_count,
		         silence_values, resume_peaks, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (job_id)
		 DO UPDATE SET silence_threshold = EXCLUDED.silence_threshold,
		               resume_multiplier = EXCLUDED.resume_multiplier,
		               marker_count = EXCLUDED.marker_count,
		               silence_values = EXCLUDED.silence_values,
		               resume_peaks = EXCLUDED.resume_peaks,
		               updated_at = EXCLUDED.updated_at`,
		jobID, params.SilenceThreshold, params.ResumeMultiplier, params.MarkerCount,
		string(silenceValues), string(resumePeaks), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save calibration params: %w", err)
	}
	return nil
}

// LoadParameters 读取参数
func (r *PostgresCalibrationRepository) LoadParameters(ctx context.Context, jobID string) (*models.CalibrationParameters, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT silence_threshold, resume_multiplier, marker_count,
		        COALESCE(silence_values, '[]'), COALESCE(resume_peaks, '[]')
		 FROM calibration_params WHERE job_id = $1`,
		jobID,
	)

	var params models.CalibrationParameters
	var silenceValues, resumePeaks string
	err := row.Scan(&params.SilenceThreshold, &params.ResumeMultiplier, &params.MarkerCount,
		&silenceValues, &resumePeaks)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: calibration params for job %s", models.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration params: %w", err)
	}

	if err := json.Unmarshal([]byte(silenceValues), &params.SilenceValues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal silence values: %w", err)
	}
	if err := json.Unmarshal([]byte(resumePeaks), &params.ResumePeaks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume peaks: %w", err)
	}
	return &params, nil
}
