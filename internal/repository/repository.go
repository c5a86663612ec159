package repository

import (
	"context"
	"time"

	"wisefido-apnea/internal/models"
)

// JobsRepository 解析任务仓库
type JobsRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, limit int) ([]models.Job, error)
	UpdateJobStatus(ctx context.Context, jobID, status string, durationSec float64) error
	UpdateJobName(ctx context.Context, jobID, name string) error
	UpdateRecordingDatetime(ctx context.Context, jobID, datetime string) error
	UpdateTimeDisplayMode(ctx context.Context, jobID, mode string) error
	DeleteJob(ctx context.Context, jobID string) error
}

// ResultsRepository 解析结果仓库（事件 + サマリ）
type ResultsRepository interface {
	SaveEvents(ctx context.Context, jobID string, events []models.Event) error
	LoadEvents(ctx context.Context, jobID string) ([]models.Event, error)
	SaveSummary(ctx context.Context, jobID string, summary models.Summary) error
	LoadSummary(ctx context.Context, jobID string) (*models.Summary, error)
}

// Judgment 一条候选判定记录
type Judgment struct {
	CandidateID int       `json:"candidate_id"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JudgmentsRepository 候选判定仓库
// 同一 (job_id, candidate_id) 的并发写入按 last-write-wins 处理
type JudgmentsRepository interface {
	UpsertJudgment(ctx context.Context, jobID string, candidateID int, status string) error
	ListJudgments(ctx context.Context, jobID string) ([]Judgment, error)
}

// CalibrationRepository 校准参数仓库
// 每次保存整体替换该 Job 的旧参数
type CalibrationRepository interface {
	SaveParameters(ctx context.Context, jobID string, params models.CalibrationParameters) error
	LoadParameters(ctx context.Context, jobID string) (*models.CalibrationParameters, error)
}
