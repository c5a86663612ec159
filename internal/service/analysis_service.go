// Package service 编排上传、特征提取、解析流水线与持久化
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-apnea/internal/analyzer"
	"wisefido-apnea/internal/calibration"
	"wisefido-apnea/internal/detector"
	"wisefido-apnea/internal/extractor"
	"wisefido-apnea/internal/fusion"
	"wisefido-apnea/internal/metrics"
	"wisefido-apnea/internal/models"
	"wisefido-apnea/internal/repository"
	"wisefido-apnea/internal/store"
)

// Job 状态
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// 提取参数：能量帧率约 20fps（采样率 16kHz / hop 800），体动 5fps
const (
	extractSampleRate = 16000
	extractMotionFPS  = 5.0
)

// AnalysisService 无呼吸解析服务
type AnalysisService struct {
	jobs        repository.JobsRepository
	results     repository.ResultsRepository
	judgments   repository.JudgmentsRepository
	calibration repository.CalibrationRepository
	series      *store.SeriesCache
	candidates  *store.CandidateCache
	extractor   *extractor.Client
	analyzer    *analyzer.Analyzer
	uploadsDir  string
	logger      *zap.Logger
}

// NewAnalysisService 创建服务
func NewAnalysisService(
	jobs repository.JobsRepository,
	results repository.ResultsRepository,
	judgments repository.JudgmentsRepository,
	calibrationRepo repository.CalibrationRepository,
	series *store.SeriesCache,
	candidates *store.CandidateCache,
	extractorClient *extractor.Client,
	pipeline *analyzer.Analyzer,
	uploadsDir string,
	logger *zap.Logger,
) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		jobs:        jobs,
		results:     results,
		judgments:   judgments,
		calibration: calibrationRepo,
		series:      series,
		candidates:  candidates,
		extractor:   extractorClient,
		analyzer:    pipeline,
		uploadsDir:  uploadsDir,
		logger:      logger,
	}
}

// AnalyzeUpload 接收上传的录音文件并执行完整解析
//
// 文件落盘 → 特征提取 → 流水线解析 → 事件/サマリ入库 → 序列入缓存。
// 提取或解析失败时 Job 保留为 failed 状态，文件不删除以便重试
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, filename string, file io.Reader) (*models.AnalysisResults, error) {
	category, err := extractor.CategoryForFilename(filename)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	filePath, size, err := s.saveUpload(jobID, filename, file)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		JobID:           jobID,
		Name:            filename,
		FilePath:        filePath,
		FileSize:        size,
		CreatedAt:       time.Now().UTC(),
		Version:         analyzer.Version,
		Status:          StatusProcessing,
		TimeDisplayMode: models.TimeDisplayRelative,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job created",
		zap.String("job_id", jobID),
		zap.String("category", category),
		zap.Int64("file_size", size),
	)

	features, err := s.extractor.ExtractFeatures(extractor.FeatureRequest{
		FilePath:   filePath,
		Category:   category,
		SampleRate: extractSampleRate,
		MotionFPS:  extractMotionFPS,
	})
	if err != nil {
		_ = s.jobs.UpdateJobStatus(ctx, jobID, StatusFailed, 0)
		return nil, err
	}

	results := s.analyzer.Analyze(analyzer.Input{
		DurationSec:   features.DurationSec,
		SampleRate:    features.SampleRate,
		Energy:        features.Energy,
		BreathBand:    features.BreathBand,
		SnoreBand:     features.SnoreBand,
		CycleStrength: features.CycleStrength,
		Motion:        features.Motion,
	})
	results.JobID = jobID

	if err := s.persistResults(ctx, jobID, features, &results); err != nil {
		_ = s.jobs.UpdateJobStatus(ctx, jobID, StatusFailed, features.DurationSec)
		return nil, err
	}
	if err := s.jobs.UpdateJobStatus(ctx, jobID, StatusDone, features.DurationSec); err != nil {
		return nil, err
	}
	return &results, nil
}

func (s *AnalysisService) saveUpload(jobID, filename string, file io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	filePath := filepath.Join(s.uploadsDir, jobID+"_"+filepath.Base(filename))
	dst, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()
	size, err := io.Copy(dst, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to save upload: %w", err)
	}
	return filePath, size, nil
}

func (s *AnalysisService) persistResults(ctx context.Context, jobID string, features *extractor.FeatureResponse, results *models.AnalysisResults) error {
	if err := s.results.SaveEvents(ctx, jobID, results.Events); err != nil {
		return err
	}
	if err := s.results.SaveSummary(ctx, jobID, results.Summary); err != nil {
		return err
	}

	// 校准/候选/AHI 之后都从缓存重新读取这些序列
	seriesByKind := map[string]models.TimeSeries{
		store.SeriesEnergy:        features.Energy,
		store.SeriesBreathBand:    features.BreathBand,
		store.SeriesSnoreBand:     features.SnoreBand,
		store.SeriesCycleStrength: features.CycleStrength,
		store.SeriesMotion:        features.Motion,
		store.SeriesWaveform:      results.WaveformDownsampled,
	}
	for kind, series := range seriesByKind {
		if err := s.series.Save(ctx, jobID, kind, series); err != nil {
			return err
		}
	}
	return nil
}

// CalibrationTrace 校准标记用的完整能量曲线
// 不降采样：操作员在原始分辨率上标记无呼吸区间
type CalibrationTrace struct {
	JobID       string            `json:"job_id"`
	DurationSec float64           `json:"duration_sec"`
	Energy      models.TimeSeries `json:"energy"`
}

// CalibrateUpload 接收校准用录音，只提取能量序列并返回完整曲线
// 跳过帯域/体动计算，之后的标记学习和候选抽取都基于这里缓存的序列
func (s *AnalysisService) CalibrateUpload(ctx context.Context, filename string, file io.Reader) (*CalibrationTrace, error) {
	category, err := extractor.CategoryForFilename(filename)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	filePath, size, err := s.saveUpload(jobID, filename, file)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		JobID:           jobID,
		Name:            filename,
		FilePath:        filePath,
		FileSize:        size,
		CreatedAt:       time.Now().UTC(),
		Version:         analyzer.Version,
		Status:          StatusProcessing,
		TimeDisplayMode: models.TimeDisplayRelative,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	features, err := s.extractor.ExtractFeatures(extractor.FeatureRequest{
		FilePath:   filePath,
		Category:   category,
		SampleRate: extractSampleRate,
		EnergyOnly: true,
	})
	if err != nil {
		_ = s.jobs.UpdateJobStatus(ctx, jobID, StatusFailed, 0)
		return nil, err
	}

	if err := s.series.Save(ctx, jobID, store.SeriesEnergy, features.Energy); err != nil {
		_ = s.jobs.UpdateJobStatus(ctx, jobID, StatusFailed, features.DurationSec)
		return nil, err
	}
	if err := s.jobs.UpdateJobStatus(ctx, jobID, StatusDone, features.DurationSec); err != nil {
		return nil, err
	}

	s.logger.Info("calibration trace extracted",
		zap.String("job_id", jobID),
		zap.Float64("duration_sec", features.DurationSec),
		zap.Int("rms_frames", features.Energy.Len()),
	)

	return &CalibrationTrace{
		JobID:       jobID,
		DurationSec: features.DurationSec,
		Energy:      features.Energy,
	}, nil
}

// GetResults 读取一次解析的完整结果
func (s *AnalysisService) GetResults(ctx context.Context, jobID string) (*models.AnalysisResults, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	events, err := s.results.LoadEvents(ctx, jobID)
	if err != nil {
		return nil, err
	}
	summary, err := s.results.LoadSummary(ctx, jobID)
	if err != nil {
		return nil, err
	}
	waveform, err := s.series.Load(ctx, jobID, store.SeriesWaveform)
	if err != nil {
		return nil, err
	}
	return &models.AnalysisResults{
		JobID:               jobID,
		DurationSec:         job.DurationSec,
		WaveformDownsampled: waveform,
		Events:              events,
		Summary:             *summary,
		Version:             job.Version,
	}, nil
}

// GetJob 读取任务
func (s *AnalysisService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// ListJobs 列出任务
func (s *AnalysisService) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	return s.jobs.ListJobs(ctx, limit)
}

// RenameJob 重命名任务
func (s *AnalysisService) RenameJob(ctx context.Context, jobID, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", models.ErrValidation)
	}
	return s.jobs.UpdateJobName(ctx, jobID, name)
}

// UpdateRecordingTime 设置拍摄开始时刻（ISO8601）
func (s *AnalysisService) UpdateRecordingTime(ctx context.Context, jobID, datetime string) error {
	if _, err := time.Parse(time.RFC3339, datetime); err != nil {
		return fmt.Errorf("%w: invalid datetime: %s", models.ErrValidation, datetime)
	}
	return s.jobs.UpdateRecordingDatetime(ctx, jobID, datetime)
}

// UpdateDisplayMode 切换时间显示模式
func (s *AnalysisService) UpdateDisplayMode(ctx context.Context, jobID, mode string) error {
	return s.jobs.UpdateTimeDisplayMode(ctx, jobID, mode)
}

// DeleteJob 删除任务与其全部派生数据
// Postgres 侧靠外键级联，缓存与上传文件在这里清理
func (s *AnalysisService) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	if err := s.series.Delete(ctx, jobID); err != nil {
		s.logger.Warn("failed to delete cached series", zap.String("job_id", jobID), zap.Error(err))
	}
	if err := s.candidates.Delete(ctx, jobID); err != nil {
		s.logger.Warn("failed to delete cached candidates", zap.String("job_id", jobID), zap.Error(err))
	}
	if job.FilePath != "" {
		if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to delete upload file", zap.String("file_path", job.FilePath), zap.Error(err))
		}
	}
	return nil
}

// CalculateCalibration 从操作员标记学习检测参数并保存
func (s *AnalysisService) CalculateCalibration(ctx context.Context, jobID string, markers []models.CalibrationMarker) (*models.CalibrationParameters, error) {
	energy, err := s.series.Load(ctx, jobID, store.SeriesEnergy)
	if err != nil {
		return nil, err
	}
	params, err := calibration.ComputeParameters(energy, markers, s.logger)
	if err != nil {
		return nil, err
	}
	if err := s.calibration.SaveParameters(ctx, jobID, params); err != nil {
		return nil, err
	}
	return &params, nil
}

// CalibrateAnalyze 用已保存的校准参数重新解析
//
// 无声/呼吸再开检测（绝对阈值）→ 体动融合 → 近接合并，
// 打鼾事件保持原有检测，结果整体覆盖旧事件与サマリ
func (s *AnalysisService) CalibrateAnalyze(ctx context.Context, jobID string) (*models.AnalysisResults, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	params, err := s.calibration.LoadParameters(ctx, jobID)
	if err != nil {
		return nil, err
	}
	energy, err := s.series.Load(ctx, jobID, store.SeriesEnergy)
	if err != nil {
		return nil, err
	}
	motion, err := s.series.Load(ctx, jobID, store.SeriesMotion)
	if err != nil {
		motion = models.TimeSeries{}
	}
	snoreBand, err := s.series.Load(ctx, jobID, store.SeriesSnoreBand)
	if err != nil {
		snoreBand = models.TimeSeries{}
	}

	cfg := analyzer.DefaultConfig()
	d := detector.NewSilenceResumeDetector(detector.DefaultSilenceResumeConfig(), s.logger)
	apneaEvents := d.DetectCalibrated(energy, *params)
	apneaEvents = fusion.RefineWithMotion(apneaEvents, motion, cfg.Motion, s.logger)
	apneaEvents = fusion.MergeNearby(apneaEvents, cfg.MergeMaxGap)
	snoreEvents := detector.DetectSnore(snoreBand, cfg.Snore)

	events := make([]models.Event, 0, len(apneaEvents)+len(snoreEvents))
	events = append(events, apneaEvents...)
	events = append(events, snoreEvents...)
	summary := metrics.Summarize(apneaEvents, snoreEvents, job.DurationSec)

	if err := s.results.SaveEvents(ctx, jobID, events); err != nil {
		return nil, err
	}
	if err := s.results.SaveSummary(ctx, jobID, summary); err != nil {
		return nil, err
	}

	waveform, err := s.series.Load(ctx, jobID, store.SeriesWaveform)
	if err != nil {
		waveform = models.TimeSeries{}
	}

	s.logger.Info("calibrated analysis completed",
		zap.String("job_id", jobID),
		zap.Int("apnea_count", summary.ApneaCount),
		zap.Float64("silence_threshold", params.SilenceThreshold),
	)

	return &models.AnalysisResults{
		JobID:               jobID,
		DurationSec:         job.DurationSec,
		WaveformDownsampled: waveform,
		Events:              events,
		Summary:             summary,
		Version:             job.Version,
	}, nil
}

// ExtractCandidates 抽取待判定候选并缓存集合
// 既有判定通过候选编号套用到新集合上
func (s *AnalysisService) ExtractCandidates(ctx context.Context, jobID string, topN int) ([]models.Candidate, error) {
	energy, err := s.series.Load(ctx, jobID, store.SeriesEnergy)
	if err != nil {
		return nil, err
	}
	candidates := calibration.ExtractCandidates(energy, topN, s.logger)
	candidates, err = s.applyJudgments(ctx, jobID, candidates)
	if err != nil {
		return nil, err
	}
	if err := s.candidates.Save(ctx, jobID, candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// ExtendCandidates 统计扩展候选集合
// 参照集合是已判定为无呼吸的候选，新候选追加进缓存的集合
func (s *AnalysisService) ExtendCandidates(ctx context.Context, jobID string, sigmaRange float64, maxCandidates int) ([]models.Candidate, *calibration.ExtensionStats, error) {
	energy, err := s.series.Load(ctx, jobID, store.SeriesEnergy)
	if err != nil {
		return nil, nil, err
	}
	existing, err := s.candidates.Load(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	var referenceIDs []int
	for _, cand := range existing {
		if cand.Status == models.CandidateApnea {
			referenceIDs = append(referenceIDs, cand.ID)
		}
	}

	additional, stats, err := calibration.ExtendCandidates(energy, existing, referenceIDs, sigmaRange, maxCandidates, s.logger)
	if err != nil {
		return nil, nil, err
	}

	combined := append(existing, additional...)
	if err := s.candidates.Save(ctx, jobID, combined); err != nil {
		return nil, nil, err
	}
	return additional, &stats, nil
}

// SaveJudgment 记录一次人工判定
// Postgres 是持久副本，缓存集合同步更新
func (s *AnalysisService) SaveJudgment(ctx context.Context, jobID string, candidateID int, status string) error {
	if err := s.judgments.UpsertJudgment(ctx, jobID, candidateID, status); err != nil {
		return err
	}
	candidates, err := s.candidates.Load(ctx, jobID)
	if err != nil {
		return err
	}
	for i := range candidates {
		if candidates[i].ID == candidateID {
			candidates[i].Status = models.CandidateStatus(status)
			break
		}
	}
	return s.candidates.Save(ctx, jobID, candidates)
}

// GetCandidates 读取当前候选集合（已套用判定）
func (s *AnalysisService) GetCandidates(ctx context.Context, jobID string) ([]models.Candidate, error) {
	candidates, err := s.candidates.Load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.applyJudgments(ctx, jobID, candidates)
}

// JudgmentSummary 汇总判定进度与无呼吸峰值统计
func (s *AnalysisService) JudgmentSummary(ctx context.Context, jobID string) (*calibration.JudgmentSummary, error) {
	candidates, err := s.GetCandidates(ctx, jobID)
	if err != nil {
		return nil, err
	}
	summary := calibration.SummarizeJudgments(candidates)
	return &summary, nil
}

// CalculateAHI 按滑动 1 小时窗口计算 AHI 时间线
// 统计对象是最终确认的无呼吸事件（人工判定为 apnea 的候选）
func (s *AnalysisService) CalculateAHI(ctx context.Context, jobID string) (*models.AHIReport, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.GetCandidates(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// 窗口计数以峰值时刻为准，候选窗口起点只是展示范围
	var events []models.Event
	for _, cand := range candidates {
		if cand.Status == models.CandidateApnea {
			events = append(events, models.Event{
				Kind:  models.EventApnea,
				Start: cand.PeakTime,
				End:   cand.ApneaEnd,
			})
		}
	}

	report := metrics.ComputeAHI(events, job.DurationSec, s.logger)
	return &report, nil
}

func (s *AnalysisService) applyJudgments(ctx context.Context, jobID string, candidates []models.Candidate) ([]models.Candidate, error) {
	judgments, err := s.judgments.ListJudgments(ctx, jobID)
	if err != nil {
		return nil, err
	}
	statusByID := make(map[int]string, len(judgments))
	for _, j := range judgments {
		statusByID[j.CandidateID] = j.Status
	}
	for i := range candidates {
		if status, ok := statusByID[candidates[i].ID]; ok {
			candidates[i].Status = models.CandidateStatus(status)
		}
	}
	return candidates, nil
}
