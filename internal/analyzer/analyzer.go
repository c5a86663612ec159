// Package analyzer 把检测、融合、合并、聚合串成完整的解析流水线
package analyzer

import (
	"sort"

	"go.uber.org/zap"

	"wisefido-apnea/internal/detector"
	"wisefido-apnea/internal/fusion"
	"wisefido-apnea/internal/metrics"
	"wisefido-apnea/internal/models"
)

// Version 检测规则版本，写入每个 Job 以便追溯参数变化
const Version = "rule-v0.3.1"

// Config 解析流水线配置
type Config struct {
	MultiBand detector.MultiBandConfig
	Snore     detector.SnoreConfig
	Motion    fusion.MotionConfig
	// MergeMaxGap 近接事件合并的最大间隔（秒）
	MergeMaxGap float64
	// WaveformMaxPoints 返回给前端的波形最大点数
	WaveformMaxPoints int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MultiBand:         detector.DefaultMultiBandConfig(),
		Snore:             detector.DefaultSnoreConfig(),
		Motion:            fusion.DefaultMotionConfig(),
		MergeMaxGap:       2.0,
		WaveformMaxPoints: 5000,
	}
}

// Input 解析输入：由外围服务层解码录音后提供的各条时间序列
type Input struct {
	DurationSec   float64
	SampleRate    int
	Energy        models.TimeSeries
	BreathBand    models.TimeSeries
	SnoreBand     models.TimeSeries
	CycleStrength models.TimeSeries
	Motion        models.TimeSeries
}

// Analyzer 解析流水线
// 对声明的输入是纯函数：没有共享可变状态，多个 Job 可并发独立调用
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

// New 创建解析流水线（logger 可为 nil）
func New(cfg Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Analyze 执行完整解析
// 检测 → 体动融合 → 近接合并 → 打鼾检测 → 统计サマリ
func (a *Analyzer) Analyze(in Input) models.AnalysisResults {
	a.logger.Info("analysis started",
		zap.Float64("duration_sec", in.DurationSec),
		zap.Int("rms_frames", in.Energy.Len()),
		zap.Int("motion_frames", in.Motion.Len()),
	)

	apneaDetector := detector.NewMultiBandDetector(a.cfg.MultiBand, a.logger)
	candidates := apneaDetector.DetectApnea(detector.Input{
		Energy:        in.Energy,
		BreathBand:    in.BreathBand,
		CycleStrength: in.CycleStrength,
	})
	a.logger.Info("apnea candidates detected", zap.Int("candidate_count", len(candidates)))

	refined := fusion.RefineWithMotion(candidates, in.Motion, a.cfg.Motion, a.logger)
	apneaEvents := fusion.MergeNearby(refined, a.cfg.MergeMaxGap)
	a.logger.Info("apnea events finalized", zap.Int("event_count", len(apneaEvents)))

	snoreEvents := detector.DetectSnore(in.SnoreBand, a.cfg.Snore)
	a.logger.Info("snore events detected", zap.Int("event_count", len(snoreEvents)))

	events := make([]models.Event, 0, len(apneaEvents)+len(snoreEvents))
	events = append(events, apneaEvents...)
	events = append(events, snoreEvents...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})

	summary := metrics.Summarize(apneaEvents, snoreEvents, in.DurationSec)

	a.logger.Info("analysis completed",
		zap.Int("apnea_count", summary.ApneaCount),
		zap.Int("snore_count", summary.SnoreCount),
		zap.Float64("ahi_est", summary.AHIEstimate),
	)

	return models.AnalysisResults{
		DurationSec:         in.DurationSec,
		SampleRate:          in.SampleRate,
		WaveformDownsampled: in.Energy.Downsample(a.cfg.WaveformMaxPoints),
		Events:              events,
		Summary:             summary,
		Version:             Version,
	}
}
