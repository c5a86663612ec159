package detector

import (
	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

// MultiBandConfig 多带检测参数
type MultiBandConfig struct {
	// ApneaMinDuration 无呼吸最小持续时间（秒）
	ApneaMinDuration float64
	// EnergyThresholdPercentile 能量阈值百分位
	EnergyThresholdPercentile float64
	// BreathThresholdPercentile 呼吸带能量阈值百分位
	BreathThresholdPercentile float64
	// CycleThresholdPercentile 周期强度阈值百分位
	CycleThresholdPercentile float64
	// BaseConfidence 基础信赖度（没有呼吸再开确认，证据弱于 silence/resume）
	BaseConfidence float64
}

// DefaultMultiBandConfig 默认参数
func DefaultMultiBandConfig() MultiBandConfig {
	return MultiBandConfig{
		ApneaMinDuration:          10.0,
		EnergyThresholdPercentile: 15,
		BreathThresholdPercentile: 15,
		CycleThresholdPercentile:  30,
		BaseConfidence:            0.5,
	}
}

// MultiBandDetector 多带无呼吸检测器
//
// 能量、呼吸带能量、周期强度三条序列同时低于各自阈值且持续达标才算候选。
// 呼吸带/周期序列先线性插值到能量序列的时间戳上再组合
type MultiBandDetector struct {
	cfg    MultiBandConfig
	logger *zap.Logger
}

// NewMultiBandDetector 创建检测器（logger 可为 nil）
func NewMultiBandDetector(cfg MultiBandConfig, logger *zap.Logger) *MultiBandDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiBandDetector{cfg: cfg, logger: logger}
}

var _ ApneaDetector = (*MultiBandDetector)(nil)

// DetectApnea 实现 ApneaDetector
func (d *MultiBandDetector) DetectApnea(in Input) []models.Event {
	var events []models.Event
	energy := in.Energy
	n := energy.Len()
	if n == 0 {
		return events
	}

	energyThreshold := energy.Percentile(d.cfg.EnergyThresholdPercentile)
	breathThreshold := in.BreathBand.Percentile(d.cfg.BreathThresholdPercentile)
	cycleThreshold := in.CycleStrength.Percentile(d.cfg.CycleThresholdPercentile)

	d.logger.Debug("multiband thresholds",
		zap.Float64("energy_threshold", energyThreshold),
		zap.Float64("breath_threshold", breathThreshold),
		zap.Float64("cycle_threshold", cycleThreshold),
	)

	breathInterp := in.BreathBand.InterpTo(energy.Times)
	cycleInterp := in.CycleStrength.InterpTo(energy.Times)

	// 某条辅助序列缺失时不作为约束条件
	hasBreath := !in.BreathBand.Empty()
	hasCycle := !in.CycleStrength.Empty()

	inApnea := false
	startIdx := 0

	emit := func(startIdx, endIdx int) {
		start := energy.Times[startIdx]
		end := energy.Times[endIdx]
		if end-start >= d.cfg.ApneaMinDuration {
			events = append(events, models.Event{
				Kind:       models.EventApnea,
				Start:      start,
				End:        end,
				Confidence: d.cfg.BaseConfidence,
			})
		}
	}

	for i := 0; i < n; i++ {
		isApnea := energy.Values[i] < energyThreshold
		if isApnea && hasBreath {
			isApnea = breathInterp[i] < breathThreshold
		}
		if isApnea && hasCycle {
			isApnea = cycleInterp[i] < cycleThreshold
		}

		if isApnea && !inApnea {
			inApnea = true
			startIdx = i
		} else if !isApnea && inApnea {
			inApnea = false
			emit(startIdx, i)
		}
	}

	if inApnea {
		emit(startIdx, n-1)
	}

	d.logger.Debug("multiband detection done", zap.Int("candidate_count", len(events)))
	return events
}
