// Package fusion 提供多模态融合
//
// 用体动序列修正声音检测出的无呼吸候选的信赖度：
// 身体基本静止支持无呼吸判断（加分），明显在动则很可能是误检（减分/剔除）
package fusion

import (
	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

// MotionConfig 体动融合参数
type MotionConfig struct {
	// ThresholdPercentile 体动量阈值百分位
	ThresholdPercentile float64
	// ConfidenceBoost 低体动时的信赖度加分
	ConfidenceBoost float64
	// ConfidencePenalty 高体动时的信赖度减分
	ConfidencePenalty float64
	// DropBelow 减分后低于该值的候选直接剔除
	DropBelow float64
}

// DefaultMotionConfig 默认参数
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		ThresholdPercentile: 20,
		ConfidenceBoost:     0.3,
		ConfidencePenalty:   0.2,
		DropBelow:           0.3,
	}
}

// RefineWithMotion 用体动序列修正无呼吸候选
//
// - 候选区间内体动样本均值 < 阈值：信赖度 +boost（上限 1.0）
// - 均值 >= 阈值：信赖度 -penalty（下限 0.0），结果低于 DropBelow 时剔除
// - 区间内没有体动样本：候选原样保留
// - 体动序列为空：整个阶段是恒等变换
func RefineWithMotion(candidates []models.Event, motion models.TimeSeries, cfg MotionConfig, logger *zap.Logger) []models.Event {
	if logger == nil {
		logger = zap.NewNop()
	}
	if motion.Empty() {
		return candidates
	}

	threshold := motion.Percentile(cfg.ThresholdPercentile)

	refined := make([]models.Event, 0, len(candidates))
	for _, cand := range candidates {
		inRange := motion.ValuesBetween(cand.Start, cand.End)
		if len(inRange) == 0 {
			refined = append(refined, cand)
			continue
		}

		avgMotion := models.MeanOf(inRange)
		if avgMotion < threshold {
			cand.Confidence += cfg.ConfidenceBoost
			if cand.Confidence > 1.0 {
				cand.Confidence = 1.0
			}
			refined = append(refined, cand)
			continue
		}

		cand.Confidence -= cfg.ConfidencePenalty
		if cand.Confidence < 0 {
			cand.Confidence = 0
		}
		if cand.Confidence < cfg.DropBelow {
			logger.Debug("candidate dropped by motion",
				zap.Float64("start", cand.Start),
				zap.Float64("end", cand.End),
				zap.Float64("avg_motion", avgMotion),
			)
			continue
		}
		refined = append(refined, cand)
	}

	return refined
}
