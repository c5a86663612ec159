// Package calibration 提供操作员在环的参数学习与候选抽取
//
// 操作员在完整能量曲线上标记已知的无呼吸区间，
// 本包从这些标记学习检测阈值，并抽取/扩展待人工判定的候选
package calibration

import (
	"fmt"

	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

// resumeCheckFrames 标记结束后检查呼吸再开峰值的最大帧数（约 0.5 秒）
const resumeCheckFrames = 10

// defaultResumeMultiplier 没有任何标记贡献比值时的兜底倍率
const defaultResumeMultiplier = 2.0

// ComputeParameters 从操作员标记的无呼吸区间学习检测参数
//
// silence_threshold = 各标记区间内能量均值的均值
// resume_multiplier = 各标记结束后最多 10 帧内峰值 / silence_threshold 的均值；
// 没有标记贡献比值时取默认 2.0
//
// 零个标记或没有标记与序列相交时返回 ErrValidation。
// 个别标记处理失败不影响其余标记（部分结果 + 继续）
func ComputeParameters(energy models.TimeSeries, markers []models.CalibrationMarker, logger *zap.Logger) (models.CalibrationParameters, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(markers) == 0 {
		return models.CalibrationParameters{}, fmt.Errorf("%w: no markers supplied", models.ErrValidation)
	}

	var silenceValues []float64
	var resumePeaks []float64

	for _, marker := range markers {
		inRange := energy.ValuesBetween(marker.Start, marker.End)
		if len(inRange) == 0 {
			logger.Warn("marker does not intersect series",
				zap.Float64("start", marker.Start),
				zap.Float64("end", marker.End),
			)
			continue
		}

		avgSilence := models.MeanOf(inRange)
		silenceValues = append(silenceValues, avgSilence)

		// 标记结束后的呼吸再开峰值；标记结尾在序列末尾之外时不贡献比值
		startIdx := energy.IndexAtOrAfter(marker.End)
		if startIdx >= 0 {
			checkFrames := resumeCheckFrames
			if energy.Len()-startIdx < checkFrames {
				checkFrames = energy.Len() - startIdx
			}
			if checkFrames > 0 {
				peak := 0.0
				for i := startIdx; i < startIdx+checkFrames; i++ {
					if energy.Values[i] > peak {
						peak = energy.Values[i]
					}
				}
				resumePeaks = append(resumePeaks, peak)
			}
		}

		logger.Debug("marker analyzed",
			zap.Float64("start", marker.Start),
			zap.Float64("end", marker.End),
			zap.Float64("avg_silence", avgSilence),
		)
	}

	if len(silenceValues) == 0 {
		return models.CalibrationParameters{}, fmt.Errorf("%w: no valid markers", models.ErrValidation)
	}

	silenceThreshold := models.MeanOf(silenceValues)

	resumeMultiplier := defaultResumeMultiplier
	if len(resumePeaks) > 0 && silenceThreshold > 0 {
		ratios := make([]float64, len(resumePeaks))
		for i, peak := range resumePeaks {
			ratios[i] = peak / silenceThreshold
		}
		resumeMultiplier = models.MeanOf(ratios)
	}

	logger.Info("calibration parameters computed",
		zap.Float64("silence_threshold", silenceThreshold),
		zap.Float64("resume_multiplier", resumeMultiplier),
		zap.Int("marker_count", len(markers)),
	)

	return models.CalibrationParameters{
		SilenceThreshold: silenceThreshold,
		ResumeMultiplier: resumeMultiplier,
		MarkerCount:      len(markers),
		SilenceValues:    silenceValues,
		ResumePeaks:      resumePeaks,
	}, nil
}
