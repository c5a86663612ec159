// Package metrics 提供 AHI 聚合与统计摘要
package metrics

import (
	"sort"

	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

const (
	// 滑动窗口：固定 1 小时窗口，5 分钟步进
	// 窗口恰好 1 小时，窗口内事件数在数值上等于每小时速率
	ahiWindowSeconds = 3600.0
	ahiStepSeconds   = 300.0
)

// 重症度分档
const (
	SeverityNormal   = "normal"
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// SeverityFor 把整体 AHI 映射为重症度分档
// <5 normal / [5,15) mild / [15,30) moderate / >=30 severe
func SeverityFor(ahi float64) (string, int) {
	switch {
	case ahi < 5:
		return SeverityNormal, 0
	case ahi < 15:
		return SeverityMild, 1
	case ahi < 30:
		return SeverityModerate, 2
	default:
		return SeveritySevere, 3
	}
}

// ComputeAHI 计算 AHI 报告
//
// 整体 AHI = 事件数 / 录音小时数。
// 录音 >= 1 小时时计算滑动窗口时间线：每个点统计开始时间落在
// [window_start, window_end) 内的事件数，并记录最大窗口（最差时段）。
// 录音不足 1 小时时只报整体 AHI。
// 零事件返回全零结果、空时间线、无最差时段，不报错
func ComputeAHI(events []models.Event, totalDuration float64, logger *zap.Logger) models.AHIReport {
	if logger == nil {
		logger = zap.NewNop()
	}

	report := models.AHIReport{
		TotalDuration: totalDuration,
		TotalEvents:   len(events),
		Severity:      SeverityNormal,
		Timeline:      []models.AhiWindow{},
	}
	if len(events) == 0 || totalDuration <= 0 {
		return report
	}

	eventTimes := make([]float64, len(events))
	for i, e := range events {
		eventTimes[i] = e.Start
	}
	sort.Float64s(eventTimes)

	report.OverallAHI = float64(len(eventTimes)) / (totalDuration / 3600.0)
	report.Severity, report.SeverityLevel = SeverityFor(report.OverallAHI)

	if totalDuration < ahiWindowSeconds {
		logger.Debug("recording shorter than one hour, timeline skipped",
			zap.Float64("overall_ahi", report.OverallAHI),
		)
		return report
	}

	maxAHI := 0.0
	worstStart := 0.0
	for current := 0.0; current+ahiWindowSeconds <= totalDuration; current += ahiStepSeconds {
		windowStart := current
		windowEnd := current + ahiWindowSeconds

		count := 0
		for _, t := range eventTimes {
			if t >= windowStart && t < windowEnd {
				count++
			}
		}
		ahi := float64(count)

		report.Timeline = append(report.Timeline, models.AhiWindow{
			Time:        windowStart,
			AHI:         ahi,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
		})

		if ahi > maxAHI {
			maxAHI = ahi
			worstStart = windowStart
		}
	}

	report.MaxAHI = maxAHI
	if maxAHI > 0 {
		report.WorstPeriod = &models.WorstPeriod{
			StartTime: worstStart,
			EndTime:   worstStart + ahiWindowSeconds,
			AHI:       maxAHI,
		}
	}

	logger.Debug("ahi computed",
		zap.Float64("overall_ahi", report.OverallAHI),
		zap.Float64("max_ahi", maxAHI),
		zap.String("severity", report.Severity),
	)
	return report
}
