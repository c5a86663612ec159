package metrics

import (
	"math"

	"wisefido-apnea/internal/models"
)

// Summarize 从最终事件列表和录音时长计算统计サマリ
// 每次调用全量重算；零事件返回零值指标，不报错
func Summarize(apneaEvents, snoreEvents []models.Event, durationSec float64) models.Summary {
	summary := models.Summary{
		ApneaCount: len(apneaEvents),
		SnoreCount: len(snoreEvents),
	}

	if len(apneaEvents) > 0 {
		total := 0.0
		max := 0.0
		for _, e := range apneaEvents {
			d := e.Duration()
			total += d
			if d > max {
				max = d
			}
		}
		summary.ApneaAvgDuration = round2(total / float64(len(apneaEvents)))
		summary.ApneaMaxDuration = round2(max)
		summary.ApneaTotalDuration = round2(total)
	}

	recordingHours := durationSec / 3600.0
	summary.RecordingHours = round2(recordingHours)
	if recordingHours > 0 {
		summary.AHIEstimate = round2(float64(len(apneaEvents)) / recordingHours)
	}

	if len(snoreEvents) > 0 {
		total := 0.0
		for _, e := range snoreEvents {
			total += e.Duration()
		}
		summary.SnoreTotalDuration = round2(total)
		if durationSec > 0 {
			summary.SnoreIndex = round4(total / durationSec)
		}
	}

	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
