package calibration

import "wisefido-apnea/internal/models"

// Band 统计接受带
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ApneaStatistics 判定为无呼吸的候选的峰值统计
type ApneaStatistics struct {
	MeanRMS     float64 `json:"mean_rms"`
	StdRMS      float64 `json:"std_rms"`
	MinRMS      float64 `json:"min_rms"`
	MaxRMS      float64 `json:"max_rms"`
	Range2Sigma Band    `json:"range_2sigma"`
	Range1Sigma Band    `json:"range_1sigma"`
}

// JudgmentSummary 候选判定进度汇总
type JudgmentSummary struct {
	Total           int              `json:"total"`
	ApneaCount      int              `json:"apnea_count"`
	SkipCount       int              `json:"skip_count"`
	PendingCount    int              `json:"pending_count"`
	ApneaPercentage float64          `json:"apnea_percentage"`
	SkipPercentage  float64          `json:"skip_percentage"`
	ApneaStatistics *ApneaStatistics `json:"apnea_statistics"`
}

// SummarizeJudgments 汇总候选判定结果
// 无呼吸判定为零时统计部分为 nil，不是错误
func SummarizeJudgments(candidates []models.Candidate) JudgmentSummary {
	summary := JudgmentSummary{Total: len(candidates)}

	var apneaValues []float64
	for _, cand := range candidates {
		switch cand.Status {
		case models.CandidateApnea:
			summary.ApneaCount++
			apneaValues = append(apneaValues, cand.PeakRMS)
		case models.CandidateSkip:
			summary.SkipCount++
		default:
			summary.PendingCount++
		}
	}

	if summary.Total > 0 {
		summary.ApneaPercentage = float64(summary.ApneaCount) / float64(summary.Total) * 100
		summary.SkipPercentage = float64(summary.SkipCount) / float64(summary.Total) * 100
	}

	if len(apneaValues) > 0 {
		mean := models.MeanOf(apneaValues)
		std := models.StdOf(apneaValues)
		min, max := apneaValues[0], apneaValues[0]
		for _, v := range apneaValues[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		clamp := func(v float64) float64 {
			if v < 0 {
				return 0
			}
			return v
		}
		summary.ApneaStatistics = &ApneaStatistics{
			MeanRMS:     mean,
			StdRMS:      std,
			MinRMS:      min,
			MaxRMS:      max,
			Range2Sigma: Band{Lower: clamp(mean - 2*std), Upper: mean + 2*std},
			Range1Sigma: Band{Lower: clamp(mean - std), Upper: mean + std},
		}
	}

	return summary
}
