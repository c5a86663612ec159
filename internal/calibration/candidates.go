package calibration

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"wisefido-apnea/internal/detector"
	"wisefido-apnea/internal/models"
)

const (
	// 峰值检测：最小间距 20 帧（约 1 秒）、最小突出度
	peakMinDistance   = 20
	peakMinProminence = 0.0001

	// candidateWindowSec 候选窗口：峰值前 10 秒到峰值
	candidateWindowSec = 10.0

	// DefaultTopN 首次抽取的候选数
	DefaultTopN = 50
	// DefaultSigmaRange 统计扩展的标准差范围
	DefaultSigmaRange = 2.0
	// DefaultMaxCandidates 统计扩展的最大追加数
	DefaultMaxCandidates = 30
)

// ExtensionStats 统计扩展使用的统计量
type ExtensionStats struct {
	MeanRMS        float64 `json:"mean_rms"`
	StdRMS         float64 `json:"std_rms"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
	ReferenceCount int     `json:"reference_count"`
}

// ExtractCandidates 抽取能量峰值最高的 topN 个候选
//
// 局部峰值按峰值大小降序取前 topN，每个峰合成候选窗口
// [peak_time - 10s（下限 0）, peak_time]，初始状态 pending，ID 从 0 开始
func ExtractCandidates(energy models.TimeSeries, topN int, logger *zap.Logger) []models.Candidate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	peaks := detector.FindPeaks(energy, peakMinDistance, peakMinProminence)
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Value > peaks[j].Value
	})
	if len(peaks) > topN {
		peaks = peaks[:topN]
	}

	candidates := make([]models.Candidate, 0, len(peaks))
	for i, peak := range peaks {
		start := peak.Time - candidateWindowSec
		if start < 0 {
			start = 0
		}
		candidates = append(candidates, models.Candidate{
			ID:         i,
			PeakIndex:  peak.Index,
			PeakTime:   peak.Time,
			PeakRMS:    peak.Value,
			ApneaStart: start,
			ApneaEnd:   peak.Time,
			Status:     models.CandidatePending,
		})
	}

	logger.Info("candidates extracted", zap.Int("candidate_count", len(candidates)))
	return candidates
}

// ExtendCandidates 基于已判定为无呼吸的候选做统计扩展
//
// 对参照候选的峰值计算均值/标准差，接受带 [max(0, mean-kσ), mean+kσ]；
// 重新做峰值检测，剔除已存在的峰（按样本下标去重），
// 带内的峰按 confidence = 1 - |v-mean|/(kσ) 降序截取 maxCandidates 个，
// ID 延续既有编号，不会复用或重复
//
// 参照集合为空时返回 ErrValidation（接受带无定义）
func ExtendCandidates(
	energy models.TimeSeries,
	existing []models.Candidate,
	referenceIDs []int,
	sigmaRange float64,
	maxCandidates int,
	logger *zap.Logger,
) ([]models.Candidate, ExtensionStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sigmaRange <= 0 {
		sigmaRange = DefaultSigmaRange
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	refSet := make(map[int]bool, len(referenceIDs))
	for _, id := range referenceIDs {
		refSet[id] = true
	}

	existingIndexes := make(map[int]bool, len(existing))
	nextID := 0
	var referenceValues []float64
	for _, cand := range existing {
		existingIndexes[cand.PeakIndex] = true
		if cand.ID >= nextID {
			nextID = cand.ID + 1
		}
		if refSet[cand.ID] {
			referenceValues = append(referenceValues, cand.PeakRMS)
		}
	}

	if len(referenceValues) == 0 {
		return nil, ExtensionStats{}, fmt.Errorf("%w: no candidates judged as apnea", models.ErrValidation)
	}

	mean := models.MeanOf(referenceValues)
	std := models.StdOf(referenceValues)
	lower := mean - sigmaRange*std
	if lower < 0 {
		lower = 0
	}
	upper := mean + sigmaRange*std
	stats := ExtensionStats{
		MeanRMS:        mean,
		StdRMS:         std,
		LowerBound:     lower,
		UpperBound:     upper,
		ReferenceCount: len(referenceValues),
	}

	logger.Info("extending candidates",
		zap.Int("reference_count", stats.ReferenceCount),
		zap.Float64("mean_rms", mean),
		zap.Float64("std_rms", std),
		zap.Float64("lower_bound", lower),
		zap.Float64("upper_bound", upper),
	)

	peaks := detector.FindPeaks(energy, peakMinDistance, peakMinProminence)

	denom := sigmaRange * std
	var additional []models.Candidate
	for _, peak := range peaks {
		if existingIndexes[peak.Index] {
			continue
		}
		if peak.Value < lower || peak.Value > upper {
			continue
		}
		confidence := 1.0
		if denom > 0 {
			confidence = 1.0 - math.Abs(peak.Value-mean)/denom
		}
		start := peak.Time - candidateWindowSec
		if start < 0 {
			start = 0
		}
		additional = append(additional, models.Candidate{
			PeakIndex:  peak.Index,
			PeakTime:   peak.Time,
			PeakRMS:    peak.Value,
			ApneaStart: start,
			ApneaEnd:   peak.Time,
			Confidence: confidence,
			Status:     models.CandidatePending,
		})
	}

	sort.SliceStable(additional, func(i, j int) bool {
		return additional[i].Confidence > additional[j].Confidence
	})
	if len(additional) > maxCandidates {
		additional = additional[:maxCandidates]
	}

	for i := range additional {
		additional[i].ID = nextID + i
	}

	logger.Info("additional candidates extracted", zap.Int("candidate_count", len(additional)))
	return additional, stats, nil
}
