package detector

import "wisefido-apnea/internal/models"

// SnoreConfig 打鼾检测参数
type SnoreConfig struct {
	// ThresholdPercentile 打鼾带能量阈值百分位
	ThresholdPercentile float64
	// MinDuration 最小持续时间（秒）
	MinDuration float64
}

// DefaultSnoreConfig 默认参数
func DefaultSnoreConfig() SnoreConfig {
	return SnoreConfig{
		ThresholdPercentile: 75,
		MinDuration:         0.5,
	}
}

// DetectSnore 从打鼾带能量序列检测打鼾事件
// 区间强度 level = 区间内均值 / 全序列最大值
func DetectSnore(band models.TimeSeries, cfg SnoreConfig) []models.Event {
	var events []models.Event
	n := band.Len()
	if n == 0 {
		return events
	}

	threshold := band.Percentile(cfg.ThresholdPercentile)
	// 全零序列时避免除零
	maxValue := band.Max() + 1e-10

	inSnore := false
	startIdx := 0

	emit := func(startIdx, endIdx int) {
		timeIdx := endIdx
		if timeIdx > n-1 {
			timeIdx = n - 1
		}
		start := band.Times[startIdx]
		end := band.Times[timeIdx]
		if end-start < cfg.MinDuration {
			return
		}
		level := models.MeanOf(band.Values[startIdx:endIdx]) / maxValue
		events = append(events, models.Event{
			Kind:  models.EventSnore,
			Start: start,
			End:   end,
			Level: level,
		})
	}

	for i := 0; i < n; i++ {
		isSnore := band.Values[i] > threshold

		if isSnore && !inSnore {
			inSnore = true
			startIdx = i
		} else if !isSnore && inSnore {
			inSnore = false
			emit(startIdx, i)
		}
	}

	if inSnore {
		emit(startIdx, n)
	}

	return events
}
