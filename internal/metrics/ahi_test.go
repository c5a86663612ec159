package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-apnea/internal/models"
)

func apneaAt(start float64) models.Event {
	return models.Event{Kind: models.EventApnea, Start: start, End: start + 10}
}

func TestSeverityFor(t *testing.T) {
	for _, tc := range []struct {
		ahi      float64
		severity string
		level    int
	}{
		{0, SeverityNormal, 0},
		{4.9, SeverityNormal, 0},
		{5, SeverityMild, 1},
		{14.9, SeverityMild, 1},
		{15, SeverityModerate, 2},
		{29.9, SeverityModerate, 2},
		{30, SeveritySevere, 3},
	} {
		severity, level := SeverityFor(tc.ahi)
		assert.Equal(t, tc.severity, severity, "ahi=%v", tc.ahi)
		assert.Equal(t, tc.level, level, "ahi=%v", tc.ahi)
	}
}

func TestComputeAHI(t *testing.T) {
	// 2 小时录音，事件开始于 0 秒和 3900 秒
	events := []models.Event{apneaAt(0), apneaAt(3900)}

	report := ComputeAHI(events, 7200, nil)
	assert.Equal(t, 2, report.TotalEvents)
	assert.InDelta(t, 1.0, report.OverallAHI, 1e-9)
	assert.Equal(t, SeverityNormal, report.Severity)
	assert.Equal(t, 0, report.SeverityLevel)

	// 窗口起点 0, 300, ..., 3600：共 13 个
	require.Len(t, report.Timeline, 13)
	// [0, 3600) 只包含 0 秒的事件，3900 不在半开区间内
	assert.Equal(t, 1.0, report.Timeline[0].AHI)
	// [300, 3900) 一个都不包含
	assert.Equal(t, 0.0, report.Timeline[1].AHI)
	// [600, 4200) 包含 3900 秒的事件
	assert.Equal(t, 1.0, report.Timeline[2].AHI)

	assert.Equal(t, 1.0, report.MaxAHI)
	require.NotNil(t, report.WorstPeriod)
	assert.Equal(t, 0.0, report.WorstPeriod.StartTime)
	assert.Equal(t, 3600.0, report.WorstPeriod.EndTime)
}

func TestComputeAHIShortRecording(t *testing.T) {
	// 不足 1 小时：只报整体 AHI，不计算时间线
	events := []models.Event{apneaAt(100), apneaAt(500), apneaAt(900)}

	report := ComputeAHI(events, 1800, nil)
	assert.InDelta(t, 6.0, report.OverallAHI, 1e-9)
	assert.Equal(t, SeverityMild, report.Severity)
	assert.Empty(t, report.Timeline)
	assert.Nil(t, report.WorstPeriod)
	assert.Equal(t, 0.0, report.MaxAHI)
}

func TestComputeAHINoEvents(t *testing.T) {
	report := ComputeAHI(nil, 7200, nil)
	assert.Equal(t, 0, report.TotalEvents)
	assert.Equal(t, 0.0, report.OverallAHI)
	assert.Equal(t, SeverityNormal, report.Severity)
	assert.NotNil(t, report.Timeline)
	assert.Empty(t, report.Timeline)
	assert.Nil(t, report.WorstPeriod)
}

func TestComputeAHIZeroDuration(t *testing.T) {
	report := ComputeAHI([]models.Event{apneaAt(0)}, 0, nil)
	assert.Equal(t, 0.0, report.OverallAHI)
	assert.Empty(t, report.Timeline)
}
