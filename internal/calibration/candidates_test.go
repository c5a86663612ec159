package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-apnea/internal/models"
)

// spikedSeries 200 样本、20fps：基线 0.1，下标 30/60/90 处有尖峰
func spikedSeries() models.TimeSeries {
	values := make([]float64, 200)
	for i := range values {
		values[i] = 0.1
	}
	values[30] = 2.5
	values[60] = 5.0
	values[90] = 3.0

	times := make([]float64, len(values))
	for i := range times {
		times[i] = float64(i) * 0.5
	}
	return models.TimeSeries{Times: times, Values: values}
}

func TestExtractCandidates(t *testing.T) {
	candidates := ExtractCandidates(spikedSeries(), 2, nil)
	require.Len(t, candidates, 2)

	// 按峰值大小降序，ID 从 0 开始
	assert.Equal(t, 0, candidates[0].ID)
	assert.Equal(t, 60, candidates[0].PeakIndex)
	assert.Equal(t, 30.0, candidates[0].PeakTime)
	assert.Equal(t, 5.0, candidates[0].PeakRMS)
	assert.Equal(t, 20.0, candidates[0].ApneaStart)
	assert.Equal(t, 30.0, candidates[0].ApneaEnd)
	assert.Equal(t, models.CandidatePending, candidates[0].Status)

	assert.Equal(t, 1, candidates[1].ID)
	assert.Equal(t, 90, candidates[1].PeakIndex)
	assert.Equal(t, 3.0, candidates[1].PeakRMS)
}

func TestExtractCandidatesWindowClamp(t *testing.T) {
	s := spikedSeries()
	s.Values[10] = 6.0 // 峰值时刻 5 秒，窗口起点被钳到 0

	candidates := ExtractCandidates(s, 1, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, 10, candidates[0].PeakIndex)
	assert.Equal(t, 0.0, candidates[0].ApneaStart)
	assert.Equal(t, 5.0, candidates[0].ApneaEnd)
}

func TestExtendCandidates(t *testing.T) {
	existing := []models.Candidate{
		{ID: 0, PeakIndex: 500, PeakRMS: 1.0, Status: models.CandidateApnea},
		{ID: 1, PeakIndex: 510, PeakRMS: 2.0, Status: models.CandidateApnea},
		{ID: 2, PeakIndex: 90, PeakRMS: 3.0, Status: models.CandidateApnea},
	}

	additional, stats, err := ExtendCandidates(spikedSeries(), existing, []int{0, 1, 2}, 2.0, 30, nil)
	require.NoError(t, err)

	// 参照峰值 {1,2,3}：mean 2, std sqrt(2/3)，接受带约 [0.367, 3.633]
	assert.InDelta(t, 2.0, stats.MeanRMS, 1e-9)
	assert.InDelta(t, 0.8165, stats.StdRMS, 1e-3)
	assert.Equal(t, 3, stats.ReferenceCount)

	// 5.0 超出接受带，3.0 的峰按样本下标去重，只剩 2.5 的峰
	require.Len(t, additional, 1)
	assert.Equal(t, 3, additional[0].ID) // 延续既有编号
	assert.Equal(t, 30, additional[0].PeakIndex)
	assert.Equal(t, 2.5, additional[0].PeakRMS)
	assert.InDelta(t, 0.6938, additional[0].Confidence, 1e-3)
	assert.Equal(t, models.CandidatePending, additional[0].Status)
}

func TestExtendCandidatesNoReference(t *testing.T) {
	existing := []models.Candidate{
		{ID: 0, PeakIndex: 60, PeakRMS: 5.0, Status: models.CandidatePending},
	}

	_, _, err := ExtendCandidates(spikedSeries(), existing, nil, 2.0, 30, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestExtendCandidatesZeroStd(t *testing.T) {
	// 参照峰值全部相同：接受带退化为一个点，带内峰信赖度 1.0
	existing := []models.Candidate{
		{ID: 0, PeakIndex: 500, PeakRMS: 2.5, Status: models.CandidateApnea},
		{ID: 1, PeakIndex: 510, PeakRMS: 2.5, Status: models.CandidateApnea},
	}

	additional, stats, err := ExtendCandidates(spikedSeries(), existing, []int{0, 1}, 2.0, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.StdRMS)
	require.Len(t, additional, 1)
	assert.Equal(t, 30, additional[0].PeakIndex)
	assert.Equal(t, 1.0, additional[0].Confidence)
}
