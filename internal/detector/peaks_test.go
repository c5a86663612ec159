package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPeaksSimple(t *testing.T) {
	s := secondSeries([]float64{0, 1, 0, 2, 0})

	peaks := FindPeaks(s, 1, 0)
	require.Len(t, peaks, 2)
	assert.Equal(t, 1, peaks[0].Index)
	assert.Equal(t, 1.0, peaks[0].Value)
	assert.Equal(t, 3, peaks[1].Index)
	assert.Equal(t, 2.0, peaks[1].Value)
	assert.Equal(t, 3.0, peaks[1].Time)
}

func TestFindPeaksMinDistance(t *testing.T) {
	s := secondSeries([]float64{0, 1, 0, 2, 0})

	// 两峰间距 2 < 3：保留更高的峰
	peaks := FindPeaks(s, 3, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 3, peaks[0].Index)
	assert.Equal(t, 2.0, peaks[0].Value)
}

func TestFindPeaksPlateau(t *testing.T) {
	s := secondSeries([]float64{0, 1, 1, 1, 0})

	// 平顶取中点
	peaks := FindPeaks(s, 1, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 2, peaks[0].Index)
}

func TestFindPeaksProminence(t *testing.T) {
	s := secondSeries([]float64{0, 1, 0.9, 1.2, 0})

	// 第一个峰相对右侧谷底只突出 0.1，被过滤
	peaks := FindPeaks(s, 1, 0.15)
	require.Len(t, peaks, 1)
	assert.Equal(t, 3, peaks[0].Index)
	assert.Equal(t, 1.2, peaks[0].Value)
}

func TestFindPeaksTooShort(t *testing.T) {
	assert.Nil(t, FindPeaks(secondSeries([]float64{1, 2}), 1, 0))
	assert.Nil(t, FindPeaks(secondSeries(nil), 1, 0))
}

func TestFindPeaksMonotonic(t *testing.T) {
	// 单调序列没有局部峰（端点不算峰）
	assert.Nil(t, FindPeaks(secondSeries([]float64{0, 1, 2, 3, 4}), 1, 0))
}
