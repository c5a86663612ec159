package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileOf(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.75, PercentileOf(values, 25), 1e-9)
	assert.InDelta(t, 2.5, PercentileOf(values, 50), 1e-9)
	assert.Equal(t, 1.0, PercentileOf(values, 0))
	assert.Equal(t, 4.0, PercentileOf(values, 100))
	assert.Equal(t, 0.0, PercentileOf(nil, 50))

	// 输入顺序无关
	assert.InDelta(t, 1.75, PercentileOf([]float64{4, 1, 3, 2}, 25), 1e-9)
}

func TestInterpTo(t *testing.T) {
	s := TimeSeries{
		Times:  []float64{0, 10},
		Values: []float64{0, 10},
	}

	out := s.InterpTo([]float64{-5, 0, 5, 10, 20})
	require.Len(t, out, 5)
	// 范围外取边界值
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[1])
	assert.InDelta(t, 5.0, out[2], 1e-9)
	assert.Equal(t, 10.0, out[3])
	assert.Equal(t, 10.0, out[4])

	empty := TimeSeries{}
	assert.Equal(t, []float64{0, 0}, empty.InterpTo([]float64{1, 2}))
}

func TestIndexAtOrAfter(t *testing.T) {
	s := TimeSeries{Times: []float64{0, 1, 2}, Values: []float64{0, 0, 0}}

	assert.Equal(t, 0, s.IndexAtOrAfter(0))
	assert.Equal(t, 2, s.IndexAtOrAfter(1.5))
	assert.Equal(t, -1, s.IndexAtOrAfter(5))
}

func TestValuesBetween(t *testing.T) {
	s := TimeSeries{
		Times:  []float64{0, 1, 2, 3, 4},
		Values: []float64{10, 11, 12, 13, 14},
	}

	// 闭区间：两端都包含
	assert.Equal(t, []float64{11, 12, 13}, s.ValuesBetween(1, 3))
	assert.Nil(t, s.ValuesBetween(10, 20))
}

func TestDownsample(t *testing.T) {
	s := TimeSeries{
		Times:  make([]float64, 100),
		Values: make([]float64, 100),
	}
	for i := range s.Times {
		s.Times[i] = float64(i)
		s.Values[i] = float64(i) * 2
	}

	out := s.Downsample(10)
	require.Equal(t, 10, out.Len())
	// 首尾样本保留
	assert.Equal(t, 0.0, out.Times[0])
	assert.Equal(t, 99.0, out.Times[9])

	// 点数不超过上限时原样返回
	same := s.Downsample(200)
	assert.Equal(t, 100, same.Len())
}

func TestDownsampleSinglePoint(t *testing.T) {
	s := TimeSeries{
		Times:  []float64{0, 1, 2, 3},
		Values: []float64{10, 11, 12, 13},
	}

	out := s.Downsample(1)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 0.0, out.Times[0])
	assert.Equal(t, 10.0, out.Values[0])
}

func TestMeanStd(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assert.InDelta(t, 2.5, MeanOf(values), 1e-9)
	assert.InDelta(t, math.Sqrt(1.25), StdOf(values), 1e-9)
	assert.Equal(t, 0.0, MeanOf(nil))
	assert.Equal(t, 0.0, StdOf(nil))
}
