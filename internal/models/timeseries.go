package models

import (
	"math"
	"sort"
)

// TimeSeries 时间序列（时间戳严格递增，值 >= 0）
// 两种用途：能量序列（短时RMS）和动作量序列（采样更稀疏）
// 一旦生成不再修改
type TimeSeries struct {
	Times  []float64 `json:"t"`
	Values []float64 `json:"y"`
}

// Len 样本数
func (s TimeSeries) Len() int {
	return len(s.Values)
}

// Empty 是否为空序列
func (s TimeSeries) Empty() bool {
	return len(s.Values) == 0
}

// Percentile 计算百分位数（线性插值，与 numpy.percentile 一致）
func (s TimeSeries) Percentile(p float64) float64 {
	return PercentileOf(s.Values, p)
}

// Max 最大值（空序列返回 0）
func (s TimeSeries) Max() float64 {
	max := 0.0
	for i, v := range s.Values {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// InterpTo 把本序列线性插值到目标时间戳上
// 目标时间超出本序列范围时取边界值（与 numpy.interp 一致）
func (s TimeSeries) InterpTo(times []float64) []float64 {
	out := make([]float64, len(times))
	if s.Empty() {
		return out
	}
	n := len(s.Times)
	for i, t := range times {
		switch {
		case t <= s.Times[0]:
			out[i] = s.Values[0]
		case t >= s.Times[n-1]:
			out[i] = s.Values[n-1]
		default:
			// 第一个时间戳 >= t 的位置
			j := sort.SearchFloat64s(s.Times, t)
			if s.Times[j] == t {
				out[i] = s.Values[j]
				continue
			}
			t0, t1 := s.Times[j-1], s.Times[j]
			v0, v1 := s.Values[j-1], s.Values[j]
			out[i] = v0 + (v1-v0)*(t-t0)/(t1-t0)
		}
	}
	return out
}

// IndexAtOrAfter 第一个时间戳 >= t 的下标，不存在返回 -1
func (s TimeSeries) IndexAtOrAfter(t float64) int {
	i := sort.SearchFloat64s(s.Times, t)
	if i >= len(s.Times) {
		return -1
	}
	return i
}

// ValuesBetween 返回时间落在 [start, end] 内的值（闭区间）
func (s TimeSeries) ValuesBetween(start, end float64) []float64 {
	var out []float64
	for i, t := range s.Times {
		if t >= start && t <= end {
			out = append(out, s.Values[i])
		}
	}
	return out
}

// Downsample 等间隔抽样到最多 maxPoints 个点（用于前端绘图）
func (s TimeSeries) Downsample(maxPoints int) TimeSeries {
	n := s.Len()
	if maxPoints <= 0 || n <= maxPoints {
		return s
	}
	// maxPoints == 1 时步长无定义，只保留首样本
	if maxPoints == 1 {
		return TimeSeries{
			Times:  []float64{s.Times[0]},
			Values: []float64{s.Values[0]},
		}
	}
	out := TimeSeries{
		Times:  make([]float64, maxPoints),
		Values: make([]float64, maxPoints),
	}
	step := float64(n-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx >= n {
			idx = n - 1
		}
		out.Times[i] = s.Times[idx]
		out.Values[i] = s.Values[idx]
	}
	return out
}

// PercentileOf 百分位数（线性插值，与 numpy.percentile 一致）
// 空切片返回 0
func PercentileOf(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MeanOf 均值（空切片返回 0）
func MeanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdOf 总体标准差（与 numpy.std 一致，空切片返回 0）
func StdOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := MeanOf(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
