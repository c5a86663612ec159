package detector

import (
	"sort"

	"wisefido-apnea/internal/models"
)

// Peak 能量序列上的一个局部峰值
type Peak struct {
	Index int
	Time  float64
	Value float64
}

// FindPeaks 检测局部最大值
// minDistance: 峰值之间的最小样本间距（优先保留更高的峰）
// minProminence: 最小突出度（峰值相对两侧基线的高度）
func FindPeaks(series models.TimeSeries, minDistance int, minProminence float64) []Peak {
	values := series.Values
	n := len(values)
	if n < 3 {
		return nil
	}

	// 1. 局部最大值（平顶取中点）
	var indices []int
	i := 1
	for i < n-1 {
		if values[i] <= values[i-1] {
			i++
			continue
		}
		// 向右跳过与当前值相等的平顶
		j := i
		for j < n-1 && values[j+1] == values[i] {
			j++
		}
		if j < n-1 && values[j+1] < values[i] {
			indices = append(indices, (i+j)/2)
		}
		i = j + 1
	}
	if len(indices) == 0 {
		return nil
	}

	// 2. 间距过滤：按峰值从高到低保留，剔除已保留峰附近的低峰
	if minDistance > 1 {
		order := make([]int, len(indices))
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool {
			return values[indices[order[a]]] > values[indices[order[b]]]
		})
		keep := make([]bool, len(indices))
		for k := range keep {
			keep[k] = true
		}
		for _, k := range order {
			if !keep[k] {
				continue
			}
			for m := k - 1; m >= 0 && indices[k]-indices[m] < minDistance; m-- {
				keep[m] = false
			}
			for m := k + 1; m < len(indices) && indices[m]-indices[k] < minDistance; m++ {
				keep[m] = false
			}
		}
		var filtered []int
		for k, idx := range indices {
			if keep[k] {
				filtered = append(filtered, idx)
			}
		}
		indices = filtered
	}

	// 3. 突出度过滤
	var peaks []Peak
	for _, idx := range indices {
		if prominence(values, idx) < minProminence {
			continue
		}
		peaks = append(peaks, Peak{
			Index: idx,
			Time:  series.Times[idx],
			Value: values[idx],
		})
	}
	return peaks
}

// prominence 峰值突出度：向左右各走到更高点或序列边界，
// 取途中最低值作为基线，突出度 = 峰值 - 两侧基线中较高者
func prominence(values []float64, peak int) float64 {
	peakValue := values[peak]

	leftBase := peakValue
	for i := peak - 1; i >= 0; i-- {
		if values[i] > peakValue {
			break
		}
		if values[i] < leftBase {
			leftBase = values[i]
		}
	}

	rightBase := peakValue
	for i := peak + 1; i < len(values); i++ {
		if values[i] > peakValue {
			break
		}
		if values[i] < rightBase {
			rightBase = values[i]
		}
	}

	base := leftBase
	if rightBase > base {
		base = rightBase
	}
	return peakValue - base
}
