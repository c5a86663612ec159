package fusion

import (
	"sort"

	"wisefido-apnea/internal/models"
)

// MergeNearby 合并时间上接近的事件（同一种类）
//
// 按开始时间排序后单次遍历：下一个事件与当前事件的间隔 <= maxGap 时并入
// （延长结束时间、信赖度取平均），否则关闭当前事件。
// 输出按开始时间有序、无重叠，且相邻事件间隔均大于 maxGap
func MergeNearby(events []models.Event, maxGap float64) []models.Event {
	if len(events) == 0 {
		return []models.Event{}
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]models.Event, 0, len(sorted))
	current := sorted[0]

	for _, event := range sorted[1:] {
		gap := event.Start - current.End
		if gap <= maxGap {
			current.End = event.End
			current.Confidence = (current.Confidence + event.Confidence) / 2
		} else {
			merged = append(merged, current)
			current = event
		}
	}
	merged = append(merged, current)

	return merged
}
