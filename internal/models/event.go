package models

// EventKind 事件类型
type EventKind string

const (
	EventApnea EventKind = "apnea"
	EventSnore EventKind = "snore"
)

// Event 检测事件
// apnea 事件带 Confidence（0~1），snore 事件带 Level（>=0）
// 融合阶段只调整 Confidence，合并阶段只延长 End，其余字段不变
type Event struct {
	Kind       EventKind `json:"type"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Confidence float64   `json:"confidence,omitempty"`
	Level      float64   `json:"level,omitempty"`
	// ResumePeak 无声区间结束后观测到的呼吸再开峰值（仅 silence/resume 检测器填充）
	ResumePeak float64 `json:"resume_peak,omitempty"`
}

// Duration 持续时间（秒）
func (e Event) Duration() float64 {
	return e.End - e.Start
}
