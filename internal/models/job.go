package models

import "time"

// 时间显示模式
const (
	TimeDisplayRelative = "relative"
	TimeDisplayAbsolute = "absolute"
)

// Job 一次录音解析任务
type Job struct {
	JobID     string    `json:"job_id"`
	Name      string    `json:"name,omitempty"`
	FilePath  string    `json:"file_path"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	// DurationSec 录音总时长（秒），解析完成后写入
	DurationSec float64 `json:"duration_sec"`
	// RecordingStartDatetime 拍摄开始时刻（ISO8601），仅用于绝对时间显示
	RecordingStartDatetime *string `json:"recording_start_datetime,omitempty"`
	TimeDisplayMode        string  `json:"time_display_mode"`
}

// AnalysisResults 一次解析的完整结果
type AnalysisResults struct {
	JobID               string     `json:"job_id"`
	DurationSec         float64    `json:"duration_sec"`
	SampleRate          int        `json:"sr"`
	WaveformDownsampled TimeSeries `json:"waveform_downsampled"`
	Events              []Event    `json:"events"`
	Summary             Summary    `json:"summary"`
	Version             string     `json:"version"`
}

// Summary 统计サマリ（每次调用全量重算，无增量状态）
type Summary struct {
	ApneaCount         int     `json:"apnea_count"`
	ApneaAvgDuration   float64 `json:"apnea_avg_duration"`
	ApneaMaxDuration   float64 `json:"apnea_max_duration"`
	ApneaTotalDuration float64 `json:"apnea_total_duration"`
	RecordingHours     float64 `json:"recording_hours"`
	AHIEstimate        float64 `json:"ahi_est"`
	SnoreCount         int     `json:"snore_count"`
	SnoreTotalDuration float64 `json:"snore_total_duration"`
	SnoreIndex         float64 `json:"snore_index"`
}

// AhiWindow 滑动窗口时间线上的一个点
type AhiWindow struct {
	Time        float64 `json:"time"`
	AHI         float64 `json:"ahi"`
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`
}

// WorstPeriod AHI 最高的 1 小时窗口
type WorstPeriod struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	AHI       float64 `json:"ahi"`
}

// AHIReport AHI 聚合结果
type AHIReport struct {
	TotalDuration float64      `json:"total_duration"`
	TotalEvents   int          `json:"total_events"`
	OverallAHI    float64      `json:"overall_ahi"`
	Severity      string       `json:"severity"`
	SeverityLevel int          `json:"severity_level"`
	MaxAHI        float64      `json:"max_ahi"`
	WorstPeriod   *WorstPeriod `json:"worst_period,omitempty"`
	Timeline      []AhiWindow  `json:"timeline"`
}
