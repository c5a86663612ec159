package models

// CandidateStatus 候选判定状态
type CandidateStatus string

const (
	CandidatePending CandidateStatus = "pending"
	CandidateApnea   CandidateStatus = "apnea"
	CandidateSkip    CandidateStatus = "skip"
)

// ValidCandidateStatus 判定状态是否合法
func ValidCandidateStatus(s string) bool {
	switch CandidateStatus(s) {
	case CandidatePending, CandidateApnea, CandidateSkip:
		return true
	}
	return false
}

// Candidate 待人工判定的无呼吸候选
// ID 在一个 Job 的候选集合内唯一，追加抽取时延续编号
// PeakIndex 是峰值在完整能量序列里的样本下标，
// 用它做跨次抽取的去重（浮点 PeakTime 不适合做相等比较）
type Candidate struct {
	ID         int             `json:"id"`
	PeakIndex  int             `json:"peak_index"`
	PeakTime   float64         `json:"peak_time"`
	PeakRMS    float64         `json:"peak_rms"`
	ApneaStart float64         `json:"apnea_start"`
	ApneaEnd   float64         `json:"apnea_end"`
	Confidence float64         `json:"confidence,omitempty"`
	Status     CandidateStatus `json:"status"`
}

// CalibrationMarker 操作员在能量曲线上标记的无呼吸区间
// 只用于参数学习，不会作为事件持久化
type CalibrationMarker struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CalibrationParameters 校准学习得到的检测参数
// 每次计算整体替换该 Job 的旧参数
type CalibrationParameters struct {
	SilenceThreshold float64   `json:"silence_threshold"`
	ResumeMultiplier float64   `json:"resume_multiplier"`
	MarkerCount      int       `json:"marker_count"`
	SilenceValues    []float64 `json:"silence_values"`
	ResumePeaks      []float64 `json:"resume_peaks"`
}
