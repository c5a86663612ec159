package detector

import (
	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

// resumeCheckFrames 无声结束后检查呼吸再开峰值的最大帧数（约 0.5 秒）
const resumeCheckFrames = 10

// 序列结束时仍处于无声状态：没有观测到呼吸再开，信赖度固定为较低值
const tailSilenceConfidence = 0.5

// SilenceResumeConfig 无声/呼吸再开检测参数
type SilenceResumeConfig struct {
	// SilenceThresholdPercentile 无声判定阈值的百分位
	SilenceThresholdPercentile float64
	// SilenceMinDuration 无声最小持续时间（秒）
	SilenceMinDuration float64
	// ResumeThresholdMultiplier 呼吸再开阈值 = 无声阈值 × 倍率
	ResumeThresholdMultiplier float64
}

// DefaultSilenceResumeConfig 默认参数（按实际录音校准后可替换）
func DefaultSilenceResumeConfig() SilenceResumeConfig {
	return SilenceResumeConfig{
		SilenceThresholdPercentile: 30,
		SilenceMinDuration:         10.0,
		ResumeThresholdMultiplier:  3.0,
	}
}

// SilenceResumeDetector 无声→呼吸再开模式的无呼吸检测器
//
// 单次线性扫描：低于无声阈值进入无声状态，回到阈值以上时关闭区间；
// 区间时长达标后检查随后最多 10 帧的峰值，峰值超过呼吸再开阈值才算一次无呼吸
type SilenceResumeDetector struct {
	cfg    SilenceResumeConfig
	logger *zap.Logger
}

// NewSilenceResumeDetector 创建检测器（logger 可为 nil）
func NewSilenceResumeDetector(cfg SilenceResumeConfig, logger *zap.Logger) *SilenceResumeDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SilenceResumeDetector{cfg: cfg, logger: logger}
}

var _ ApneaDetector = (*SilenceResumeDetector)(nil)

// DetectApnea 实现 ApneaDetector
func (d *SilenceResumeDetector) DetectApnea(in Input) []models.Event {
	return d.Detect(in.Energy)
}

// Detect 用百分位自动计算阈值后扫描能量序列
func (d *SilenceResumeDetector) Detect(energy models.TimeSeries) []models.Event {
	silenceThreshold := energy.Percentile(d.cfg.SilenceThresholdPercentile)
	resumeThreshold := silenceThreshold * d.cfg.ResumeThresholdMultiplier

	d.logger.Debug("silence/resume thresholds",
		zap.Float64("silence_threshold", silenceThreshold),
		zap.Float64("resume_threshold", resumeThreshold),
	)

	return d.scan(energy, silenceThreshold, resumeThreshold)
}

// DetectCalibrated 用校准学习得到的绝对阈值扫描
func (d *SilenceResumeDetector) DetectCalibrated(energy models.TimeSeries, params models.CalibrationParameters) []models.Event {
	resumeThreshold := params.SilenceThreshold * params.ResumeMultiplier
	return d.scan(energy, params.SilenceThreshold, resumeThreshold)
}

func (d *SilenceResumeDetector) scan(energy models.TimeSeries, silenceThreshold, resumeThreshold float64) []models.Event {
	var events []models.Event
	n := energy.Len()
	if n == 0 {
		return events
	}

	inSilence := false
	startIdx := 0

	for i := 0; i < n; i++ {
		isSilence := energy.Values[i] < silenceThreshold

		if isSilence && !inSilence {
			inSilence = true
			startIdx = i
			continue
		}

		if !isSilence && inSilence {
			inSilence = false
			start := energy.Times[startIdx]
			end := energy.Times[i]
			if end-start < d.cfg.SilenceMinDuration {
				continue
			}

			// 无声结束后的呼吸再开峰值
			checkFrames := resumeCheckFrames
			if n-i < checkFrames {
				checkFrames = n - i
			}
			resumePeak := 0.0
			for j := i; j < i+checkFrames; j++ {
				if energy.Values[j] > resumePeak {
					resumePeak = energy.Values[j]
				}
			}

			// 阈值为 0 时比值无意义，按 0 处理（丢弃该区间）
			if resumeThreshold <= 0 {
				continue
			}
			if resumePeak > resumeThreshold {
				confidence := resumePeak / resumeThreshold
				if confidence > 1.0 {
					confidence = 1.0
				}
				events = append(events, models.Event{
					Kind:       models.EventApnea,
					Start:      start,
					End:        end,
					Confidence: confidence,
					ResumePeak: resumePeak,
				})
			}
			// 无声之后没有确认到呼吸再开：不算无呼吸
		}
	}

	// 到序列末尾仍是无声状态
	if inSilence {
		start := energy.Times[startIdx]
		end := energy.Times[n-1]
		if end-start >= d.cfg.SilenceMinDuration {
			events = append(events, models.Event{
				Kind:       models.EventApnea,
				Start:      start,
				End:        end,
				Confidence: tailSilenceConfidence,
				ResumePeak: 0,
			})
		}
	}

	d.logger.Debug("silence/resume detection done", zap.Int("event_count", len(events)))
	return events
}
