// Package detector 提供无呼吸/打鼾事件检测
//
// 两种无呼吸检测器是同一问题的并列策略，不是层级关系：
// - SilenceResumeDetector：无声→呼吸再开模式，只用能量序列
// - MultiBandDetector：能量 + 呼吸带能量 + 周期强度三条件同时满足
package detector

import "wisefido-apnea/internal/models"

// Input 检测器输入
// Energy 必须提供；BreathBand / CycleStrength 仅 MultiBandDetector 使用
type Input struct {
	Energy        models.TimeSeries
	BreathBand    models.TimeSeries
	CycleStrength models.TimeSeries
}

// ApneaDetector 无呼吸检测策略
type ApneaDetector interface {
	DetectApnea(in Input) []models.Event
}
