// Package extractor 封装特征提取 sidecar 的客户端
//
// 媒体解码（波形提取、体动量计算、元数据探测）由独立的提取服务完成，
// 本服务只消费它产出的时间序列
package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
)

// 支持的文件类型
var (
	videoExtensions = map[string]bool{
		"mp4": true, "mov": true, "avi": true, "mkv": true, "flv": true,
		"wmv": true, "webm": true, "m4v": true, "3gp": true, "mpg": true,
		"mpeg": true, "ogv": true,
	}
	audioExtensions = map[string]bool{
		"wav": true, "mp3": true, "m4a": true, "aac": true, "flac": true,
		"ogg": true, "wma": true, "opus": true, "aiff": true, "aif": true,
	}
)

// 文件类别
const (
	CategoryVideo = "video"
	CategoryAudio = "audio"
)

// CategoryForFilename 按扩展名判断文件类别
// 不支持的类型返回 ErrValidation
func CategoryForFilename(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", fmt.Errorf("%w: missing file extension: %s", models.ErrValidation, name)
	}
	ext := strings.ToLower(name[idx+1:])
	if videoExtensions[ext] {
		return CategoryVideo, nil
	}
	if audioExtensions[ext] {
		return CategoryAudio, nil
	}
	return "", fmt.Errorf("%w: unsupported file type: %s", models.ErrValidation, ext)
}

// FeatureRequest 特征提取请求
type FeatureRequest struct {
	FilePath string `json:"file_path"`
	Category string `json:"category"`
	// SampleRate 目标采样率（Hz）
	SampleRate int `json:"sample_rate"`
	// MotionFPS 体动量采样帧率（仅视频）
	MotionFPS float64 `json:"motion_fps"`
	// EnergyOnly 只要 RMS 能量序列（校准用，跳过帯域/体动计算）
	EnergyOnly bool `json:"energy_only"`
}

// FeatureResponse 特征提取响应
type FeatureResponse struct {
	DurationSec   float64           `json:"duration_sec"`
	SampleRate    int               `json:"sr"`
	Energy        models.TimeSeries `json:"rms"`
	BreathBand    models.TimeSeries `json:"breath_band"`
	SnoreBand     models.TimeSeries `json:"snore_band"`
	CycleStrength models.TimeSeries `json:"cycle_strength"`
	Motion        models.TimeSeries `json:"motion"`
}

// Client 特征提取服务客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建客户端
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(120 * time.Second). // 长录音的解码可能很慢
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// ExtractFeatures 请求提取时间序列
func (c *Client) ExtractFeatures(req FeatureRequest) (*FeatureResponse, error) {
	c.logger.Info("Calling extractor: extract features",
		zap.String("file_path", req.FilePath),
		zap.String("category", req.Category),
		zap.Bool("energy_only", req.EnergyOnly),
	)

	var response FeatureResponse
	resp, err := c.httpClient.R().
		SetBody(req).
		SetResult(&response).
		Post("/extract/features")

	if err != nil {
		c.logger.Error("Extractor call failed", zap.Error(err))
		return nil, fmt.Errorf("extractor request failed: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Extractor returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode())
	}

	c.logger.Info("Extractor features received",
		zap.Float64("duration_sec", response.DurationSec),
		zap.Int("rms_frames", response.Energy.Len()),
		zap.Int("motion_frames", response.Motion.Len()),
	)
	return &response, nil
}
