package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wisefido-apnea/internal/config"
	"wisefido-apnea/internal/mqtt"
	"wisefido-apnea/internal/store"
)

// MotionSample 床边传感器上报的一个体动样本
type MotionSample struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// MotionConsumer 体动样本 MQTT 消费者
//
// 订阅 apnea/motion/{job_id}，把样本追加到 Job 的体动序列缓存。
// 可选组件：没有配置 broker 时服务完全不依赖 MQTT
type MotionConsumer struct {
	config     *config.MQTTConfig
	mqttClient *mqtt.Client
	cache      *store.SeriesCache
	logger     *zap.Logger
}

// NewMotionConsumer 创建消费者
func NewMotionConsumer(
	cfg *config.MQTTConfig,
	mqttClient *mqtt.Client,
	cache *store.SeriesCache,
	logger *zap.Logger,
) *MotionConsumer {
	return &MotionConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		cache:      cache,
		logger:     logger,
	}
}

// Start 启动消费者，阻塞直到上下文取消
func (c *MotionConsumer) Start(ctx context.Context) error {
	topic := c.config.MotionTopic
	if topic == "" {
		return fmt.Errorf("motion MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to motion topic: %w", err)
	}

	c.logger.Info("Motion MQTT consumer started", zap.String("topic", topic))

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MotionConsumer) Stop() {
	topic := c.config.MotionTopic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}
	c.logger.Info("Motion MQTT consumer stopped")
}

// handleMessage 处理一条上报消息
// 消息体：样本数组 [{"t": 秒, "v": 体动量}, ...]
func (c *MotionConsumer) handleMessage(topic string, payload []byte) error {
	jobID := jobIDFromTopic(topic)
	if jobID == "" {
		return fmt.Errorf("cannot extract job id from topic: %s", topic)
	}

	var samples []MotionSample
	if err := json.Unmarshal(payload, &samples); err != nil {
		return fmt.Errorf("failed to unmarshal motion samples: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	times := make([]float64, len(samples))
	values := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.T
		values[i] = s.V
	}

	if err := c.cache.AppendMotion(context.Background(), jobID, times, values); err != nil {
		return fmt.Errorf("failed to append motion samples: %w", err)
	}

	c.logger.Debug("motion samples ingested",
		zap.String("job_id", jobID),
		zap.Int("sample_count", len(samples)),
	)
	return nil
}

// jobIDFromTopic 从主题 apnea/motion/{job_id} 取出 Job ID
func jobIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
