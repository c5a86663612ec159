package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wisefido-apnea/internal/models"
)

// 序列种类
const (
	SeriesEnergy        = "rms"
	SeriesBreathBand    = "breath"
	SeriesSnoreBand     = "snore"
	SeriesCycleStrength = "cycle"
	SeriesMotion        = "motion"
	SeriesWaveform      = "waveform"
)

const seriesKeyPrefix = "apnea:job:"

// SeriesCache 按 Job 缓存完整时间序列
// 校准、候选抽取、AHI 计算都从这里重新读取已物化的序列，读取方不修改序列
type SeriesCache struct {
	kv KV
}

// NewSeriesCache 创建序列缓存
func NewSeriesCache(kv KV) *SeriesCache {
	return &SeriesCache{kv: kv}
}

func seriesKey(jobID, kind string) string {
	return fmt.Sprintf("%s%s:series:%s", seriesKeyPrefix, jobID, kind)
}

// Save 保存序列（不设 TTL，随 Job 删除）
func (c *SeriesCache) Save(ctx context.Context, jobID, kind string, series models.TimeSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	return c.kv.Set(ctx, seriesKey(jobID, kind), string(data), 0)
}

// Load 读取序列；不存在时返回 models.ErrNotFound
func (c *SeriesCache) Load(ctx context.Context, jobID, kind string) (models.TimeSeries, error) {
	val, err := c.kv.Get(ctx, seriesKey(jobID, kind))
	if err != nil {
		if err == ErrMiss {
			return models.TimeSeries{}, fmt.Errorf("%w: series %s for job %s", models.ErrNotFound, kind, jobID)
		}
		return models.TimeSeries{}, err
	}
	var series models.TimeSeries
	if err := json.Unmarshal([]byte(val), &series); err != nil {
		return models.TimeSeries{}, fmt.Errorf("failed to unmarshal series: %w", err)
	}
	return series, nil
}

// AppendMotion 向 Job 的体动序列追加样本（MQTT 摄入用）
// 时间戳必须递增，乱序样本被丢弃
//
// 读取-修改-写回不是原子操作：每个 Job 只允许单一写入方。
// 当前唯一写入方是 MQTT 消费者，paho 默认按序同步回调，满足该约束
func (c *SeriesCache) AppendMotion(ctx context.Context, jobID string, times, values []float64) error {
	if len(times) != len(values) {
		return fmt.Errorf("%w: times/values length mismatch", models.ErrValidation)
	}
	series, err := c.Load(ctx, jobID, SeriesMotion)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	for i, t := range times {
		if series.Len() > 0 && t <= series.Times[series.Len()-1] {
			continue
		}
		series.Times = append(series.Times, t)
		series.Values = append(series.Values, values[i])
	}
	return c.Save(ctx, jobID, SeriesMotion, series)
}

// Delete 删除 Job 的全部缓存序列
func (c *SeriesCache) Delete(ctx context.Context, jobID string) error {
	keys, err := c.kv.ScanKeys(ctx, seriesKeyPrefix+jobID+":series:*")
	if err != nil {
		return err
	}
	return c.kv.Del(ctx, keys...)
}
