package consumer

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-apnea/internal/config"
	"wisefido-apnea/internal/store"
)

func newTestConsumer(t *testing.T) (*MotionConsumer, *store.SeriesCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := store.NewSeriesCache(store.NewRedisKV(client))

	cfg := &config.MQTTConfig{MotionTopic: "apnea/motion/+", QoS: 1}
	return NewMotionConsumer(cfg, nil, cache, zap.NewNop()), cache
}

func TestHandleMessage(t *testing.T) {
	c, cache := newTestConsumer(t)

	payload := []byte(`[{"t": 0, "v": 0.1}, {"t": 1, "v": 0.2}]`)
	require.NoError(t, c.handleMessage("apnea/motion/job-1", payload))

	series, err := cache.Load(context.Background(), "job-1", store.SeriesMotion)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, series.Times)
	assert.Equal(t, []float64{0.1, 0.2}, series.Values)
}

func TestHandleMessageInvalidPayload(t *testing.T) {
	c, _ := newTestConsumer(t)

	err := c.handleMessage("apnea/motion/job-1", []byte(`not json`))
	assert.Error(t, err)
}

func TestHandleMessageEmptySamples(t *testing.T) {
	c, cache := newTestConsumer(t)

	require.NoError(t, c.handleMessage("apnea/motion/job-1", []byte(`[]`)))
	_, err := cache.Load(context.Background(), "job-1", store.SeriesMotion)
	assert.Error(t, err)
}

func TestJobIDFromTopic(t *testing.T) {
	assert.Equal(t, "job-1", jobIDFromTopic("apnea/motion/job-1"))
	assert.Equal(t, "x", jobIDFromTopic("x"))
}
