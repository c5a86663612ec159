package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-apnea/internal/models"
)

func newTestCache(t *testing.T) (*SeriesCache, *CandidateCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := NewRedisKV(client)
	return NewSeriesCache(kv), NewCandidateCache(kv)
}

func TestSeriesCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	series := models.TimeSeries{
		Times:  []float64{0, 0.5, 1.0},
		Values: []float64{0.1, 0.2, 0.3},
	}
	require.NoError(t, cache.Save(ctx, "job-1", SeriesEnergy, series))

	loaded, err := cache.Load(ctx, "job-1", SeriesEnergy)
	require.NoError(t, err)
	assert.Equal(t, series, loaded)
}

func TestSeriesCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Load(context.Background(), "job-1", SeriesEnergy)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAppendMotion(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// 首批样本写入空序列
	require.NoError(t, cache.AppendMotion(ctx, "job-1", []float64{0, 1}, []float64{0.1, 0.2}))
	// 乱序样本（t=0.5）被丢弃，新样本追加
	require.NoError(t, cache.AppendMotion(ctx, "job-1", []float64{0.5, 2}, []float64{9.9, 0.3}))

	series, err := cache.Load(ctx, "job-1", SeriesMotion)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, series.Times)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, series.Values)
}

func TestAppendMotionLengthMismatch(t *testing.T) {
	cache, _ := newTestCache(t)

	err := cache.AppendMotion(context.Background(), "job-1", []float64{0, 1}, []float64{0.1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSeriesCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "job-1", SeriesEnergy, models.TimeSeries{Times: []float64{0}, Values: []float64{1}}))
	require.NoError(t, cache.Save(ctx, "job-1", SeriesMotion, models.TimeSeries{Times: []float64{0}, Values: []float64{1}}))
	require.NoError(t, cache.Save(ctx, "job-2", SeriesEnergy, models.TimeSeries{Times: []float64{0}, Values: []float64{1}}))

	require.NoError(t, cache.Delete(ctx, "job-1"))

	_, err := cache.Load(ctx, "job-1", SeriesEnergy)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = cache.Load(ctx, "job-1", SeriesMotion)
	assert.ErrorIs(t, err, models.ErrNotFound)
	// 其它 Job 不受影响
	_, err = cache.Load(ctx, "job-2", SeriesEnergy)
	assert.NoError(t, err)
}

func TestCandidateCacheRoundTrip(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	candidates := []models.Candidate{
		{ID: 0, PeakIndex: 60, PeakTime: 30, PeakRMS: 5.0, ApneaStart: 20, ApneaEnd: 30, Status: models.CandidatePending},
		{ID: 1, PeakIndex: 90, PeakTime: 45, PeakRMS: 3.0, ApneaStart: 35, ApneaEnd: 45, Status: models.CandidateApnea},
	}
	require.NoError(t, cache.Save(ctx, "job-1", candidates))

	loaded, err := cache.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, candidates, loaded)

	require.NoError(t, cache.Delete(ctx, "job-1"))
	_, err = cache.Load(ctx, "job-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
