package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-apnea/internal/models"
)

func TestMergeNearby(t *testing.T) {
	events := []models.Event{
		apnea(0, 10, 1.0),
		apnea(11, 20, 0.5), // 间隔 1 秒 <= 2：并入前一个
		apnea(30, 40, 0.8), // 间隔 10 秒：独立事件
	}

	merged := MergeNearby(events, 2.0)
	require.Len(t, merged, 2)
	assert.Equal(t, 0.0, merged[0].Start)
	assert.Equal(t, 20.0, merged[0].End)
	assert.InDelta(t, 0.75, merged[0].Confidence, 1e-9)
	assert.Equal(t, 30.0, merged[1].Start)
	assert.Equal(t, 40.0, merged[1].End)
}

func TestMergeNearbyOrderInvariant(t *testing.T) {
	shuffled := []models.Event{
		apnea(30, 40, 0.8),
		apnea(11, 20, 0.5),
		apnea(0, 10, 1.0),
	}

	merged := MergeNearby(shuffled, 2.0)
	require.Len(t, merged, 2)
	assert.Equal(t, 0.0, merged[0].Start)
	assert.Equal(t, 20.0, merged[0].End)
}

func TestMergeNearbyIdempotent(t *testing.T) {
	events := []models.Event{
		apnea(0, 10, 1.0),
		apnea(11, 20, 0.5),
		apnea(30, 40, 0.8),
	}

	once := MergeNearby(events, 2.0)
	twice := MergeNearby(once, 2.0)
	assert.Equal(t, once, twice)
}

func TestMergeNearbyGapBoundary(t *testing.T) {
	// 间隔恰好等于 maxGap：仍然合并
	merged := MergeNearby([]models.Event{
		apnea(0, 10, 0.6),
		apnea(12, 20, 0.8),
	}, 2.0)
	require.Len(t, merged, 1)
	assert.Equal(t, 20.0, merged[0].End)
	assert.InDelta(t, 0.7, merged[0].Confidence, 1e-9)
}

func TestMergeNearbyEmpty(t *testing.T) {
	merged := MergeNearby(nil, 2.0)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}
