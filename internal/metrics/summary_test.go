package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wisefido-apnea/internal/models"
)

func TestSummarize(t *testing.T) {
	apneaEvents := []models.Event{
		{Kind: models.EventApnea, Start: 0, End: 10},
		{Kind: models.EventApnea, Start: 100, End: 130},
	}
	snoreEvents := []models.Event{
		{Kind: models.EventSnore, Start: 0, End: 3},
		{Kind: models.EventSnore, Start: 10, End: 13},
	}

	summary := Summarize(apneaEvents, snoreEvents, 7200)
	assert.Equal(t, 2, summary.ApneaCount)
	assert.InDelta(t, 20.0, summary.ApneaAvgDuration, 1e-9)
	assert.InDelta(t, 30.0, summary.ApneaMaxDuration, 1e-9)
	assert.InDelta(t, 40.0, summary.ApneaTotalDuration, 1e-9)
	assert.InDelta(t, 2.0, summary.RecordingHours, 1e-9)
	assert.InDelta(t, 1.0, summary.AHIEstimate, 1e-9)
	assert.Equal(t, 2, summary.SnoreCount)
	assert.InDelta(t, 6.0, summary.SnoreTotalDuration, 1e-9)
	assert.InDelta(t, 0.0008, summary.SnoreIndex, 1e-9)
}

func TestSummarizeNoEvents(t *testing.T) {
	summary := Summarize(nil, nil, 3600)
	assert.Equal(t, 0, summary.ApneaCount)
	assert.Equal(t, 0.0, summary.ApneaTotalDuration)
	assert.Equal(t, 0.0, summary.AHIEstimate)
	assert.Equal(t, 0, summary.SnoreCount)
	assert.InDelta(t, 1.0, summary.RecordingHours, 1e-9)
}

func TestSummarizeZeroDuration(t *testing.T) {
	apneaEvents := []models.Event{{Kind: models.EventApnea, Start: 0, End: 10}}

	summary := Summarize(apneaEvents, nil, 0)
	assert.Equal(t, 1, summary.ApneaCount)
	assert.Equal(t, 0.0, summary.AHIEstimate)
	assert.Equal(t, 0.0, summary.RecordingHours)
}
