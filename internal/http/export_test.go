package httpapi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-apnea/internal/models"
)

func exportFixtures() (*models.Job, *models.AnalysisResults) {
	start := "2026-08-01T22:30:00Z"
	job := &models.Job{
		JobID:                  "job-1",
		Name:                   "night.mp4",
		CreatedAt:              time.Date(2026, 8, 2, 7, 0, 0, 0, time.UTC),
		Version:                "rule-v0.3.1",
		RecordingStartDatetime: &start,
	}
	results := &models.AnalysisResults{
		JobID:       "job-1",
		DurationSec: 7200,
		Events: []models.Event{
			{Kind: models.EventApnea, Start: 30, End: 46, Confidence: 0.8},
			{Kind: models.EventSnore, Start: 50, End: 55, Level: 0.9},
		},
		Summary: models.Summary{ApneaCount: 1, SnoreCount: 1, RecordingHours: 2},
		Version: "rule-v0.3.1",
	}
	return job, results
}

func TestGenerateEventsCSV(t *testing.T) {
	job, results := exportFixtures()

	data, err := GenerateEventsCSV(job, results)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Type")
	// 设置了拍摄开始时刻：附带时钟时刻（22:30:00 + 30 秒）
	assert.Contains(t, lines[1], "apnea")
	assert.Contains(t, lines[1], "22:30:30")
	assert.Contains(t, lines[2], "snore")
	assert.Contains(t, lines[2], "0.900")
}

func TestGenerateEventsCSVNoRecordingTime(t *testing.T) {
	job, results := exportFixtures()
	job.RecordingStartDatetime = nil

	data, err := GenerateEventsCSV(job, results)
	require.NoError(t, err)
	// 时钟时刻列留空
	assert.NotContains(t, string(data), "22:30")
}

func TestGenerateReportExcel(t *testing.T) {
	job, results := exportFixtures()

	data, err := GenerateReportExcel(job, results)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx 是 zip 容器
	assert.Equal(t, byte('P'), data[0])
	assert.Equal(t, byte('K'), data[1])
}
