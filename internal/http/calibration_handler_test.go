package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-apnea/internal/analyzer"
	"wisefido-apnea/internal/calibration"
	"wisefido-apnea/internal/extractor"
	"wisefido-apnea/internal/models"
	"wisefido-apnea/internal/repository"
	"wisefido-apnea/internal/service"
	"wisefido-apnea/internal/store"
)

// newTestRouter 用 sqlmock + miniredis 装配完整服务栈
func newTestRouter(t *testing.T) (*Router, sqlmock.Sqlmock, *store.CandidateCache) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := store.NewRedisKV(client)
	seriesCache := store.NewSeriesCache(kv)
	candidateCache := store.NewCandidateCache(kv)

	logger := zap.NewNop()
	svc := service.NewAnalysisService(
		repository.NewPostgresJobsRepository(db),
		repository.NewPostgresResultsRepository(db),
		repository.NewPostgresJudgmentsRepository(db),
		repository.NewPostgresCalibrationRepository(db),
		seriesCache, candidateCache,
		extractor.NewClient("http://localhost:1", logger),
		analyzer.New(analyzer.DefaultConfig(), logger),
		t.TempDir(), logger,
	)

	router := NewRouter(logger)
	router.RegisterHealthRoute()
	router.RegisterAnalysisRoutes(
		NewAnalysisHandler(svc, logger),
		NewCalibrationHandler(svc, logger),
	)
	return router, mock, candidateCache
}

func TestHealthRoute(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestJudgmentSummaryRoute(t *testing.T) {
	router, mock, candidateCache := newTestRouter(t)

	candidates := []models.Candidate{
		{ID: 0, PeakIndex: 60, PeakRMS: 5.0, Status: models.CandidatePending},
		{ID: 1, PeakIndex: 90, PeakRMS: 3.0, Status: models.CandidatePending},
	}
	require.NoError(t, candidateCache.Save(context.Background(), "job-1", candidates))

	// 候选 0 已判定为无呼吸
	rows := sqlmock.NewRows([]string{"candidate_id", "status", "updated_at"}).
		AddRow(0, "apnea", time.Now().UTC())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM candidate_judgments WHERE job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(rows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apnea/api/v1/jobs/job-1/judgment-summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope Result[calibration.JudgmentSummary]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, ResultSuccess, envelope.Code)
	assert.Equal(t, 2, envelope.Result.Total)
	assert.Equal(t, 1, envelope.Result.ApneaCount)
	assert.Equal(t, 1, envelope.Result.PendingCount)
	require.NotNil(t, envelope.Result.ApneaStatistics)
	assert.Equal(t, 5.0, envelope.Result.ApneaStatistics.MeanRMS)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalculateAHICountsPeakTime(t *testing.T) {
	router, mock, candidateCache := newTestRouter(t)

	// 峰值在 3605 秒，候选窗口从 3595 秒开始：
	// 第一个 1 小时窗口 [0,3600) 不应统计到该事件
	candidates := []models.Candidate{
		{ID: 0, PeakIndex: 72100, PeakTime: 3605, PeakRMS: 4.0,
			ApneaStart: 3595, ApneaEnd: 3605, Status: models.CandidatePending},
	}
	require.NoError(t, candidateCache.Save(context.Background(), "job-1", candidates))

	jobRows := sqlmock.NewRows([]string{
		"job_id", "name", "file_path", "file_size", "created_at",
		"version", "status", "duration_sec", "recording_start_datetime", "time_display_mode",
	}).AddRow("job-1", "night.mp4", "/data/uploads/x", int64(1024), time.Now().UTC(),
		"rule-v0.3.1", "done", 7200.0, nil, "relative")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM apnea_jobs WHERE job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(jobRows)

	judgmentRows := sqlmock.NewRows([]string{"candidate_id", "status", "updated_at"}).
		AddRow(0, "apnea", time.Now().UTC())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM candidate_judgments WHERE job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(judgmentRows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apnea/api/v1/jobs/job-1/ahi", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope Result[models.AHIReport]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, ResultSuccess, envelope.Code)
	assert.Equal(t, 1, envelope.Result.TotalEvents)
	assert.InDelta(t, 0.5, envelope.Result.OverallAHI, 1e-9)
	require.Len(t, envelope.Result.Timeline, 13)
	assert.Equal(t, 0.0, envelope.Result.Timeline[0].AHI)
	assert.Equal(t, 1.0, envelope.Result.Timeline[1].AHI)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveJudgmentInvalidStatus(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := strings.NewReader(`{"candidate_id": 0, "status": "maybe"}`)
	req := httptest.NewRequest(http.MethodPost, "/apnea/api/v1/jobs/job-1/judgment", body)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid judgment status")
}

func TestUnknownJobAction(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apnea/api/v1/jobs/job-1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apnea/api/v1/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
