package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
	"wisefido-apnea/internal/service"
)

// maxUploadBytes 上传录音的大小上限（2GB，整晚视频）
const maxUploadBytes = 2 << 30

// AnalysisHandler 上传解析与 Job 管理 Handler
type AnalysisHandler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

// NewAnalysisHandler 创建 AnalysisHandler
func NewAnalysisHandler(svc *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, logger: logger}
}

// Analyze 上传录音并解析
// POST /apnea/api/v1/analyze (multipart, field "file")
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart form: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("missing file field"))
		return
	}
	defer file.Close()

	results, err := h.svc.AnalyzeUpload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("analyze upload failed", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}

// ListJobs 列出任务
// GET /apnea/api/v1/jobs?limit=20
func (h *AnalysisHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	jobs, err := h.svc.ListJobs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, http.StatusOK, Ok(jobs))
}

// GetResults 读取解析结果
// GET /apnea/api/v1/jobs/{id}/results
func (h *AnalysisHandler) GetResults(w http.ResponseWriter, r *http.Request, jobID string) {
	results, err := h.svc.GetResults(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}

// RenameJob 重命名任务
// POST /apnea/api/v1/jobs/{id}/name {"name": "..."}
func (h *AnalysisHandler) RenameJob(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		Name string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.svc.RenameJob(r.Context(), jobID, body.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"job_id": jobID, "name": body.Name}))
}

// UpdateRecordingTime 设置拍摄开始时刻
// POST /apnea/api/v1/jobs/{id}/recording-time {"recording_start_datetime": "2026-08-01T22:30:00Z"}
func (h *AnalysisHandler) UpdateRecordingTime(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		RecordingStartDatetime string `json:"recording_start_datetime"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.svc.UpdateRecordingTime(r.Context(), jobID, body.RecordingStartDatetime); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"job_id": jobID}))
}

// UpdateDisplayMode 切换时间显示模式
// POST /apnea/api/v1/jobs/{id}/display-mode {"mode": "relative"|"absolute"}
func (h *AnalysisHandler) UpdateDisplayMode(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.svc.UpdateDisplayMode(r.Context(), jobID, body.Mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"job_id": jobID, "mode": body.Mode}))
}

// DeleteJob 删除任务与全部派生数据
// DELETE /apnea/api/v1/jobs/{id}
func (h *AnalysisHandler) DeleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.svc.DeleteJob(r.Context(), jobID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"job_id": jobID}))
}

// Download 导出解析结果
// GET /apnea/api/v1/jobs/{id}/download?format=json|csv|xlsx
func (h *AnalysisHandler) Download(w http.ResponseWriter, r *http.Request, jobID string) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}

	job, err := h.svc.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := h.svc.GetResults(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="apnea_%s.json"`, jobID))
		writeJSON(w, http.StatusOK, results)
	case "csv":
		data, err := GenerateEventsCSV(job, results)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="apnea_%s.csv"`, jobID))
		_, _ = w.Write(data)
	case "xlsx":
		data, err := GenerateReportExcel(job, results)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="apnea_%s.xlsx"`, jobID))
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusBadRequest, Fail("unsupported format: "+format))
	}
}
