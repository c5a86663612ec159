package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"wisefido-apnea/internal/models"
	"wisefido-apnea/internal/service"
)

// CalibrationHandler 校准学习、候选判定与 AHI 计算 Handler
type CalibrationHandler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

// NewCalibrationHandler 创建 CalibrationHandler
func NewCalibrationHandler(svc *service.AnalysisService, logger *zap.Logger) *CalibrationHandler {
	return &CalibrationHandler{svc: svc, logger: logger}
}

// AnalyzeUpload 接收校准用录音，返回完整能量曲线供操作员标记
// POST /apnea/api/v1/calibrate/analyze (multipart, field "file")
func (h *CalibrationHandler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
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

	trace, err := h.svc.CalibrateUpload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("calibration upload failed", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trace))
}

// Calculate 从操作员标记学习检测参数
// POST /apnea/api/v1/jobs/{id}/calibration/calculate {"markers": [{"start":..,"end":..}]}
func (h *CalibrationHandler) Calculate(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		Markers []models.CalibrationMarker `json:"markers"`
	}
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	params, err := h.svc.CalculateCalibration(r.Context(), jobID, body.Markers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(params))
}

// Analyze 用已保存的校准参数重新解析
// POST /apnea/api/v1/jobs/{id}/calibration/analyze
func (h *CalibrationHandler) Analyze(w http.ResponseWriter, r *http.Request, jobID string) {
	results, err := h.svc.CalibrateAnalyze(r.Context(), jobID)
	if err != nil {
		h.logger.Error("calibrated analyze failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}

// ExtractCandidates 抽取待判定候选
// POST /apnea/api/v1/jobs/{id}/candidates/extract?top_n=50
func (h *CalibrationHandler) ExtractCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	topN := parseInt(r.URL.Query().Get("top_n"), 0)
	candidates, err := h.svc.ExtractCandidates(r.Context(), jobID, topN)
	if err != nil {
		writeError(w, err)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"candidates": candidates,
		"total":      len(candidates),
	}))
}

// ExtendCandidates 统计扩展候选
// POST /apnea/api/v1/jobs/{id}/candidates/extend?sigma_range=2.0&max_candidates=30
func (h *CalibrationHandler) ExtendCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	sigmaRange := parseFloat(r.URL.Query().Get("sigma_range"), 0)
	maxCandidates := parseInt(r.URL.Query().Get("max_candidates"), 0)
	additional, stats, err := h.svc.ExtendCandidates(r.Context(), jobID, sigmaRange, maxCandidates)
	if err != nil {
		writeError(w, err)
		return
	}
	if additional == nil {
		additional = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"candidates": additional,
		"total":      len(additional),
		"statistics": stats,
	}))
}

// GetCandidates 读取当前候选集合
// GET /apnea/api/v1/jobs/{id}/candidates
func (h *CalibrationHandler) GetCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	candidates, err := h.svc.GetCandidates(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"candidates": candidates,
		"total":      len(candidates),
	}))
}

// SaveJudgment 记录一次人工判定
// POST /apnea/api/v1/jobs/{id}/judgment {"candidate_id": 3, "status": "apnea"}
func (h *CalibrationHandler) SaveJudgment(w http.ResponseWriter, r *http.Request, jobID string) {
	var body struct {
		CandidateID int    `json:"candidate_id"`
		Status      string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.svc.SaveJudgment(r.Context(), jobID, body.CandidateID, body.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"job_id":       jobID,
		"candidate_id": body.CandidateID,
		"status":       body.Status,
	}))
}

// JudgmentSummary 汇总判定进度与无呼吸峰值统计
// GET /apnea/api/v1/jobs/{id}/judgment-summary
func (h *CalibrationHandler) JudgmentSummary(w http.ResponseWriter, r *http.Request, jobID string) {
	summary, err := h.svc.JudgmentSummary(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// CalculateAHI 按滑动窗口计算 AHI 时间线
// GET /apnea/api/v1/jobs/{id}/ahi
func (h *CalibrationHandler) CalculateAHI(w http.ResponseWriter, r *http.Request, jobID string) {
	report, err := h.svc.CalculateAHI(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}
