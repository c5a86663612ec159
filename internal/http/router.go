package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoute 注册健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// RegisterAnalysisRoutes 注册上传解析与 Job 管理路由
func (r *Router) RegisterAnalysisRoutes(a *AnalysisHandler, c *CalibrationHandler) {
	r.Handle("/apnea/api/v1/analyze", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.Analyze(w, req)
	})

	r.Handle("/apnea/api/v1/calibrate/analyze", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.AnalyzeUpload(w, req)
	})

	r.Handle("/apnea/api/v1/jobs", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ListJobs(w, req)
	})

	// /apnea/api/v1/jobs/{id}[/action...]
	r.Handle("/apnea/api/v1/jobs/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/apnea/api/v1/jobs/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		jobID := parts[0]

		if len(parts) == 1 {
			switch req.Method {
			case http.MethodDelete:
				a.DeleteJob(w, req, jobID)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}

		action := strings.Join(parts[1:], "/")
		switch {
		case action == "results" && req.Method == http.MethodGet:
			a.GetResults(w, req, jobID)
		case action == "name" && req.Method == http.MethodPost:
			a.RenameJob(w, req, jobID)
		case action == "recording-time" && req.Method == http.MethodPost:
			a.UpdateRecordingTime(w, req, jobID)
		case action == "display-mode" && req.Method == http.MethodPost:
			a.UpdateDisplayMode(w, req, jobID)
		case action == "download" && req.Method == http.MethodGet:
			a.Download(w, req, jobID)
		case action == "calibration/calculate" && req.Method == http.MethodPost:
			c.Calculate(w, req, jobID)
		case action == "calibration/analyze" && req.Method == http.MethodPost:
			c.Analyze(w, req, jobID)
		case action == "candidates" && req.Method == http.MethodGet:
			c.GetCandidates(w, req, jobID)
		case action == "candidates/extract" && req.Method == http.MethodPost:
			c.ExtractCandidates(w, req, jobID)
		case action == "candidates/extend" && req.Method == http.MethodPost:
			c.ExtendCandidates(w, req, jobID)
		case action == "judgment" && req.Method == http.MethodPost:
			c.SaveJudgment(w, req, jobID)
		case action == "judgment-summary" && req.Method == http.MethodGet:
			c.JudgmentSummary(w, req, jobID)
		case action == "ahi" && req.Method == http.MethodGet:
			c.CalculateAHI(w, req, jobID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}
