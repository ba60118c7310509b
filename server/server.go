package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"artbiz_proposal/approval"
	"artbiz_proposal/generator"
	"artbiz_proposal/pipeline"
	"artbiz_proposal/store"
	"artbiz_proposal/tools"
)

const generateTimeout = 120 * time.Second

type Options struct {
	// ApproveToken 非空且请求带 token 时必须一致。
	ApproveToken string
	Verbose      bool
	Logger       *log.Logger
}

type Server struct {
	pipe         *pipeline.Pipeline
	approveToken string
	verbose      bool
	logger       *log.Logger
}

func New(pipe *pipeline.Pipeline, opts Options) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("proposal pipeline required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		pipe:         pipe,
		approveToken: opts.ApproveToken,
		verbose:      opts.Verbose,
		logger:       opts.Logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/proposals", s.handleProposals)
	mux.HandleFunc("/api/proposals/template", s.handleTemplate)
	mux.HandleFunc("/api/proposals/check", s.handleCheck)
	mux.HandleFunc("/api/proposals/", s.handleProposalByID)
	mux.HandleFunc("/api/actions/", s.handleActionByID)
	mux.HandleFunc("/api/tools/budget-split", s.handleBudgetSplit)
	mux.HandleFunc("/api/tools/timeline", s.handleTimeline)
	mux.HandleFunc("/api/tools/sponsorship-package", s.handleSponsorshipPackage)
	mux.HandleFunc("/api/tools/report", s.handleReport)
	return s.logMiddleware(mux)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type generateResp struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	*pipeline.Result
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req pipeline.Request
		if !decode(w, r, &req) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
		defer cancel()
		res, err := s.pipe.Generate(ctx, req)
		if err != nil {
			// 报告已经算完时随错误一起返回。
			if res != nil {
				writeJSON(w, statusFor(err), generateResp{OK: false, Error: err.Error(), Result: res})
				return
			}
			writeError(w, err)
			return
		}
		out := generateResp{OK: true, Result: res}
		if res.PendingAction != nil {
			out.Message = "proposal draft created; approve to finalize"
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodGet:
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		items, err := s.pipe.Versions(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProposalByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/proposals/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := s.pipe.Version(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": v})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "template": s.pipe.Template()})
}

type checkReq struct {
	Markdown string `json:"markdown"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req checkReq
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "structure_report": s.pipe.Check(req.Markdown)})
}

type approveReq struct {
	Approve bool    `json:"approve"`
	Token   *string `json:"token"`
	By      string  `json:"approved_by"`
}

func (s *Server) handleActionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/actions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a, err := s.pipe.Action(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": a})
	case http.MethodPost:
		var req approveReq
		if !decode(w, r, &req) {
			return
		}
		if _, err := s.pipe.Action(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		if req.Token != nil && *req.Token != s.approveToken {
			writeJSON(w, http.StatusForbidden, map[string]any{"ok": false, "error": "invalid token"})
			return
		}
		out, err := s.pipe.Approve(r.Context(), id, req.Approve, req.By)
		if err != nil {
			writeError(w, err)
			return
		}
		msg := "rejected"
		if req.Approve {
			msg = "approved and executed"
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": msg, "result": out})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type budgetReq struct {
	TotalKRW int64         `json:"total_krw"`
	Ratios   *tools.Ratios `json:"ratios,omitempty"`
}

func (s *Server) handleBudgetSplit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req budgetReq
	if !decode(w, r, &req) {
		return
	}
	ratios := tools.DefaultRatios()
	if req.Ratios != nil {
		ratios = *req.Ratios
	}
	out, err := tools.ComputeBudgetSplit(req.TotalKRW, ratios)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type timelineReq struct {
	StartDate string `json:"start_date"`
	Weeks     int    `json:"weeks"`
	Goal      string `json:"goal"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req timelineReq
	if !decode(w, r, &req) {
		return
	}
	out, err := tools.ComputeTimeline(req.StartDate, req.Weeks, req.Goal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type packageReq struct {
	TierCount   int    `json:"tier_count"`
	TotalTarget int64  `json:"total_target_krw"`
	OrgType     string `json:"org_type"`
}

func (s *Server) handleSponsorshipPackage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req packageReq
	if !decode(w, r, &req) {
		return
	}
	out, err := tools.ComputeSponsorshipPackage(req.TierCount, req.TotalTarget, req.OrgType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req tools.ReportRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := tools.MakeReport(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Helpers ---

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tools.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStatusConflict), errors.Is(err, approval.ErrInvalidStatus):
		return http.StatusConflict
	case errors.Is(err, generator.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"ok": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if !s.verbose && rec.status < http.StatusInternalServerError {
			return
		}
		s.logger.Printf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
