package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"secaudit/internal/domain"
	"secaudit/internal/ports"
	"secaudit/internal/services/reports"
)

const defaultWaitTimeout = 30

// Server serves the scan and report API.
type Server struct {
	scanner ports.Scanner
	reports ports.Reports
	version string
}

func New(scanner ports.Scanner, reports ports.Reports, version string) *Server {
	return &Server{scanner: scanner, reports: reports, version: version}
}

// Routes returns a chi.Router with the API mounted under /api.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.getInfo)
	r.Get("/health", s.getHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.postScan)
		r.Get("/scan/{id}", s.getScan)
		r.Get("/reports", s.listReports)
		r.Get("/reports/{id}", s.getReport)
		r.Delete("/reports/{id}", s.deleteReport)
	})
	return r
}

type scanRequest struct {
	ScanType string `json:"scan_type"`
	Target   string `json:"target"`
}

// jobView is the wire form of a job. Results and report id appear only once
// the job completed; error only once it failed.
type jobView struct {
	ScanID     string              `json:"scan_id"`
	Status     domain.JobStatus    `json:"status"`
	ScanType   domain.ScanKind     `json:"scan_type"`
	Target     string              `json:"target,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	ReportID   string              `json:"report_id,omitempty"`
	Results    []domain.ScanResult `json:"results,omitempty"`
	Error      string              `json:"error,omitempty"`
	Message    string              `json:"message,omitempty"`
}

func newJobView(job domain.Job) jobView {
	v := jobView{
		ScanID:     job.ID,
		Status:     job.Status,
		ScanType:   job.Kind,
		Target:     job.Target,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	switch job.Status {
	case domain.JobCompleted:
		v.ReportID = job.ReportID
		v.Results = job.Results
	case domain.JobFailed:
		v.Error = job.Error
	}
	return v
}

func (s *Server) getInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "secaudit",
		"version": s.version,
		"endpoints": []string{
			"POST /api/scan",
			"GET /api/scan/{id}",
			"GET /api/reports",
			"GET /api/reports/{id}",
			"DELETE /api/reports/{id}",
			"GET /health",
		},
	})
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := domain.ParseScanKind(body.ScanType)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var wait bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, "invalid wait parameter")
		return
	}
	timeout := defaultWaitTimeout
	if err := runtime.BindQueryParameter("form", true, false, "timeout", r.URL.Query(), &timeout); err != nil || timeout <= 0 {
		writeError(w, http.StatusBadRequest, "invalid timeout parameter")
		return
	}

	job, err := s.scanner.Submit(r.Context(), kind, body.Target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !wait {
		v := newJobView(job)
		v.Message = "scan started"
		writeJSON(w, http.StatusAccepted, v)
		return
	}

	// Blocking path: the job keeps running past the deadline or a client
	// disconnect; the caller just gets the running view back.
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Second)
	defer cancel()
	done, err := s.scanner.Wait(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			v := newJobView(done)
			v.Message = "scan still running"
			writeJSON(w, http.StatusAccepted, v)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(done))
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	job, err := s.scanner.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job))
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit := reports.DefaultLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	list, total, err := s.reports.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list, "total": total})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	report, err := s.reports.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	deleted, err := s.reports.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// bindID reads the {id} path parameter. Anything that is not a UUID cannot
// name a job or report, so it is answered with 404.
func bindID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return "", false
	}
	return id.String(), true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("http: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}
