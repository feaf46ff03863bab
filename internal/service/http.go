package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxImportSize = 1 << 20

// Handler exposes the service as a json api. middlewares wrap every route.
func (s *Service) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middlewares...)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan/start", s.handleStartScan)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/results/{jobID}", s.handleResults)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/new-stocks", s.handleNewStocks)

		r.Get("/screeners", s.handleListScreeners)
		r.Post("/screeners", s.handleAddScreener)
		r.Post("/screeners/import", s.handleImportScreeners)
		r.Put("/screeners/{id}", s.handleUpdateScreener)
		r.Delete("/screeners/{id}", s.handleDeleteScreener)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{jobID}/csv", s.handleDownloadReport)
	})
	return r
}

func (s *Service) writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		s.tel.ReportWarning(report_http_response, err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrJobRunning),
		errors.Is(err, ErrScreenerExists):
		status = http.StatusConflict
	case errors.Is(err, ErrNoActiveScreeners),
		errors.Is(err, ErrInvalidScreenerUrl),
		errors.Is(err, ErrInvalidThreshold),
		errors.Is(err, ErrInvalidScreenerFile),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrScreenerNotFound),
		errors.Is(err, ErrReportNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.tel.ReportBroken(report_http_response, err)
	}
	s.writeJson(w, status, map[string]string{
		"status":  "error",
		"message": err.Error(),
	})
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, out any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxImportSize)).Decode(out)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathId(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", errBadRequest)
	}
	return id, nil
}

func (s *Service) handleStartScan(w http.ResponseWriter, r *http.Request) {
	id, err := s.StartScan(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusAccepted, map[string]string{
		"status": "success",
		"job_id": id,
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, job)
}

func (s *Service) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.JobResults(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, results)
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, dashboard)
}

func (s *Service) handleNewStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.NewStocks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, stocks)
}

func (s *Service) handleListScreeners(w http.ResponseWriter, r *http.Request) {
	screeners, err := s.ListScreeners(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if screeners == nil {
		screeners = []Screener{}
	}
	s.writeJson(w, http.StatusOK, screeners)
}

func (s *Service) handleAddScreener(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Url    string `json:"url"`
		Name   string `json:"name"`
		Active *bool  `json:"active"`
	}
	err := decodeBody(r, &body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	active := true
	if body.Active != nil {
		active = *body.Active
	}
	screener, err := s.AddScreener(r.Context(), body.Url, body.Name, active)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusCreated, screener)
}

// handleImportScreeners takes the screener file as the raw body, the
// format comes from the ?format= query or the content type.
func (s *Service) handleImportScreeners(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
		if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
			format = "yaml"
		}
	}
	result, err := s.ImportScreeners(r.Context(), format, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, result)
}

func (s *Service) handleUpdateScreener(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var update ScreenerUpdate
	err = decodeBody(r, &update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	screener, err := s.UpdateScreener(r.Context(), id, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, screener)
}

func (s *Service) handleDeleteScreener(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.DeleteScreener(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, settings)
}

func (s *Service) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	err := decodeBody(r, &settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	settings, err = s.UpdateSettings(r.Context(), settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJson(w, http.StatusOK, settings)
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.ListReports(r.Context(), 50)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if reports == nil {
		reports = []Report{}
	}
	s.writeJson(w, http.StatusOK, reports)
}

func (s *Service) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.GetReport(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(report.Path)),
	)
	http.ServeFile(w, r, report.Path)
}
