package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appscans "github.com/bryanwahyu/phiguard/internal/application/scans"
	domai "github.com/bryanwahyu/phiguard/internal/domain/ai"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
	"github.com/bryanwahyu/phiguard/internal/middleware"
)

const maxUploadBytes = 10 << 20

var errRunNotFound = fmt.Errorf("%w: unknown run id", domain.ErrNotFound)

// Options for the HTTP surface.
type Options struct {
	APIKeys     []string
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	Checkers    map[string]middleware.HealthChecker
	// Incremental is the default for GitHub scans that do not say.
	Incremental bool
	Logger      *zap.Logger
}

type Router struct {
	scansSvc *appscans.Service
	runs     *Registry
	opts     Options
	logger   *zap.Logger
}

func NewRouter(scansSvc *appscans.Service, runs *Registry, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{scansSvc: scansSvc, runs: runs, opts: opts, logger: logger}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestLogger(logger.Named("http")))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Use(middleware.RateLimitMiddleware(opts.RateLimit, opts.RateBurst))

		rt.Post("/scans/github", r.wrap(r.handleScanGitHub))
		rt.Post("/scans/upload", r.wrap(r.handleScanUpload))
		rt.Get("/scans", r.wrap(r.handleList))
		rt.Get("/scans/{id}", r.wrap(r.handleGet))
		rt.Delete("/scans", r.wrap(r.handleClear))

		rt.Get("/runs/{id}", r.wrap(r.handleGetRun))
		rt.Delete("/runs/{id}", r.wrap(r.handleCancelRun))
		rt.Get("/runs/{id}/errors", r.wrap(r.handleRunErrors))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError carries a client mistake.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
		}
	}
}

func statusFor(err error) int {
	var bad *badRequestError
	var access *domain.AccessError
	var transport *domain.TransportError
	switch {
	case errors.As(err, &bad), errors.Is(err, domain.ErrInvalidRepoURL):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errRunFinished), errors.Is(err, domain.ErrScanCancelled), errors.Is(err, domain.ErrRunStarted):
		return http.StatusConflict
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &access):
		switch access.Kind {
		case domain.AccessUnauthorized:
			return http.StatusUnauthorized
		case domain.AccessForbidden:
			return http.StatusForbidden
		case domain.AccessNotFound, domain.AccessPrivateNoCredential:
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func accepted(w http.ResponseWriter, v RunView) error {
	w.Header().Set("Location", "/v1/runs/"+string(v.ID))
	writeJSON(w, http.StatusAccepted, v)
	return nil
}

// POST /v1/scans/github
// Body: {"url": "...", "incremental": true, "token": "...", "max_files": 50}
func (r *Router) handleScanGitHub(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL         string `json:"url"`
		Incremental *bool  `json:"incremental"`
		Token       string `json:"token"`
		MaxFiles    int    `json:"max_files"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 64<<10)).Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	url := middleware.SanitizeString(body.URL)
	if err := middleware.ValidateRepoURL(url); err != nil {
		return err
	}
	if body.MaxFiles < 0 {
		return badRequest("max_files must not be negative")
	}

	cmd := appscans.ScanRepositoryCommand{
		URL:         url,
		Incremental: r.opts.Incremental,
		Token:       body.Token,
		MaxFiles:    body.MaxFiles,
	}
	if body.Incremental != nil {
		cmd.Incremental = *body.Incremental
	}

	// jalan di background, client polling /v1/runs/{id}
	view := r.runs.Start(domain.SourceGitHub, url, func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error) {
		return r.scansSvc.ScanRepository(ctx, run, cmd)
	})
	return accepted(w, view)
}

// POST /v1/scans/upload
// Either multipart/form-data with one or more "files" parts, or JSON
// {"files": [{"name": "...", "content": "..."}]}.
func (r *Router) handleScanUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)

	files, err := readUploads(req)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := middleware.ValidateFileName(f.Name); err != nil {
			return badRequest("%v", err)
		}
	}

	source := fmt.Sprintf("%d file(s)", len(files))
	view := r.runs.Start(domain.SourceUpload, source, func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error) {
		return r.scansSvc.ScanUploads(ctx, run, files)
	})
	return accepted(w, view)
}

func readUploads(req *http.Request) ([]domain.UploadedFile, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body struct {
			Files []struct {
				Name    string `json:"name"`
				Content string `json:"content"`
			} `json:"files"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, badRequest("invalid JSON body: %v", err)
		}
		out := make([]domain.UploadedFile, 0, len(body.Files))
		for _, f := range body.Files {
			out = append(out, domain.UploadedFile{Name: f.Name, Content: f.Content})
		}
		return out, nil
	}

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, badRequest("invalid multipart body: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	var out []domain.UploadedFile
	for _, fh := range req.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, badRequest("open %s: %v", fh.Filename, err)
		}
		b, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, badRequest("read %s: %v", fh.Filename, err)
		}
		out = append(out, domain.UploadedFile{Name: fh.Filename, Content: string(b)})
	}
	return out, nil
}

// GET /v1/runs/{id}
func (r *Router) handleGetRun(w http.ResponseWriter, req *http.Request) error {
	view, ok := r.runs.Get(domain.ScanID(chi.URLParam(req, "id")))
	if !ok {
		return errRunNotFound
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

// DELETE /v1/runs/{id}
func (r *Router) handleCancelRun(w http.ResponseWriter, req *http.Request) error {
	view, err := r.runs.Cancel(domain.ScanID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, view)
	return nil
}

// GET /v1/runs/{id}/errors?limit=20
func (r *Router) handleRunErrors(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.ErrorsForRun(req.Context(), chi.URLParam(req, "id"), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/scans?page=1&page_size=20
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	list, err := r.scansSvc.List(req.Context())
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	writeJSON(w, http.StatusOK, domain.Paginate(list, page, middleware.ValidateLimit(size)))
	return nil
}

// GET /v1/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return badRequest("%v", err)
	}
	scan, err := r.scansSvc.Get(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, scan)
	return nil
}

// DELETE /v1/scans
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	if err := r.scansSvc.Clear(req.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
