package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/callcenter-analytics/internal/application/analysis"
	appaudio "github.com/bryanwahyu/callcenter-analytics/internal/application/audio"
	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
	"github.com/bryanwahyu/callcenter-analytics/internal/middleware"
)

// uploads above this are spilled to temp files by mime/multipart
const maxMemory = 32 << 20

// Options wires the router. Metrics and Checkers are optional.
type Options struct {
	Audio          *appaudio.Service
	Analysis       *appanalysis.Service
	AudioDir       string
	AllowedOrigins []string
	Metrics        *middleware.Metrics
	Checkers       map[string]middleware.Checker
	Log            *slog.Logger
}

type Router struct {
	audioSvc    *appaudio.Service
	analysisSvc *appanalysis.Service
	log         *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	r := &Router{audioSvc: opts.Audio, analysisSvc: opts.Analysis, log: log}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(middleware.LoggingMiddleware(log))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/livez", middleware.LivenessHandler(time.Now()))
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Checkers))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Get("/list_audio", r.wrap(r.handleListAudio))
	mux.Post("/analyze_audio", r.wrap(r.handleAnalyze))
	mux.Get("/export_data", r.wrap(r.handleExport))
	mux.Get("/analyses", r.wrap(r.handleHistory))

	if opts.AudioDir != "" {
		mux.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(opts.AudioDir))))
	}

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error     string `json:"error"`
	RawOutput string `json:"raw_output,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var ae *domain.Error
			if !errors.As(err, &ae) {
				ae = domain.Wrap(domain.KindExternalService, err)
			}
			writeJSON(w, statusFor(ae.Kind), errorBody{Error: ae.Message, RawOutput: ae.RawOutput})
		}
	}
}

// statusFor maps error kinds to HTTP status codes. Analysis failures are all 500.
func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /list_audio
func (r *Router) handleListAudio(w http.ResponseWriter, req *http.Request) error {
	files, err := r.audioSvc.List(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"audio_files": files})
	return nil
}

// POST /analyze_audio
// multipart field "file", or form field "audio_id"
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return domain.Errorf(domain.KindBadRequest, "invalid form: %v", err)
	}
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}

	cmd := appaudio.ResolveCommand{AudioID: req.FormValue("audio_id")}

	file, header, err := req.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		cmd.Upload = file
		cmd.UploadName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return domain.Errorf(domain.KindBadRequest, "invalid upload: %v", err)
	}

	path, err := r.audioSvc.Resolve(req.Context(), cmd)
	if err != nil {
		return err
	}

	result, err := r.analysisSvc.Analyze(req.Context(), path)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

// GET /export_data?analysis_id=<name>
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	id := req.URL.Query().Get("analysis_id")
	if id == "" {
		return domain.Errorf(domain.KindBadRequest, "analysis_id is required")
	}
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return domain.Errorf(domain.KindBadRequest, "%v", err)
	}
	data, err := r.analysisSvc.Export(req.Context(), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}

// GET /analyses?limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	records, err := r.analysisSvc.History(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
	return nil
}

