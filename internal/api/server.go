package api

import (
	"context"
	"net/http"
	"time"

	"sauti/internal/survey"
	"sauti/internal/wer"
	"sauti/internal/worker"
	"sauti/pkg/cache"
	"sauti/pkg/model"
	"sauti/pkg/resilience"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobSubmitter enqueues uploaded audio for transcription
type JobSubmitter interface {
	Submit(ctx context.Context, sub worker.Submission) (*model.Job, error)
}

// JobReader looks up transcription jobs by id
type JobReader interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// Options holds the HTTP limits of the server
type Options struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	MaxUploadBytes int64
	MaxWords       int
	ResultTTL      time.Duration
}

// Option wires an optional dependency into the server
type Option func(*Server)

// WithCache memoizes detailed WER results
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithJobs enables the speech upload endpoints
func WithJobs(submitter JobSubmitter, jobs JobReader) Option {
	return func(s *Server) {
		s.submitter = submitter
		s.jobs = jobs
	}
}

type Server struct {
	router    chi.Router
	survey    *survey.Service
	calc      *wer.Calculator
	validator *Validator
	limiter   *resilience.KeyedRateLimiter
	opts      Options

	cache     cache.Cache
	submitter JobSubmitter
	jobs      JobReader

	now func() time.Time
}

func NewServer(svc *survey.Service, calc *wer.Calculator, opts Options, deps ...Option) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 100
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = 15 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 24 * time.Hour
	}

	s := &Server{
		router:    chi.NewRouter(),
		survey:    svc,
		calc:      calc,
		validator: NewValidator(),
		limiter:   resilience.NewKeyedRateLimiter(opts.RateLimit, opts.RateWindow),
		opts:      opts,
		now:       time.Now,
	}
	for _, d := range deps {
		d(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/health", s.handleHealth)

		r.Route("/conversation", func(r chi.Router) {
			r.Post("/start", s.handleStartConversation)
			r.Post("/message", s.handleMessage)
			r.Get("/{sessionId}/history", s.handleHistory)
		})

		r.Get("/metrics", s.handleGlobalMetrics)
		r.Get("/metrics/{sessionId}", s.handleSessionMetrics)

		r.Post("/wer", s.handleWER)
		r.Get("/wer/session/{sessionId}", s.handleSessionWER)

		r.Route("/speech", func(r chi.Router) {
			r.Post("/transcribe", s.handleTranscribe)
			r.Get("/jobs/{id}", s.handleJobStatus)
		})
	})

	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})
}

// ServeHTTP makes Server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunLimiterCleanup drops idle per-IP buckets until ctx is done
func (s *Server) RunLimiterCleanup(ctx context.Context, interval time.Duration) {
	s.limiter.RunCleanup(ctx, interval)
}
