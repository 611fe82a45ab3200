package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/switchwise/newspulse/ingestion"
	"github.com/switchwise/newspulse/search"
	"github.com/switchwise/newspulse/storage"
	"github.com/switchwise/newspulse/trending"
)

// DefaultRequestTimeout bounds request handling, embedding calls included.
const DefaultRequestTimeout = 60 * time.Second

// Server exposes the article service over HTTP.
type Server struct {
	articleRepository storage.ArticleRepository
	pipeline          *ingestion.Pipeline
	detector          *trending.Detector
	searcher          *search.Searcher
	httpServer        *http.Server
	requestTimeout    time.Duration
	logger            *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout.
// Default is DefaultRequestTimeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}
		s.requestTimeout = timeout
		return nil
	}
}

// NewServer creates an HTTP server listening on addr.
func NewServer(
	addr string,
	articleRepository storage.ArticleRepository,
	pipeline *ingestion.Pipeline,
	detector *trending.Detector,
	searcher *search.Searcher,
	opts ...Option,
) (*Server, error) {
	if articleRepository == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if detector == nil {
		return nil, ErrDetectorRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	s := &Server{
		articleRepository: articleRepository,
		pipeline:          pipeline,
		detector:          detector,
		searcher:          searcher,
		requestTimeout:    DefaultRequestTimeout,
		logger:            slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Router builds the HTTP routing table.
// Exposed separately so tests can drive handlers without a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.requestTimeout))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Post("/articles", s.handleIngest)
	r.Get("/articles", s.handleListArticles)
	r.Get("/articles/trending", s.handleTrending)
	r.Get("/search", s.handleSearch)

	return r
}

// Start begins serving requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
