// Package api serves the read-only HTTP API over ingested products, run
// history and live crawl progress.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/ratelimit"
	"github.com/alkoparser/catalog-ingest/internal/search"
	"github.com/alkoparser/catalog-ingest/internal/sse"
	"github.com/alkoparser/catalog-ingest/internal/store"
)

// Searcher answers product search queries. *search.Index implements it.
type Searcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	DocumentCount() (uint64, error)
}

// CrawlStats exposes live run counters. *crawler.Monitor implements it.
type CrawlStats interface {
	Snapshot() domain.Run
	Active() bool
}

// Deps groups the collaborators the server reads from. Any of them may be
// nil; the matching routes then report the component as unavailable.
type Deps struct {
	Store      store.ProductStore
	Search     Searcher
	Crawl      CrawlStats
	SSEManager *sse.Manager
	SSEHandler http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.ProductStore
	search     Searcher
	crawl      CrawlStats
	sseManager *sse.Manager
	sseHandler http.Handler

	router  *chi.Mux
	api     huma.API
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Per-client request budget for the API.
const (
	clientRPS   = 20
	clientBurst = 40
)

// NewServer creates the HTTP server with all routes configured.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		store:      deps.Store,
		search:     deps.Search,
		crawl:      deps.Crawl,
		sseManager: deps.SSEManager,
		sseHandler: deps.SSEHandler,
		router:     chi.NewRouter(),
		limiter:    ratelimit.NewKeyed(clientRPS, clientBurst),
		logger:     logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Catalog Ingest API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerProductRoutes()
	s.registerSearchRoutes()
	s.registerCrawlRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the Huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
	s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
