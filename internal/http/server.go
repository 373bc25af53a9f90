// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/query"
)

// TransactionLister answers paginated, filtered list queries.
type TransactionLister interface {
	List(ctx context.Context, f core.ListFilter, page, pageSize int) (query.Envelope, error)
}

// TransactionWriter applies mutations.
type TransactionWriter interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// CategoryReader lists the (small, immutable) category set.
type CategoryReader interface {
	Categories(ctx context.Context) ([]core.Category, error)
}

// mutationRateLimit is the per-client budget for POST/DELETE requests.
const mutationRateLimit = 60

type Server struct {
	http.Server

	engine     TransactionLister
	gateway    TransactionWriter
	categories CategoryReader

	// Categories never change after seeding, so a short TTL cache spares
	// the store one query per page render.
	categoryCache *cache.LRU[[]core.Category]
	cacheManager  *cache.Manager

	rateLimiter  *rateLimiter
	requests     *log.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, engine TransactionLister, gateway TransactionWriter, categories CategoryReader, logger *log.Logger, categoryCacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		engine:        engine,
		gateway:       gateway,
		categories:    categories,
		categoryCache: cache.NewLRU[[]core.Category](1, categoryCacheTTL),
		cacheManager:  cache.NewManager(),
		rateLimiter:   newRateLimiter(mutationRateLimit),
		requests:      log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP)),
	}

	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds request tracing, security headers, rate limiting of
// mutations and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		reqLogger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		s.requests.LogHTTPStart(ctx, r, ip)

		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.requests.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.categories.Categories(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
