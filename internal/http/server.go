// Package http serves the dashboard API: JSON views over the latest stored
// analysis run.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mauzo/internal/amqp"
	"mauzo/internal/cache"
	"mauzo/internal/core"
	"mauzo/internal/log"
	"mauzo/internal/storage"
)

// RunReader is the slice of the storage layer the API needs.
type RunReader interface {
	LatestRun(ctx context.Context) (storage.RunRecord, error)
	ListBuckets(ctx context.Context, runID int64, dims string) ([]core.Bucket, error)
	ListSegments(ctx context.Context, runID int64) (map[string]core.Segment, error)
	ListFindings(ctx context.Context, runID int64) ([]core.Finding, error)
}

type Server struct {
	http.Server
	runs        RunReader
	rateLimiter *rateLimiter
	logger      *log.Logger

	// Marshaled responses keyed by path and query, dropped wholesale when
	// a new run lands.
	responseCache *cache.LRU[[]byte]

	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, runs RunReader) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		runs:          runs,
		rateLimiter:   newRateLimiter(),
		logger:        log.Default(log.ComponentHTTP),
		responseCache: cache.NewLRU[[]byte](100, 5*time.Minute), // Max 100 entries, 5min TTL
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/runs/latest", s.withAPIMiddleware(s.handleLatestRun))
	mux.HandleFunc("/api/aggregates", s.withAPIMiddleware(s.handleAggregates))
	mux.HandleFunc("/api/segments", s.withAPIMiddleware(s.handleSegments))
	mux.HandleFunc("/api/findings", s.withAPIMiddleware(s.handleFindings))

	return s
}

// InvalidateCache drops all cached responses. Triggered by the
// analysis-completed event; without AMQP the entry TTL bounds staleness.
func (s *Server) InvalidateCache() {
	s.responseCache.Invalidate()
}

// HandleAnalysisCompleted reacts to a stored run by dropping the response
// cache so the API serves the new run immediately.
func (s *Server) HandleAnalysisCompleted(msg *amqp.AnalysisCompletedMessage) error {
	s.InvalidateCache()
	s.logger.Info("Response cache invalidated",
		log.FieldRunID, msg.RunID,
		log.FieldRows, msg.Rows,
		log.FieldFindings, msg.Findings)
	return nil
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withAPIMiddleware adds request logging, rate limiting, and standard
// headers to API handlers.
func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
