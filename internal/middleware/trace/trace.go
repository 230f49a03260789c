// Package trace tags each request with an ID and logs its outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"nrsnotify/internal/log"
)

type requestIDKey struct{}

// RequestIDHeader carries the request ID back to the client and lets an
// upstream proxy supply its own.
const RequestIDHeader = "X-Request-ID"

// SlowRequest is the duration past which a request counts as slow.
const SlowRequest = time.Second

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests int64
	ClientErrors  int64
	ServerErrors  int64
	SlowRequests  int64
}

// Middleware assigns request IDs and logs every request once it completes.
type Middleware struct {
	extractIP func(*http.Request) string

	total, clientErrors, serverErrors, slow atomic.Int64
}

// NewMiddleware creates a tracer. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.total.Add(1)

		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		level := m.record(rec.status, elapsed)

		attrs := []any{
			log.FieldRequestID, id,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rec.status,
			log.FieldDuration, elapsed.Milliseconds(),
		}
		if m.extractIP != nil {
			attrs = append(attrs, log.FieldClientIP, m.extractIP(r))
		}
		if r.Header.Get("HX-Request") == "true" {
			attrs = append(attrs, "htmx", true)
		}
		slog.Log(ctx, level, "HTTP request completed", attrs...)
	})
}

// record updates the counters and picks the log level for the outcome.
func (m *Middleware) record(status int, elapsed time.Duration) slog.Level {
	if elapsed > SlowRequest {
		m.slow.Add(1)
	}
	switch {
	case status >= 500:
		m.serverErrors.Add(1)
		return slog.LevelError
	case status >= 400:
		m.clientErrors.Add(1)
		return slog.LevelWarn
	case elapsed > SlowRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests: m.total.Load(),
		ClientErrors:  m.clientErrors.Load(),
		ServerErrors:  m.serverErrors.Load(),
		SlowRequests:  m.slow.Load(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wrote {
		rec.status, rec.wrote = code, true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wrote = true
	return rec.ResponseWriter.Write(b)
}

// NewRequestID returns a fresh random request ID.
func NewRequestID() string {
	u := uuid.New()
	return "req_" + u.String()[:8] + u.String()[9:13]
}

// validRequestID accepts short printable IDs from upstream proxies.
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
