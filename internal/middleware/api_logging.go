package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"podsync-backend/internal/monitoring"
)

// APILoggingMiddleware records request metrics to the metrics store and
// the Prometheus registry. Either sink may be nil.
type APILoggingMiddleware struct {
	store *monitoring.MetricsStore
	prom  *monitoring.Metrics
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func NewAPILoggingMiddleware(store *monitoring.MetricsStore, prom *monitoring.Metrics) *APILoggingMiddleware {
	return &APILoggingMiddleware{store: store, prom: prom}
}

// Handler returns the middleware handler
func (m *APILoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := trimPath(r.URL.Path)

		if m.prom != nil {
			m.prom.RecordHTTPRequest(r.Method, path, wrapped.statusCode, duration)
		}
		if m.store != nil {
			m.store.RecordAPIRequest(r.Method, path, wrapped.statusCode, duration, requestIP(r))
		}
	})
}

// shouldSkipLogging excludes probe and scrape endpoints, which would only
// log themselves
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
		"/api/monitoring/",
	}
	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// trimPath drops query strings and caps the stored length
func trimPath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// requestIP is clientIP with the port stripped for storage
func requestIP(r *http.Request) string {
	ip := clientIP(r)
	if strings.Contains(ip, ",") {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
