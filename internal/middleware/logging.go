package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

const (
	// CorrelationIDKey is the context key for correlation ID.
	CorrelationIDKey ContextKey = "correlation_id"

	// CorrelationHeader carries the correlation ID in both directions.
	CorrelationHeader = "X-Correlation-ID"

	scopeKey ContextKey = "request_scope"
)

// requestScope collects the tenant and session a request resolved to. Both
// are only known once routing and body decoding ran downstream.
type requestScope struct {
	mu        sync.Mutex
	tenantID  string
	sessionID string
}

// Annotate records the tenant and session of the current request for its
// log line. Empty values leave the recorded ones unchanged.
func Annotate(ctx context.Context, tenantID, sessionID string) {
	sc, ok := ctx.Value(scopeKey).(*requestScope)
	if !ok {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if tenantID != "" {
		sc.tenantID = tenantID
	}
	if sessionID != "" {
		sc.sessionID = sessionID
	}
}

func (sc *requestScope) fields() (string, string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.tenantID, sc.sessionID
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging creates request logging middleware. Metrics are labelled with the
// route pattern, not the raw path.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationHeader)
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			wrapped.Header().Set(CorrelationHeader, correlationID)

			scope := &requestScope{}
			ctx := context.WithValue(r.Context(), CorrelationIDKey, correlationID)
			r = r.WithContext(context.WithValue(ctx, scopeKey, scope))

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			tenantID, sessionID := scope.fields()
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", wrapped.statusCode),
				zap.Int64("bytes", wrapped.written),
				zap.Duration("duration", duration),
				zap.String("correlation_id", correlationID),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if tenantID != "" {
				fields = append(fields, zap.String("tenant_id", tenantID))
			}
			if sessionID != "" {
				fields = append(fields, zap.String("session_id", sessionID))
			}

			if wrapped.statusCode >= http.StatusInternalServerError {
				log.Error("request failed", fields...)
			} else {
				log.Info("request completed", fields...)
			}

			metrics.RecordRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), duration.Seconds())
		})
	}
}

// GetCorrelationID gets correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return v
	}
	return ""
}
