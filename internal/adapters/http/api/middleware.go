package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/pitwall/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class per
// endpoint. endpoint is the route pattern, never the raw path, so ids do not
// become label values.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		code := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, time.Since(start).Seconds())
		if sw.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorClass(sw.status))
		}
	}
}

// errorClass buckets a failing status into a low-cardinality label.
func errorClass(status int) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return errCodeNotReady
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return errCodeNotFound
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
