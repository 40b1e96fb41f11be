// metrics.go — Prometheus HTTP метрики BFF.
// Регистрирует метрики: wb_http_requests_total, wb_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики BFF
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wb_http_requests_total",
			Help: "Общее количество HTTP-запросов к рабочему месту",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wb_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к рабочему месту в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

const viewsPrefix = "/api/v1/views/"

// pathParams — шаблон сегмента, следующего за именованным сегментом.
var pathParams = map[string]string{
	"filters": "{field}",
	"facets":  "{facet}",
	"records": "{id}",
}

// normalizePath заменяет идентификаторы в пути на шаблоны
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/views/a1b2.../filters/anio → /api/v1/views/{id}/filters/{field}
// /api/v1/views/a1b2.../records/L-1/delete → /api/v1/views/{id}/records/{id}/delete
func normalizePath(path string) string {
	if !strings.HasPrefix(path, viewsPrefix) {
		switch path {
		case "/health/live", "/health/ready", "/metrics", "/api/v1/views", "/api/v1/views/":
			return path
		}
		return "other"
	}

	parts := strings.Split(strings.TrimPrefix(path, viewsPrefix), "/")
	parts[0] = "{id}"
	if len(parts) >= 2 {
		if param, ok := pathParams[parts[1]]; ok && len(parts) >= 3 {
			parts[2] = param
		}
	}
	return viewsPrefix + strings.Join(parts, "/")
}
