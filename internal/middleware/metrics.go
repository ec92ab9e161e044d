package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // HTTP request metrics
    httpRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "mindful_http_requests_total",
            Help: "Total number of HTTP requests",
        },
        []string{"method", "path", "status"},
    )

    httpRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "mindful_http_request_duration_seconds",
            Help:    "HTTP request duration in seconds",
            Buckets: prometheus.DefBuckets,
        },
        []string{"method", "path"},
    )

    // Domain metrics
    predictionsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "mindful_predictions_total",
            Help: "Total number of text classifications by predicted label",
        },
        []string{"label"},
    )

    uploadsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "mindful_media_uploads_total",
            Help: "Total number of stored media uploads by kind",
        },
        []string{"kind"},
    )

    registrationsTotal = promauto.NewCounter(
        prometheus.CounterOpts{
            Name: "mindful_registrations_total",
            Help: "Total number of registered users",
        },
    )

    // Error metrics
    errorsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "mindful_errors_total",
            Help: "Total number of internal errors by type",
        },
        []string{"type"},
    )
)

// Metrics returns a middleware that records request counts and latencies.
// Paths are the registered route patterns, so ids never become labels.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the final status first
                c.Error(err)
            }

            path := c.Path()
            if path == "" {
                path = "unmatched"
            }
            status := strconv.Itoa(c.Response().Status)
            httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
            httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
            return nil
        }
    }
}

// RecordPrediction counts a classification result.
func RecordPrediction(label string) { predictionsTotal.WithLabelValues(label).Inc() }

// RecordUpload counts a stored media file.
func RecordUpload(kind string) { uploadsTotal.WithLabelValues(kind).Inc() }

// RecordRegistration counts a new account.
func RecordRegistration() { registrationsTotal.Inc() }

// RecordError counts an internal failure of the given type, e.g. "db" or
// "storage".
func RecordError(typ string) { errorsTotal.WithLabelValues(typ).Inc() }
