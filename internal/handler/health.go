package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bound the database ping
    "net/http" // net/http provides status codes and response helpers
    "time"     // ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// HealthHandler reports liveness of the process and its dependencies.
type HealthHandler struct {
    DB    Pinger
    Model Classifier
}

func NewHealthHandler(db Pinger, model Classifier) *HealthHandler {
    return &HealthHandler{DB: db, Model: model}
}

// Health is used by load balancers and monitoring systems.  It answers 200
// while the database is reachable and 503 otherwise.  A missing model only
// degrades /api/predict, so it is reported but does not fail the check.
func (h *HealthHandler) Health(c echo.Context) error {
    status, code := "ok", http.StatusOK
    db := "up"
    if h.DB != nil {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := h.DB.PingContext(ctx); err != nil {
            status, code, db = "degraded", http.StatusServiceUnavailable, "down"
        }
    }
    model := "loaded"
    if h.Model == nil || !h.Model.Available() {
        model = "unavailable"
    }
    return c.JSON(code, echo.Map{"status": status, "database": db, "model": model})
}
