package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/mindful-backend/internal/inference"
    "github.com/iliyamo/mindful-backend/internal/middleware"
)

// Classifier maps free text to a category label.
type Classifier interface {
    Available() bool
    Classify(text string) (string, error)
}

type PredictHandler struct {
    Model Classifier
}

func NewPredictHandler(m Classifier) *PredictHandler { return &PredictHandler{Model: m} }

type predictReq struct {
    Text *string `json:"text"`
}

// Predict answers with the bare label as a JSON string.
func (h *PredictHandler) Predict(c echo.Context) error {
    if h.Model == nil || !h.Model.Available() {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Model not loaded"})
    }
    var req predictReq
    if err := c.Bind(&req); err != nil || req.Text == nil || strings.TrimSpace(*req.Text) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Valid text input is required"})
    }

    label, err := h.Model.Classify(*req.Text)
    if errors.Is(err, inference.ErrUnavailable) {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Model not loaded"})
    }
    if err != nil {
        logFailure(c, err, "predict")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Prediction failed: " + err.Error()})
    }
    middleware.RecordPrediction(label)
    return c.JSON(http.StatusOK, label)
}
