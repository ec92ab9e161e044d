package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/mindful-backend/internal/model"
    q "github.com/iliyamo/mindful-backend/internal/queue"
    "github.com/iliyamo/mindful-backend/internal/service"
)

// MoodHandler serves the caller's mood journal.
type MoodHandler struct {
    Moods  MoodStore
    Events service.EventPublisher
}

func NewMoodHandler(moods MoodStore, events service.EventPublisher) *MoodHandler {
    if events == nil {
        events = service.NopPublisher{}
    }
    return &MoodHandler{Moods: moods, Events: events}
}

type moodReq struct {
    Mood  string `json:"mood" validate:"required" msg:"Mood is required"`
    Notes string `json:"notes"`
}

func (r *moodReq) normalize() { r.Mood = strings.TrimSpace(r.Mood) }

func (h *MoodHandler) Create(c echo.Context) error {
    var req moodReq
    if msg := bindRequest(c, &req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    uid := currentUser(c)

    ctx, cancel := storeCtx(c)
    defer cancel()

    m := &model.MoodEntry{UserID: uid, Mood: req.Mood, Notes: req.Notes}
    if err := h.Moods.Create(ctx, m); err != nil {
        logFailure(c, err, "log_mood")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to log mood"})
    }

    ev := q.NewActivityEvent(q.EventMoodLogged, uid)
    ev.Mood = m.Mood
    service.PublishAsync(h.Events, ev)
    return c.JSON(http.StatusCreated, echo.Map{"message": "Mood logged successfully", "mood_entry": m})
}

// List returns the caller's history, newest first.
func (h *MoodHandler) List(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    entries, err := h.Moods.ListByUser(ctx, currentUser(c))
    if err != nil {
        logFailure(c, err, "mood_history")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch mood history"})
    }
    return c.JSON(http.StatusOK, entries)
}
