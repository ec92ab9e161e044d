package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/mindful-backend/internal/middleware"
    "github.com/iliyamo/mindful-backend/internal/model"
    "github.com/iliyamo/mindful-backend/internal/repository"
    "github.com/iliyamo/mindful-backend/internal/service"
)

type exerciseUpdateReq struct {
    ExerciseName *string          `json:"exerciseName"`
    Category     *string          `json:"category"`
    Duration     *string          `json:"duration"`
    Difficulty   *string          `json:"difficulty"`
    Description  *string          `json:"description"`
    Instructions *instructionList `json:"instructions"`
}

// UploadExercise stores a multipart upload with fields video,
// exerciseName, category and duration, plus the optional difficulty,
// description and newline separated instructions.
func (h *MediaHandler) UploadExercise(c echo.Context) error {
    fh, status, msg := formFile(c, "video", "No video file provided", "No selected video file")
    if msg != "" {
        return c.JSON(status, echo.Map{"error": msg})
    }
    e := &model.Exercise{
        ExerciseName: strings.TrimSpace(c.FormValue("exerciseName")),
        Category:     strings.TrimSpace(c.FormValue("category")),
        Duration:     strings.TrimSpace(c.FormValue("duration")),
        Difficulty:   strings.TrimSpace(c.FormValue("difficulty")),
        Description:  c.FormValue("description"),
        Instructions: splitInstructions(c.FormValue("instructions")),
    }
    if e.ExerciseName == "" || e.Category == "" || e.Duration == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
    }

    src, err := fh.Open()
    if err != nil {
        logFailure(c, err, "open_upload")
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Could not read uploaded file"})
    }
    defer src.Close()

    // the copy runs as long as the client keeps sending; only the metadata write is bounded
    if err := h.Media.CreateExercise(c.Request().Context(), e, service.Upload{Filename: fh.Filename, Body: src}); err != nil {
        logFailure(c, err, "upload_exercise")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to upload exercise"})
    }
    invalidate(c, h.ExerciseCache)
    middleware.RecordUpload(model.KindExercise)

    return c.JSON(http.StatusCreated, echo.Map{
        "message":     "Exercise uploaded successfully!",
        "exercise_id": e.ID,
        "video_url":   exerciseURLPrefix + e.FilePath,
    })
}

// ListExercises returns every exercise with its video URL.
func (h *MediaHandler) ListExercises(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    list, err := h.Media.ListExercises(ctx)
    if err != nil {
        logFailure(c, err, "list_exercises")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch exercises"})
    }
    for _, e := range list {
        if e.FilePath != "" {
            e.VideoURL = exerciseURLPrefix + e.FilePath
        }
    }
    return c.JSON(http.StatusOK, list)
}

// UpdateExercise patches exercise metadata.  description may be set to
// the empty string; the other text fields may not.
func (h *MediaHandler) UpdateExercise(c echo.Context) error {
    var req exerciseUpdateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
    }
    var (
        u  model.ExerciseUpdate
        ok = true
    )
    for _, f := range []struct {
        dst **string
        src *string
    }{
        {&u.ExerciseName, req.ExerciseName},
        {&u.Category, req.Category},
        {&u.Duration, req.Duration},
        {&u.Difficulty, req.Difficulty},
    } {
        v, valid := optionalString(f.src)
        *f.dst, ok = v, ok && valid
    }
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Fields cannot be empty"})
    }
    u.Description = req.Description
    if req.Instructions != nil {
        list := []string(*req.Instructions)
        u.Instructions = &list
    }
    if u.Empty() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "No data provided"})
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    changed, err := h.Media.UpdateExercise(ctx, c.Param("id"), u)
    if errors.Is(err, repository.ErrMediaNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Exercise not found"})
    }
    if err != nil {
        logFailure(c, err, "update_exercise")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update exercise"})
    }
    if !changed {
        return c.JSON(http.StatusOK, echo.Map{"message": "No changes made"})
    }
    invalidate(c, h.ExerciseCache)
    return c.JSON(http.StatusOK, echo.Map{"message": "Exercise updated successfully"})
}

// DeleteExercise removes the exercise and its video.
func (h *MediaHandler) DeleteExercise(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    err := h.Media.DeleteExercise(ctx, c.Param("id"))
    if errors.Is(err, repository.ErrMediaNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Exercise not found"})
    }
    if err != nil {
        logFailure(c, err, "delete_exercise")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete exercise"})
    }
    invalidate(c, h.ExerciseCache)
    return c.JSON(http.StatusOK, echo.Map{"message": "Exercise deleted successfully"})
}

// ServeExercise streams a stored video from /uploads/exercise_videos/:filename.
func (h *MediaHandler) ServeExercise(c echo.Context) error {
    return h.serveFile(c, model.KindExercise)
}
