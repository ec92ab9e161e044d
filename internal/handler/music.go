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

type musicUpdateReq struct {
    MusicName *string `json:"musicName"`
    Author    *string `json:"author"`
    Category  *string `json:"category"`
}

// UploadMusic stores a multipart upload with fields file, musicName,
// author and category.
func (h *MediaHandler) UploadMusic(c echo.Context) error {
    fh, status, msg := formFile(c, "file", "No file provided", "No selected file")
    if msg != "" {
        return c.JSON(status, echo.Map{"error": msg})
    }
    m := &model.Music{
        MusicName: strings.TrimSpace(c.FormValue("musicName")),
        Author:    strings.TrimSpace(c.FormValue("author")),
        Category:  strings.TrimSpace(c.FormValue("category")),
    }
    if m.MusicName == "" || m.Author == "" || m.Category == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
    }

    src, err := fh.Open()
    if err != nil {
        logFailure(c, err, "open_upload")
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Could not read uploaded file"})
    }
    defer src.Close()

    // the copy runs as long as the client keeps sending; only the metadata write is bounded
    if err := h.Media.CreateMusic(c.Request().Context(), m, service.Upload{Filename: fh.Filename, Body: src}); err != nil {
        logFailure(c, err, "upload_music")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to upload music"})
    }
    invalidate(c, h.MusicCache)
    middleware.RecordUpload(model.KindMusic)

    return c.JSON(http.StatusCreated, echo.Map{
        "message":  "Music uploaded successfully!",
        "music_id": m.ID,
        "file_url": musicURLPrefix + m.FilePath,
    })
}

// ListMusic returns every track with its file URL.
func (h *MediaHandler) ListMusic(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    list, err := h.Media.ListMusic(ctx)
    if err != nil {
        logFailure(c, err, "list_music")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch music"})
    }
    for _, m := range list {
        if m.FilePath != "" {
            m.FileURL = musicURLPrefix + m.FilePath
        }
    }
    return c.JSON(http.StatusOK, list)
}

// UpdateMusic patches track metadata.  The file itself is immutable.
func (h *MediaHandler) UpdateMusic(c echo.Context) error {
    var req musicUpdateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
    }
    var (
        u  model.MusicUpdate
        ok = true
    )
    for _, f := range []struct {
        dst **string
        src *string
    }{{&u.MusicName, req.MusicName}, {&u.Author, req.Author}, {&u.Category, req.Category}} {
        v, valid := optionalString(f.src)
        *f.dst, ok = v, ok && valid
    }
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Fields cannot be empty"})
    }
    if u.Empty() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "No data provided"})
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    changed, err := h.Media.UpdateMusic(ctx, c.Param("id"), u)
    if errors.Is(err, repository.ErrMediaNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Music not found"})
    }
    if err != nil {
        logFailure(c, err, "update_music")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update music"})
    }
    if !changed {
        return c.JSON(http.StatusOK, echo.Map{"message": "No changes made"})
    }
    invalidate(c, h.MusicCache)
    return c.JSON(http.StatusOK, echo.Map{"message": "Music updated successfully"})
}

// DeleteMusic removes the track and its file.
func (h *MediaHandler) DeleteMusic(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    err := h.Media.DeleteMusic(ctx, c.Param("id"))
    if errors.Is(err, repository.ErrMediaNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Music not found"})
    }
    if err != nil {
        logFailure(c, err, "delete_music")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete music"})
    }
    invalidate(c, h.MusicCache)
    return c.JSON(http.StatusOK, echo.Map{"message": "Music deleted successfully"})
}

// ServeMusic streams a stored track from /uploads/:filename.
func (h *MediaHandler) ServeMusic(c echo.Context) error {
    return h.serveFile(c, model.KindMusic)
}
