package handler

import (
    "context"
    "encoding/json"
    "errors"
    "mime/multipart"
    "net/http"
    "os"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/spf13/afero"

    "github.com/iliyamo/mindful-backend/internal/model"
    "github.com/iliyamo/mindful-backend/internal/service"
    "github.com/iliyamo/mindful-backend/internal/storage"
)

// MediaManager is the media service seen by the music and exercise
// handlers.
type MediaManager interface {
    CreateMusic(ctx context.Context, m *model.Music, up service.Upload) error
    ListMusic(ctx context.Context) ([]*model.Music, error)
    UpdateMusic(ctx context.Context, id string, u model.MusicUpdate) (bool, error)
    DeleteMusic(ctx context.Context, id string) error
    CreateExercise(ctx context.Context, e *model.Exercise, up service.Upload) error
    ListExercises(ctx context.Context) ([]*model.Exercise, error)
    UpdateExercise(ctx context.Context, id string, u model.ExerciseUpdate) (bool, error)
    DeleteExercise(ctx context.Context, id string) error
    Open(kind, name string) (afero.File, error)
}

// MediaHandler serves the public music and exercise video endpoints.
// MusicCache and ExerciseCache are dropped after every write to their
// listing.
type MediaHandler struct {
    Media         MediaManager
    MusicCache    Invalidator
    ExerciseCache Invalidator
}

func NewMediaHandler(media MediaManager, musicCache, exerciseCache Invalidator) *MediaHandler {
    return &MediaHandler{Media: media, MusicCache: musicCache, ExerciseCache: exerciseCache}
}

// URL prefixes the stored files are served under.
const (
    musicURLPrefix    = "/uploads/"
    exerciseURLPrefix = "/uploads/" + model.KindExercise + "/"
)

// formFile fetches a required multipart file field.  On failure it returns
// the status and message to answer with.
func formFile(c echo.Context, field, missing, unnamed string) (*multipart.FileHeader, int, string) {
    fh, err := c.FormFile(field)
    if err != nil {
        var he *echo.HTTPError
        if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
            return nil, http.StatusRequestEntityTooLarge, "File too large"
        }
        return nil, http.StatusBadRequest, missing
    }
    if fh.Filename == "" {
        return nil, http.StatusBadRequest, unnamed
    }
    return fh, 0, ""
}

// optionalString trims a patch value.  Empty values are rejected so a
// patch cannot blank a required field.
func optionalString(v *string) (*string, bool) {
    if v == nil {
        return nil, true
    }
    s := strings.TrimSpace(*v)
    if s == "" {
        return nil, false
    }
    return &s, true
}

// instructionList accepts either a JSON array of strings or a single
// newline separated string.
type instructionList []string

func (l *instructionList) UnmarshalJSON(b []byte) error {
    var list []string
    if err := json.Unmarshal(b, &list); err == nil {
        *l = list
        return nil
    }
    var s string
    if err := json.Unmarshal(b, &s); err != nil {
        return errors.New("instructions must be a string or a list of strings")
    }
    *l = splitInstructions(s)
    return nil
}

// splitInstructions breaks s into one instruction per line.  Blank lines
// are dropped.
func splitInstructions(s string) []string {
    out := []string{}
    for _, line := range strings.Split(s, "\n") {
        if line = strings.TrimSpace(line); line != "" {
            out = append(out, line)
        }
    }
    return out
}

// serveFile streams a stored media file.  Range requests are honoured.
func (h *MediaHandler) serveFile(c echo.Context, kind string) error {
    name := c.Param("filename")
    f, err := h.Media.Open(kind, name)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "File not found"})
        }
        logFailure(c, err, "serve_media")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to read file"})
    }
    defer f.Close()

    st, err := f.Stat()
    if err != nil {
        logFailure(c, err, "serve_media")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to read file"})
    }
    http.ServeContent(c.Response(), c.Request(), name, st.ModTime(), f)
    return nil
}

// InvalidUploadDir answers requests for an unknown upload sub-directory.
func (h *MediaHandler) InvalidUploadDir(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": "Invalid directory"})
}
