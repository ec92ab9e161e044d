package service

import (
    "context"
    "errors"
    "fmt"
    "io"
    "path/filepath"
    "regexp"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"
    "github.com/spf13/afero"

    "github.com/iliyamo/mindful-backend/internal/model"
    "github.com/iliyamo/mindful-backend/internal/storage"
)

// MusicStore is the metadata store for music tracks.
type MusicStore interface {
    Create(ctx context.Context, m *model.Music) error
    List(ctx context.Context) ([]*model.Music, error)
    Update(ctx context.Context, id string, u model.MusicUpdate) (bool, error)
    Delete(ctx context.Context, id string) (*model.Music, error)
}

// ExerciseStore is the metadata store for exercise videos.
type ExerciseStore interface {
    Create(ctx context.Context, e *model.Exercise) error
    List(ctx context.Context) ([]*model.Exercise, error)
    Update(ctx context.Context, id string, u model.ExerciseUpdate) (bool, error)
    Delete(ctx context.Context, id string) (*model.Exercise, error)
}

// Upload is an incoming media file.  Filename is the client-supplied name
// and only contributes its extension.
type Upload struct {
    Filename string
    Body     io.Reader
}

// MediaService keeps media files and their metadata rows in step.  A file
// is written to staging, renamed into place and only then registered, so
// a listed asset always has its file.
type MediaService struct {
    files     *storage.FileStore
    music     MusicStore
    exercises ExerciseStore
    newID     func() string
    // registerTimeout bounds the metadata write that follows a copied upload.
    registerTimeout time.Duration
}

func NewMediaService(files *storage.FileStore, music MusicStore, exercises ExerciseStore) *MediaService {
    return &MediaService{
        files: files, music: music, exercises: exercises,
        newID:           uuid.NewString,
        registerTimeout: 5 * time.Second,
    }
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// storedName builds the on-disk name from the asset id and the original
// extension.  Extensions that are not plain alphanumerics are dropped.
func storedName(id, original string) string {
    ext := filepath.Ext(filepath.Base(original))
    if !extPattern.MatchString(ext) {
        ext = ""
    }
    return id + ext
}

// store writes up into kind and then runs register under registerTimeout.
// The copy itself is bounded only by ctx.  If register fails the committed
// file is removed again.
func (s *MediaService) store(ctx context.Context, kind string, up Upload, register func(ctx context.Context, id, name string) error) error {
    id := s.newID()
    name := storedName(id, up.Filename)
    log := logrus.WithFields(logrus.Fields{"kind": kind, "file": name})

    if _, err := s.files.Stage(kind, name, up.Body); err != nil {
        return fmt.Errorf("stage upload: %w", err)
    }
    if err := s.files.Commit(kind, name); err != nil {
        s.files.Discard(kind, name)
        return fmt.Errorf("commit upload: %w", err)
    }
    if err := ctx.Err(); err != nil {
        s.cleanup(log, kind, name)
        return err
    }
    rctx, cancel := context.WithTimeout(ctx, s.registerTimeout)
    defer cancel()
    if err := register(rctx, id, name); err != nil {
        s.cleanup(log, kind, name)
        return err
    }
    log.Info("media stored")
    return nil
}

func (s *MediaService) cleanup(log *logrus.Entry, kind, name string) {
    if err := s.files.Remove(kind, name); err != nil {
        log.WithError(err).Error("remove orphaned upload")
    }
}

// CreateMusic stores the uploaded track and its metadata.  On success m
// carries the new id and file path.
func (s *MediaService) CreateMusic(ctx context.Context, m *model.Music, up Upload) error {
    return s.store(ctx, model.KindMusic, up, func(ctx context.Context, id, name string) error {
        m.ID, m.FilePath = id, name
        return s.music.Create(ctx, m)
    })
}

// CreateExercise stores the uploaded video and its metadata.
func (s *MediaService) CreateExercise(ctx context.Context, e *model.Exercise, up Upload) error {
    if e.Difficulty == "" {
        e.Difficulty = "Beginner"
    }
    if e.Instructions == nil {
        e.Instructions = []string{}
    }
    return s.store(ctx, model.KindExercise, up, func(ctx context.Context, id, name string) error {
        e.ID, e.FilePath = id, name
        return s.exercises.Create(ctx, e)
    })
}

func (s *MediaService) ListMusic(ctx context.Context) ([]*model.Music, error) {
    return s.music.List(ctx)
}

func (s *MediaService) ListExercises(ctx context.Context) ([]*model.Exercise, error) {
    return s.exercises.List(ctx)
}

// UpdateMusic patches metadata only and reports whether anything changed.
func (s *MediaService) UpdateMusic(ctx context.Context, id string, u model.MusicUpdate) (bool, error) {
    return s.music.Update(ctx, id, u)
}

func (s *MediaService) UpdateExercise(ctx context.Context, id string, u model.ExerciseUpdate) (bool, error) {
    return s.exercises.Update(ctx, id, u)
}

// DeleteMusic removes the metadata row and then the file.  A file that
// cannot be removed is logged and left behind; the asset is gone either way.
func (s *MediaService) DeleteMusic(ctx context.Context, id string) error {
    m, err := s.music.Delete(ctx, id)
    if err != nil {
        return err
    }
    s.removeFile(model.KindMusic, m.FilePath)
    return nil
}

func (s *MediaService) DeleteExercise(ctx context.Context, id string) error {
    e, err := s.exercises.Delete(ctx, id)
    if err != nil {
        return err
    }
    s.removeFile(model.KindExercise, e.FilePath)
    return nil
}

func (s *MediaService) removeFile(kind, name string) {
    if name == "" {
        return
    }
    if err := s.files.Remove(kind, name); err != nil && !errors.Is(err, storage.ErrInvalidName) {
        logrus.WithError(err).WithFields(logrus.Fields{"kind": kind, "file": name}).Warn("remove media file")
    }
}

// Open returns a committed media file of kind for streaming.
func (s *MediaService) Open(kind, name string) (afero.File, error) {
    return s.files.Open(kind, name)
}

// SweepStaging clears uploads interrupted by a crash.  Call it once at
// startup before serving requests.
func (s *MediaService) SweepStaging() (int, error) {
    return s.files.SweepStaging(model.KindMusic, model.KindExercise)
}
