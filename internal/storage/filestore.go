// Package storage keeps uploaded media files on a filesystem tree
// partitioned by asset kind. Writes go through a per-kind staging
// directory and are moved into place with a rename, so a file is either
// fully present under its final name or absent.
package storage

import (
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/afero"
)

const stagingDir = ".staging"

// ErrInvalidName is returned for file names that are empty, hidden or that
// would escape the kind directory.
var ErrInvalidName = errors.New("invalid file name")

// FileStore roots all media under a single directory of fs.
type FileStore struct {
    fs   afero.Fs
    root string
}

// New returns a store rooted at root.  Use afero.NewOsFs() in production
// and afero.NewMemMapFs() in tests.
func New(fs afero.Fs, root string) *FileStore {
    return &FileStore{fs: fs, root: root}
}

// ValidName reports whether name is a bare file name safe to join onto a
// kind directory.
func ValidName(name string) bool {
    if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
        return false
    }
    return !strings.ContainsAny(name, `/\`)
}

func (s *FileStore) dir(kind string) string     { return filepath.Join(s.root, kind) }
func (s *FileStore) staging(kind string) string { return filepath.Join(s.root, kind, stagingDir) }

// Stage copies r into the staging area of kind under name and returns the
// number of bytes written.  A partial file is removed on error.
func (s *FileStore) Stage(kind, name string, r io.Reader) (int64, error) {
    if !ValidName(name) {
        return 0, ErrInvalidName
    }
    if err := s.fs.MkdirAll(s.staging(kind), 0o755); err != nil {
        return 0, fmt.Errorf("mkdir staging: %w", err)
    }
    path := filepath.Join(s.staging(kind), name)
    f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
    if err != nil {
        return 0, fmt.Errorf("create staged file: %w", err)
    }
    n, err := io.Copy(f, r)
    if cerr := f.Close(); err == nil {
        err = cerr
    }
    if err != nil {
        _ = s.fs.Remove(path)
        return 0, fmt.Errorf("write staged file: %w", err)
    }
    return n, nil
}

// Commit moves a staged file into the kind directory.
func (s *FileStore) Commit(kind, name string) error {
    if !ValidName(name) {
        return ErrInvalidName
    }
    if err := s.fs.Rename(filepath.Join(s.staging(kind), name), filepath.Join(s.dir(kind), name)); err != nil {
        return fmt.Errorf("commit %s/%s: %w", kind, name, err)
    }
    return nil
}

// Discard drops a staged file that will not be committed.
func (s *FileStore) Discard(kind, name string) {
    if ValidName(name) {
        _ = s.fs.Remove(filepath.Join(s.staging(kind), name))
    }
}

// Remove deletes a committed file.  A missing file is not an error.
func (s *FileStore) Remove(kind, name string) error {
    if !ValidName(name) {
        return ErrInvalidName
    }
    err := s.fs.Remove(filepath.Join(s.dir(kind), name))
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        return fmt.Errorf("remove %s/%s: %w", kind, name, err)
    }
    return nil
}

// Open returns a committed file for reading.  Unknown names yield an error
// matching os.ErrNotExist.
func (s *FileStore) Open(kind, name string) (afero.File, error) {
    if !ValidName(name) {
        return nil, ErrInvalidName
    }
    f, err := s.fs.Open(filepath.Join(s.dir(kind), name))
    if err != nil {
        return nil, err
    }
    st, err := f.Stat()
    if err != nil || st.IsDir() {
        _ = f.Close()
        return nil, os.ErrNotExist
    }
    return f, nil
}

// SweepStaging removes files left in the staging areas of kinds by an
// interrupted upload and returns how many were removed.
func (s *FileStore) SweepStaging(kinds ...string) (int, error) {
    removed := 0
    for _, kind := range kinds {
        entries, err := afero.ReadDir(s.fs, s.staging(kind))
        if errors.Is(err, os.ErrNotExist) {
            continue
        }
        if err != nil {
            return removed, fmt.Errorf("read staging %s: %w", kind, err)
        }
        for _, e := range entries {
            if err := s.fs.RemoveAll(filepath.Join(s.staging(kind), e.Name())); err != nil {
                return removed, fmt.Errorf("sweep %s/%s: %w", kind, e.Name(), err)
            }
            removed++
        }
    }
    return removed, nil
}
