package inference

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "strings"

    "github.com/klauspost/compress/zstd"
)

// Model is an exported linear text classification pipeline: a TF-IDF
// vectorizer followed by a one-vs-rest linear classifier.
type Model struct {
    Labels      []string       `json:"labels"`
    Vocabulary  map[string]int `json:"vocabulary"`
    IDF         []float64      `json:"idf"`
    Coef        [][]float64    `json:"coef"`
    Intercept   []float64      `json:"intercept"`
    NgramMax    int            `json:"ngram_max"`
    Lowercase   bool           `json:"lowercase"`
    SublinearTF bool           `json:"sublinear_tf"`
}

// ReadModel loads a model from path.  Files ending in .zst are
// decompressed first.
func ReadModel(path string) (*Model, error) {
    f, err := os.Open(path)
    if err != nil {
        return nil, err
    }
    defer f.Close()

    var r io.Reader = f
    if strings.HasSuffix(path, ".zst") {
        dec, err := zstd.NewReader(f)
        if err != nil {
            return nil, fmt.Errorf("zstd: %w", err)
        }
        defer dec.Close()
        r = dec
    }
    return DecodeModel(r)
}

// DecodeModel parses and validates a JSON model.
func DecodeModel(r io.Reader) (*Model, error) {
    var m Model
    if err := json.NewDecoder(r).Decode(&m); err != nil {
        return nil, fmt.Errorf("decode model: %w", err)
    }
    if err := m.validate(); err != nil {
        return nil, err
    }
    return &m, nil
}

func (m *Model) binary() bool { return len(m.Coef) == 1 && len(m.Labels) == 2 }

func (m *Model) validate() error {
    if len(m.Labels) == 0 {
        return errors.New("model has no labels")
    }
    if len(m.Coef) != len(m.Labels) && !m.binary() {
        return fmt.Errorf("model has %d coefficient rows for %d labels", len(m.Coef), len(m.Labels))
    }
    if len(m.Intercept) != len(m.Coef) {
        return fmt.Errorf("model has %d intercepts for %d coefficient rows", len(m.Intercept), len(m.Coef))
    }
    for i, row := range m.Coef {
        if len(row) != len(m.IDF) {
            return fmt.Errorf("coefficient row %d has %d features, want %d", i, len(row), len(m.IDF))
        }
    }
    for term, idx := range m.Vocabulary {
        if idx < 0 || idx >= len(m.IDF) {
            return fmt.Errorf("vocabulary term %q has out of range index %d", term, idx)
        }
    }
    if m.NgramMax < 1 {
        m.NgramMax = 1
    }
    return nil
}
