// Package inference wraps the pre-trained text classifier that maps free
// text to a mental-health category label.
package inference

import (
    "errors"
    "math"
    "regexp"
    "strings"

    "github.com/sirupsen/logrus"
)

// ErrUnavailable is returned by Classify when no model could be loaded.
var ErrUnavailable = errors.New("model not loaded")

// Adapter holds a model loaded once at startup.  It is safe for concurrent
// use; the model is never mutated after loading.
type Adapter struct {
    model *Model
    err   error
}

// Load reads the model at path.  A failure is logged and leaves the adapter
// unavailable; there is no reload.
func Load(path string) *Adapter {
    m, err := ReadModel(path)
    if err != nil {
        logrus.WithError(err).WithField("path", path).Error("inference: model not loaded")
        return &Adapter{err: err}
    }
    logrus.WithFields(logrus.Fields{"path": path, "labels": len(m.Labels), "features": len(m.IDF)}).Info("inference: model loaded")
    return &Adapter{model: m}
}

// New wraps an already decoded model.
func New(m *Model) *Adapter {
    if m == nil {
        return &Adapter{err: ErrUnavailable}
    }
    return &Adapter{model: m}
}

// Available reports whether a model is loaded.
func (a *Adapter) Available() bool { return a != nil && a.model != nil }

// Err returns the load failure, if any.
func (a *Adapter) Err() error {
    if a == nil {
        return ErrUnavailable
    }
    return a.err
}

// Classify returns the label with the highest decision score for text.
func (a *Adapter) Classify(text string) (string, error) {
    if !a.Available() {
        return "", ErrUnavailable
    }
    m := a.model
    scores := m.scores(m.features(text))
    best := 0
    for i, s := range scores {
        if math.IsNaN(s) {
            return "", errors.New("non-finite decision score")
        }
        if s > scores[best] {
            best = i
        }
    }
    if m.binary() {
        if scores[0] > 0 {
            return m.Labels[1], nil
        }
        return m.Labels[0], nil
    }
    return m.Labels[best], nil
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokens splits text into word tokens of at least two characters.
func (m *Model) tokens(text string) []string {
    if m.Lowercase {
        text = strings.ToLower(text)
    }
    var out []string
    for _, t := range tokenPattern.FindAllString(text, -1) {
        if len([]rune(t)) >= 2 {
            out = append(out, t)
        }
    }
    return out
}

// features returns the L2-normalised tf-idf vector of text as a sparse
// index to weight map.  Terms outside the vocabulary are ignored.
func (m *Model) features(text string) map[int]float64 {
    toks := m.tokens(text)
    counts := map[int]float64{}
    for n := 1; n <= m.NgramMax; n++ {
        for i := 0; i+n <= len(toks); i++ {
            if idx, ok := m.Vocabulary[strings.Join(toks[i:i+n], " ")]; ok {
                counts[idx]++
            }
        }
    }
    var norm float64
    for idx, tf := range counts {
        if m.SublinearTF {
            tf = 1 + math.Log(tf)
        }
        w := tf * m.IDF[idx]
        counts[idx] = w
        norm += w * w
    }
    if norm > 0 {
        norm = math.Sqrt(norm)
        for idx := range counts {
            counts[idx] /= norm
        }
    }
    return counts
}

func (m *Model) scores(x map[int]float64) []float64 {
    out := make([]float64, len(m.Coef))
    for c, row := range m.Coef {
        s := m.Intercept[c]
        for idx, v := range x {
            s += row[idx] * v
        }
        out[c] = s
    }
    return out
}
