package model

import (
    "strconv"
    "time"
)

// TimeLayout is the wire format of every timestamp: UTC with microsecond
// precision and a literal Z suffix, e.g. 2024-05-01T09:30:00.123456Z.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp is a time.Time that always serializes in TimeLayout.
type Timestamp struct{ time.Time }

// NewTimestamp wraps t after converting it to UTC.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t.UTC()} }

func (t Timestamp) String() string { return t.UTC().Format(TimeLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
    return []byte(strconv.Quote(t.String())), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
    s, err := strconv.Unquote(string(b))
    if err != nil {
        return err
    }
    parsed, err := time.Parse(time.RFC3339Nano, s)
    if err != nil {
        return err
    }
    t.Time = parsed.UTC()
    return nil
}
