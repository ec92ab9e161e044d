package model

// MoodEntry is a single mood journal record.
type MoodEntry struct {
    ID        uint64    `json:"_id"`
    UserID    uint64    `json:"user_id"`
    Mood      string    `json:"mood"`
    Notes     string    `json:"notes"`
    CreatedAt Timestamp `json:"created_at"`
}
