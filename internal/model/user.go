package model

// User represents an application user as stored in the `users` table.
// PasswordHash never leaves the process: it is skipped by encoding/json.
type User struct {
    ID           uint64    `json:"id"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    CreatedAt    Timestamp `json:"created_at"`
}
