package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/mindful-backend/internal/model"
)

// MoodRepo persists the append-only mood journal.
type MoodRepo struct {
	db *sql.DB
}

func NewMoodRepo(db *sql.DB) *MoodRepo { return &MoodRepo{db: db} }

// Create inserts an entry stamped with the current UTC time.
func (r *MoodRepo) Create(ctx context.Context, m *model.MoodEntry) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO mood_entries (user_id, mood, notes, created_at) VALUES (?,?,?,?)",
		m.UserID, m.Mood, m.Notes, now)
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	m.ID = uint64(id)
	m.CreatedAt = model.NewTimestamp(now)
	return nil
}

// ListByUser returns the user's history, most recent first.  Entries with
// the same timestamp fall back to insertion order, newest first.
func (r *MoodRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.MoodEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, mood, notes, created_at FROM mood_entries
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list mood entries: %w", err)
	}
	defer rows.Close()

	out := []*model.MoodEntry{}
	for rows.Next() {
		var (
			m       model.MoodEntry
			created time.Time
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Mood, &m.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		m.CreatedAt = model.NewTimestamp(created)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mood entries: %w", err)
	}
	return out, nil
}
