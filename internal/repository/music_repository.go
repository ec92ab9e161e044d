package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/mindful-backend/internal/model"
)

// MusicRepo stores music metadata.  Ids are generated by the caller so the
// uploaded file can be named before the row exists.
type MusicRepo struct {
	db *sql.DB
}

func NewMusicRepo(db *sql.DB) *MusicRepo { return &MusicRepo{db: db} }

// Create inserts a fully populated record, including its file path.
func (r *MusicRepo) Create(ctx context.Context, m *model.Music) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO music (id, music_name, author, category, file_path, created_at) VALUES (?,?,?,?,?,?)",
		m.ID, m.MusicName, m.Author, m.Category, m.FilePath, now)
	if err != nil {
		return fmt.Errorf("insert music: %w", err)
	}
	m.CreatedAt = model.NewTimestamp(now)
	return nil
}

// List returns all tracks, newest first.
func (r *MusicRepo) List(ctx context.Context) ([]*model.Music, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, music_name, author, category, file_path, created_at FROM music ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list music: %w", err)
	}
	defer rows.Close()

	out := []*model.Music{}
	for rows.Next() {
		m, err := scanMusic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list music: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields of u.  It reports whether the row
// changed; an unknown id yields ErrMediaNotFound.
func (r *MusicRepo) Update(ctx context.Context, id string, u model.MusicUpdate) (bool, error) {
	var (
		sets []string
		args []any
	)
	if u.MusicName != nil {
		sets, args = append(sets, "music_name = ?"), append(args, *u.MusicName)
	}
	if u.Author != nil {
		sets, args = append(sets, "author = ?"), append(args, *u.Author)
	}
	if u.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *u.Category)
	}
	return updateMedia(ctx, r.db, "music", id, sets, args)
}

// Delete removes the row and returns it so the caller can clean up the file.
func (r *MusicRepo) Delete(ctx context.Context, id string) (*model.Music, error) {
	var out *model.Music
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := scanMusic(tx.QueryRowContext(ctx,
			"SELECT id, music_name, author, category, file_path, created_at FROM music WHERE id = ? FOR UPDATE", id))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM music WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete music: %w", err)
		}
		out = m
		return nil
	})
	return out, err
}

func scanMusic(s scanner) (*model.Music, error) {
	var (
		m       model.Music
		created time.Time
	)
	if err := s.Scan(&m.ID, &m.MusicName, &m.Author, &m.Category, &m.FilePath, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("scan music: %w", err)
	}
	m.CreatedAt = model.NewTimestamp(created)
	return &m, nil
}

// updateMedia runs an UPDATE built from sets.  MySQL reports zero affected
// rows both for unknown ids and for no-op updates, so an existence check
// tells the two apart.
func updateMedia(ctx context.Context, db *sql.DB, table, id string, sets []string, args []any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrMediaNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", table, err)
	}
	if len(sets) == 0 {
		return false, nil
	}
	res, err := db.ExecContext(ctx,
		"UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", append(args, id)...)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: %w", table, err)
	}
	return n > 0, nil
}
