package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/mindful-backend/internal/model"
)

// ExerciseRepo stores exercise video metadata.  Instructions are kept as a
// JSON array column.
type ExerciseRepo struct {
	db *sql.DB
}

func NewExerciseRepo(db *sql.DB) *ExerciseRepo { return &ExerciseRepo{db: db} }

const exerciseColumns = "id, exercise_name, category, duration, difficulty, description, instructions, file_path, created_at"

func (r *ExerciseRepo) Create(ctx context.Context, e *model.Exercise) error {
	if e.Instructions == nil {
		e.Instructions = []string{}
	}
	instr, err := json.Marshal(e.Instructions)
	if err != nil {
		return fmt.Errorf("encode instructions: %w", err)
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO exercises ("+exerciseColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		e.ID, e.ExerciseName, e.Category, e.Duration, e.Difficulty, e.Description, string(instr), e.FilePath, now)
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	e.CreatedAt = model.NewTimestamp(now)
	return nil
}

func (r *ExerciseRepo) List(ctx context.Context) ([]*model.Exercise, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+exerciseColumns+" FROM exercises ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	out := []*model.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields of u and reports whether the row changed.
func (r *ExerciseRepo) Update(ctx context.Context, id string, u model.ExerciseUpdate) (bool, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets, args = append(sets, col+" = ?"), append(args, *v)
		}
	}
	add("exercise_name", u.ExerciseName)
	add("category", u.Category)
	add("duration", u.Duration)
	add("difficulty", u.Difficulty)
	add("description", u.Description)
	if u.Instructions != nil {
		list := *u.Instructions
		if list == nil {
			list = []string{}
		}
		instr, err := json.Marshal(list)
		if err != nil {
			return false, fmt.Errorf("encode instructions: %w", err)
		}
		sets, args = append(sets, "instructions = ?"), append(args, string(instr))
	}
	return updateMedia(ctx, r.db, "exercises", id, sets, args)
}

// Delete removes the row and returns it so the caller can clean up the file.
func (r *ExerciseRepo) Delete(ctx context.Context, id string) (*model.Exercise, error) {
	var out *model.Exercise
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		e, err := scanExercise(tx.QueryRowContext(ctx,
			"SELECT "+exerciseColumns+" FROM exercises WHERE id = ? FOR UPDATE", id))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM exercises WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete exercise: %w", err)
		}
		out = e
		return nil
	})
	return out, err
}

func scanExercise(s scanner) (*model.Exercise, error) {
	var (
		e       model.Exercise
		instr   []byte
		created time.Time
	)
	if err := s.Scan(&e.ID, &e.ExerciseName, &e.Category, &e.Duration, &e.Difficulty, &e.Description, &instr, &e.FilePath, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}
	e.Instructions = []string{}
	if len(instr) > 0 {
		if err := json.Unmarshal(instr, &e.Instructions); err != nil {
			return nil, fmt.Errorf("decode instructions: %w", err)
		}
	}
	e.CreatedAt = model.NewTimestamp(created)
	return &e, nil
}
