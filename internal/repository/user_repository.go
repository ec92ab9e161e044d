package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/mindful-backend/internal/model"
	"github.com/iliyamo/mindful-backend/internal/utils"
)

// UserRepo is the credential store.  It owns the `users` table and is the
// only place passwords are hashed or compared.
type UserRepo struct {
	DB   *sql.DB
	Cost int // bcrypt cost
}

func NewUserRepo(db *sql.DB, cost int) *UserRepo { return &UserRepo{DB: db, Cost: cost} }

const userColumns = "id, name, email, password_hash, created_at"

// Create hashes password and inserts a user.  A taken email yields
// ErrEmailExists whatever the password, so the lookup runs before hashing.
// The unique index still decides between two concurrent registrations for
// the same address; the loser gets ErrEmailExists too.
func (r *UserRepo) Create(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch _, err := r.GetByEmail(ctx, email); {
	case err == nil:
		return nil, ErrEmailExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}
	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES (?,?,?)",
		name, email, hash)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &model.User{
		ID:           uint64(id),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    model.NewTimestamp(time.Now()),
	}, nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", strings.TrimSpace(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// VerifyPassword reports whether candidate matches the stored hash.
func (r *UserRepo) VerifyPassword(u *model.User, candidate string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return utils.VerifyPassword(u.PasswordHash, candidate)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u       model.User
		created time.Time
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = model.NewTimestamp(created)
	return &u, nil
}
