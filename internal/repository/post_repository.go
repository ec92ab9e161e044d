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

// PostRepo stores community posts together with their comments
// (`post_comments`) and upvoter sets (`post_upvotes`).  The upvoter set is
// keyed by (post_id, user_id) so a user can appear in it at most once.
type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

// postSelect needs the viewer id as its first argument.
const postSelect = `SELECT p.id, p.user_id, p.title, p.content, p.category, p.created_at,
	(SELECT COUNT(*) FROM post_upvotes u WHERE u.post_id = p.id),
	EXISTS(SELECT 1 FROM post_upvotes u WHERE u.post_id = p.id AND u.user_id = ?)
	FROM posts p`

// Create inserts a post.  New posts have no comments and no upvotes.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO posts (user_id, title, content, category, created_at) VALUES (?,?,?,?,?)",
		p.UserID, p.Title, p.Content, p.Category, now)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID = uint64(id)
	p.CreatedAt = model.NewTimestamp(now)
	p.Comments = []model.Comment{}
	p.Upvotes = 0
	p.Upvoted = false
	return nil
}

// ListByUser returns the posts written by userID, newest first.
func (r *PostRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Post, error) {
	return r.list(ctx, postSelect+" WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC", userID, userID)
}

// ListAll returns every post, newest first, optionally restricted to one
// category.  viewer only drives the Upvoted flag.
func (r *PostRepo) ListAll(ctx context.Context, viewer uint64, category string) ([]*model.Post, error) {
	if category = strings.TrimSpace(category); category != "" {
		return r.list(ctx, postSelect+" WHERE p.category = ? ORDER BY p.created_at DESC, p.id DESC", viewer, category)
	}
	return r.list(ctx, postSelect+" ORDER BY p.created_at DESC, p.id DESC", viewer)
}

func (r *PostRepo) list(ctx context.Context, query string, args ...any) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []*model.Post{}
	for rows.Next() {
		var (
			p       model.Post
			created time.Time
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Category, &created, &p.Upvotes, &p.Upvoted); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = model.NewTimestamp(created)
		p.Comments = []model.Comment{}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if err := r.attachComments(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachComments loads the comments of all posts with one query.
func (r *PostRepo) attachComments(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Post, len(posts))
	args := make([]any, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		args = append(args, p.ID)
	}
	q := "SELECT id, post_id, user_id, username, content, created_at FROM post_comments WHERE post_id IN (" +
		placeholders(len(args)) + ") ORDER BY id"
	comments, err := r.queryComments(ctx, q, args...)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return nil
}

// Delete removes a post owned by requester.  Comments and upvotes go with
// it through ON DELETE CASCADE.
func (r *PostRepo) Delete(ctx context.Context, id, requester uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var owner uint64
		err := tx.QueryRowContext(ctx, "SELECT user_id FROM posts WHERE id = ? FOR UPDATE", id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPostNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		if owner != requester {
			return ErrForbidden
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
}

// ToggleUpvote adds userID to the post's upvoter set when absent and
// removes it otherwise.  The post row is locked for the duration so
// concurrent toggles on the same post are serialized.  It returns the new
// set size and whether userID is now a member.
func (r *PostRepo) ToggleUpvote(ctx context.Context, id, userID uint64) (count int, upvoted bool, err error) {
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var pid uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM posts WHERE id = ? FOR UPDATE", id).Scan(&pid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPostNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM post_upvotes WHERE post_id = ? AND user_id = ?", id, userID)
		if err != nil {
			return fmt.Errorf("remove upvote: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("remove upvote: %w", err)
		}
		if removed == 0 {
			if _, err := tx.ExecContext(ctx, "INSERT INTO post_upvotes (post_id, user_id) VALUES (?,?)", id, userID); err != nil {
				return fmt.Errorf("add upvote: %w", err)
			}
			upvoted = true
		}
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM post_upvotes WHERE post_id = ?", id).Scan(&count); err != nil {
			return fmt.Errorf("count upvotes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return count, upvoted, nil
}

// AddComment appends a comment to a post.  username is stored as given and
// is never re-resolved.
func (r *PostRepo) AddComment(ctx context.Context, postID, userID uint64, username, content string) (*model.Comment, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO post_comments (post_id, user_id, username, content, created_at) VALUES (?,?,?,?,?)",
		postID, userID, username, content, now)
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &model.Comment{
		ID:        uint64(id),
		PostID:    postID,
		UserID:    userID,
		Username:  username,
		Content:   content,
		CreatedAt: model.NewTimestamp(now),
	}, nil
}

// ListComments returns a post's comments in the order they were written.
func (r *PostRepo) ListComments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = ?", postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	return r.queryComments(ctx,
		"SELECT id, post_id, user_id, username, content, created_at FROM post_comments WHERE post_id = ? ORDER BY id",
		postID)
}

func (r *PostRepo) queryComments(ctx context.Context, q string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var (
			c       model.Comment
			created time.Time
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = model.NewTimestamp(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// placeholders returns "?,?,...,?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
