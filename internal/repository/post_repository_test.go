package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mindful-backend/internal/model"
)

var postCols = []string{"id", "user_id", "title", "content", "category", "created_at", "upvotes", "upvoted"}
var commentCols = []string{"id", "post_id", "user_id", "username", "content", "created_at"}

func TestPostRepoCreate(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts (user_id, title, content, category, created_at)")).
		WithArgs(uint64(1), "t", "c", "g", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))

	p := &model.Post{UserID: 1, Title: "t", Content: "c", Category: "g"}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, uint64(10), p.ID)
	assert.NotNil(t, p.Comments)
	assert.Empty(t, p.Comments)
	assert.Equal(t, 0, p.Upvotes)
}

func TestPostRepoListByUserAttachesComments(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts p WHERE p.user_id = ?")).
		WithArgs(uint64(1), uint64(1)).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(2, 1, "second", "c2", "g", now, 3, true).
			AddRow(1, 1, "first", "c1", "g", now.Add(-time.Hour), 0, false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM post_comments WHERE post_id IN (?,?) ORDER BY id")).
		WithArgs(uint64(2), uint64(1)).
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow(5, 1, 9, "Bob", "nice", now).
			AddRow(6, 1, 1, "A", "thanks", now))

	posts, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, 3, posts[0].Upvotes)
	assert.True(t, posts[0].Upvoted)
	assert.Empty(t, posts[0].Comments)
	require.Len(t, posts[1].Comments, 2)
	assert.Equal(t, "Bob", posts[1].Comments[0].Username)
	assert.Equal(t, "thanks", posts[1].Comments[1].Content)
}

func TestPostRepoListAllByCategory(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts p WHERE p.category = ?")).
		WithArgs(uint64(4), "stress").
		WillReturnRows(sqlmock.NewRows(postCols))

	posts, err := repo.ListAll(context.Background(), 4, " stress ")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostRepoDelete(t *testing.T) {
	tests := []struct {
		name      string
		requester uint64
		rows      *sqlmock.Rows
		wantErr   error
		deletes   bool
	}{
		{"owner", 1, sqlmock.NewRows([]string{"user_id"}).AddRow(1), nil, true},
		{"not owner", 2, sqlmock.NewRows([]string{"user_id"}).AddRow(1), ErrForbidden, false},
		{"missing", 1, sqlmock.NewRows([]string{"user_id"}), ErrPostNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, done := newMock(t)
			defer done()
			repo := NewPostRepo(db)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM posts WHERE id = ? FOR UPDATE")).
				WithArgs(uint64(5)).
				WillReturnRows(tt.rows)
			if tt.deletes {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = ?")).
					WithArgs(uint64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			err := repo.Delete(context.Background(), 5, tt.requester)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostRepoToggleUpvoteTwice(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	lock := regexp.QuoteMeta("SELECT id FROM posts WHERE id = ? FOR UPDATE")
	del := regexp.QuoteMeta("DELETE FROM post_upvotes WHERE post_id = ? AND user_id = ?")
	count := regexp.QuoteMeta("SELECT COUNT(*) FROM post_upvotes WHERE post_id = ?")

	// first toggle adds
	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(del).WithArgs(uint64(3), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_upvotes (post_id, user_id)")).
		WithArgs(uint64(3), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(count).WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()
	// second toggle removes
	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(del).WithArgs(uint64(3), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(count).WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectCommit()

	n, upvoted, err := repo.ToggleUpvote(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, upvoted)

	n, upvoted, err = repo.ToggleUpvote(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, upvoted)
}

func TestPostRepoToggleUpvoteMissingPost(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM posts WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(99)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, _, err := repo.ToggleUpvote(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepoAddComment(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	insert := regexp.QuoteMeta("INSERT INTO post_comments (post_id, user_id, username, content, created_at)")
	mock.ExpectExec(insert).
		WithArgs(uint64(3), uint64(1), "A", "hello", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(insert).
		WithArgs(uint64(404), uint64(1), "A", "hello", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	c, err := repo.AddComment(context.Background(), 3, 1, "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), c.ID)
	assert.Equal(t, "A", c.Username)

	_, err = repo.AddComment(context.Background(), 404, 1, "A", "hello")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepoListComments(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPostRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM posts WHERE id = ?")).
		WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM post_comments WHERE post_id = ? ORDER BY id")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(1, 3, 2, "B", "first", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM posts WHERE id = ?")).
		WithArgs(uint64(4)).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	comments, err := repo.ListComments(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Content)

	_, err = repo.ListComments(context.Background(), 4)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
