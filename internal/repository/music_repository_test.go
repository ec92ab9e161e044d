package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mindful-backend/internal/model"
)

var musicCols = []string{"id", "music_name", "author", "category", "file_path", "created_at"}

func TestMusicRepoCreateAndList(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewMusicRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO music (id, music_name, author, category, file_path, created_at)")).
		WithArgs("m-1", "Rain", "Ann", "calm", "m-1.mp3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM music ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(musicCols).AddRow("m-1", "Rain", "Ann", "calm", "m-1.mp3", time.Now()))

	m := &model.Music{ID: "m-1", MusicName: "Rain", Author: "Ann", Category: "calm", FilePath: "m-1.mp3"}
	require.NoError(t, repo.Create(context.Background(), m))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m-1.mp3", list[0].FilePath)
}

func TestMusicRepoUpdate(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewMusicRepo(db)
	name := "Storm"

	exists := regexp.QuoteMeta("SELECT 1 FROM music WHERE id = ?")
	mock.ExpectQuery(exists).WithArgs("m-1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE music SET music_name = ? WHERE id = ?")).
		WithArgs("Storm", "m-1").WillReturnResult(sqlmock.NewResult(0, 1))
	// same value again: no change
	mock.ExpectQuery(exists).WithArgs("m-1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE music SET music_name = ? WHERE id = ?")).
		WithArgs("Storm", "m-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"1"}))

	changed, err := repo.Update(context.Background(), "m-1", model.MusicUpdate{MusicName: &name})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Update(context.Background(), "m-1", model.MusicUpdate{MusicName: &name})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.Update(context.Background(), "nope", model.MusicUpdate{MusicName: &name})
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestMusicRepoDelete(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewMusicRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM music WHERE id = ? FOR UPDATE")).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows(musicCols).AddRow("m-1", "Rain", "Ann", "calm", "m-1.mp3", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM music WHERE id = ?")).
		WithArgs("m-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM music WHERE id = ? FOR UPDATE")).
		WithArgs("gone").WillReturnRows(sqlmock.NewRows(musicCols))
	mock.ExpectRollback()

	m, err := repo.Delete(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1.mp3", m.FilePath)

	_, err = repo.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestExerciseRepoInstructionsRoundTrip(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewExerciseRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exercises")).
		WithArgs("e-1", "Breathe", "focus", "5m", "Beginner", "", `["in","out"]`, "e-1.mp4", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM exercises ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exercise_name", "category", "duration", "difficulty", "description", "instructions", "file_path", "created_at"}).
			AddRow("e-1", "Breathe", "focus", "5m", "Beginner", "", []byte(`["in","out"]`), "e-1.mp4", time.Now()))

	e := &model.Exercise{ID: "e-1", ExerciseName: "Breathe", Category: "focus", Duration: "5m", Difficulty: "Beginner",
		Instructions: []string{"in", "out"}, FilePath: "e-1.mp4"}
	require.NoError(t, repo.Create(context.Background(), e))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"in", "out"}, got[0].Instructions)
}
