package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urlessen/identity-api/internal/models"
)

var sessionColumns = []string{"id", "user_id", "token", "created_at", "rotated_at"}

func TestCreateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sessions (id, user_id, token) VALUES ($1, $2, $3) RETURNING created_at, rotated_at")).
		WithArgs(sqlmock.AnyArg(), "u1", "tok").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "rotated_at"}).AddRow(now, now))

	session := &models.Session{UserID: "u1", Token: "tok"}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, now, session.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions SET token = $3, rotated_at = NOW() WHERE user_id = $1 AND token = $2 RETURNING id, user_id, token, created_at, rotated_at")).
		WithArgs("u1", "old", "new").
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow("s1", "u1", "new", now, now))

	session, err := repo.Rotate(context.Background(), "u1", "old", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", session.Token)
	assert.Equal(t, "s1", session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateSessionNoMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE sessions SET token").
		WithArgs("u1", "old", "new").
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	_, err := repo.Rotate(context.Background(), "u1", "old", "new")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRotateSessionStoreError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE sessions SET token").WillReturnError(errors.New("connection reset"))

	_, err := repo.Rotate(context.Background(), "u1", "old", "new")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = $1 AND token = $2")).
		WithArgs("u1", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Delete(context.Background(), "u1", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllOnReuse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = $1 AND NOT EXISTS (SELECT 1 FROM sessions WHERE user_id = $1 AND token = $2)")).
		WithArgs("u1", "stale").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteAllOnReuse(context.Background(), "u1", "stale")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllOnReuseError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("DELETE FROM sessions").WillReturnError(errors.New("boom"))

	_, err := repo.DeleteAllOnReuse(context.Background(), "u1", "stale")
	assert.Error(t, err)
}
