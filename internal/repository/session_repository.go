package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/urlessen/identity-api/internal/models"
)

// SessionRepository persists refresh sessions in PostgreSQL. Every method is
// a single statement.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session row. ID is generated when empty.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO sessions (id, user_id, token) VALUES ($1, $2, $3) RETURNING created_at, rotated_at`
	row := r.db.QueryRowxContext(ctx, query, session.ID, session.UserID, session.Token)
	if err := row.Scan(&session.CreatedAt, &session.RotatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Rotate swaps oldToken for newToken on the row that currently holds
// oldToken. Only one of several concurrent callers can match.
func (r *SessionRepository) Rotate(ctx context.Context, userID, oldToken, newToken string) (*models.Session, error) {
	const query = `UPDATE sessions SET token = $3, rotated_at = NOW() WHERE user_id = $1 AND token = $2 RETURNING id, user_id, token, created_at, rotated_at`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, userID, oldToken, newToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return &session, nil
}

// Delete removes the session holding token and reports the affected rows.
func (r *SessionRepository) Delete(ctx context.Context, userID, token string) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_id = $1 AND token = $2`
	res, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAllOnReuse deletes every session of the user when none of them holds
// token, and reports how many were removed.
func (r *SessionRepository) DeleteAllOnReuse(ctx context.Context, userID, token string) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_id = $1 AND NOT EXISTS (SELECT 1 FROM sessions WHERE user_id = $1 AND token = $2)`
	res, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return 0, fmt.Errorf("delete sessions on reuse: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database connection.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
