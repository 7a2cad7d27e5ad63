package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urlessen/identity-api/internal/models"
)

// MemoryUserRepository is an in-process user store used by tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository constructs an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, username, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return nil, ErrDuplicateUsername
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[username] = user
	return &user, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

// MemorySessionRepository is an in-process session store used by tests. A
// single mutex makes every method atomic.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string][]models.Session
}

// NewMemorySessionRepository constructs an empty store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string][]models.Session)}
}

func (r *MemorySessionRepository) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.RotatedAt = now
	r.sessions[session.UserID] = append(r.sessions[session.UserID], *session)
	return nil
}

func (r *MemorySessionRepository) Rotate(_ context.Context, userID, oldToken, newToken string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.sessions[userID]
	for i := range rows {
		if rows[i].Token == oldToken {
			rows[i].Token = newToken
			rows[i].RotatedAt = time.Now().UTC()
			out := rows[i]
			return &out, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *MemorySessionRepository) Delete(_ context.Context, userID, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.sessions[userID]
	kept := rows[:0]
	var removed int64
	for _, row := range rows {
		if row.Token == token {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.sessions[userID] = kept
	return removed, nil
}

func (r *MemorySessionRepository) DeleteAllOnReuse(_ context.Context, userID, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.sessions[userID]
	for _, row := range rows {
		if row.Token == token {
			return 0, nil
		}
	}
	delete(r.sessions, userID)
	return int64(len(rows)), nil
}

func (r *MemorySessionRepository) Ping(context.Context) error {
	return nil
}

// Tokens returns the live token values of a user.
func (r *MemorySessionRepository) Tokens(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions[userID]))
	for _, row := range r.sessions[userID] {
		out = append(out, row.Token)
	}
	return out
}
