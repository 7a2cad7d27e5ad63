package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/urlessen/identity-api/internal/models"
	"github.com/urlessen/identity-api/internal/repository"
	appErrors "github.com/urlessen/identity-api/pkg/errors"
)

// ErrRefreshReuse marks a refresh or signin that presented a token no
// session holds any more. Every session of the user has been revoked.
var ErrRefreshReuse = errors.New("refresh token reuse detected")

type authUserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore is the append, compare and delete surface the rotation
// protocol needs from persistence. Every method must be atomic.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Rotate(ctx context.Context, userID, oldToken, newToken string) (*models.Session, error)
	Delete(ctx context.Context, userID, token string) (int64, error)
	DeleteAllOnReuse(ctx context.Context, userID, token string) (int64, error)
}

type passwordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, stored string) (bool, error)
}

// AuthResult is returned by SignIn and Refresh. RefreshToken goes into the
// rotation cookie; Response is the JSON body.
type AuthResult struct {
	Response     models.SignInResponse
	RefreshToken string
}

// AuthService implements signup, signin, refresh and logout.
type AuthService struct {
	users     authUserRepository
	sessions  SessionStore
	passwords passwordHasher
	tokens    *TokenService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions SessionStore, passwords passwordHasher, tokens *TokenService, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SignUp creates an account and returns its identity.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthenticatedIdentity, error) {
	if !req.Validate() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid signup payload")
	}

	hash, err := s.passwords.Hash(ctx, req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	start := time.Now()
	user, err := s.users.Create(ctx, req.Username, hash)
	s.observe("user_create", start)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.metrics.RecordAuthEvent(EventSignUp)
	identity := user.Identity()
	return &identity, nil
}

// SignIn checks credentials and opens a new session. A previously issued
// refresh token may be presented; if no session holds it any more, every
// session of the user is revoked before the new one is created.
func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest, presented string) (*AuthResult, error) {
	if !req.Validate() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid signin payload")
	}

	start := time.Now()
	user, err := s.users.FindByUsername(ctx, req.Username)
	s.observe("user_find_by_username", start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordAuthEvent(EventSignInFailure)
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	ok, err := s.passwords.Verify(ctx, req.Password, user.PasswordHash)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to verify password")
	}
	if !ok {
		s.metrics.RecordAuthEvent(EventSignInFailure)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}

	if presented != "" {
		if _, err := s.revokeOnReuse(ctx, user.ID, presented); err != nil {
			return nil, err
		}
	}

	identity := user.Identity()
	pair, err := s.tokens.IssuePair(identity, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue tokens")
	}

	start = time.Now()
	err = s.sessions.Create(ctx, &models.Session{UserID: user.ID, Token: pair.RefreshToken})
	s.observe("session_create", start)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to persist session")
	}

	s.metrics.RecordAuthEvent(EventSignInSuccess)
	return &AuthResult{
		Response:     models.SignInResponse{Token: pair.AccessToken, User: identity},
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh rotates the presented refresh token. A token that no session holds
// is treated as stolen: all of the user's sessions are revoked.
func (s *AuthService) Refresh(ctx context.Context, identity models.AuthenticatedIdentity, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	revoked, err := s.revokeOnReuse(ctx, identity.ID, presented)
	if err != nil {
		return nil, err
	}
	if revoked > 0 {
		return nil, appErrors.Wrap(ErrRefreshReuse, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.ErrUnauthorized.Message)
	}

	pair, err := s.tokens.IssuePair(identity, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue tokens")
	}

	start := time.Now()
	_, err = s.sessions.Rotate(ctx, identity.ID, presented, pair.RefreshToken)
	s.observe("session_rotate", start)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Warn("session rotation matched no row", zap.String("user_id", identity.ID))
		}
		return nil, appErrors.Internal(err, "failed to rotate session")
	}

	s.metrics.RecordAuthEvent(EventRefresh)
	return &AuthResult{
		Response:     models.SignInResponse{Token: pair.AccessToken, User: identity},
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout ends the session holding presented. If none does, the token is
// treated like a reused one.
func (s *AuthService) Logout(ctx context.Context, identity models.AuthenticatedIdentity, presented string) error {
	if presented == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	start := time.Now()
	deleted, err := s.sessions.Delete(ctx, identity.ID, presented)
	s.observe("session_delete", start)
	if err != nil {
		return appErrors.Internal(err, "failed to delete session")
	}

	if deleted == 0 {
		if _, err := s.revokeOnReuse(ctx, identity.ID, presented); err != nil {
			return err
		}
	}

	s.metrics.RecordAuthEvent(EventLogout)
	return nil
}

func (s *AuthService) revokeOnReuse(ctx context.Context, userID, presented string) (int64, error) {
	start := time.Now()
	revoked, err := s.sessions.DeleteAllOnReuse(ctx, userID, presented)
	s.observe("session_delete_all_on_reuse", start)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to check session reuse")
	}
	if revoked > 0 {
		s.metrics.RecordAuthEvent(EventReuseDetected)
		s.logger.Warn("refresh token reuse detected, revoked all sessions",
			zap.String("user_id", userID),
			zap.Int64("revoked", revoked),
		)
	}
	return revoked, nil
}

func (s *AuthService) observe(query string, start time.Time) {
	s.metrics.ObserveDBQuery(query, time.Since(start))
}
