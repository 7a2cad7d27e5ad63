package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/urlessen/identity-api/internal/models"
)

// TokenConfig holds the secrets and lifetimes of both token flavors.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService encodes and decodes HS256 tokens carrying an identity.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("token secrets must be set")
	}
	if config.AccessSecret == config.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenService{config: config, now: time.Now}, nil
}

// AccessSecret returns the access token signing secret.
func (s *TokenService) AccessSecret() string { return s.config.AccessSecret }

// RefreshSecret returns the refresh token signing secret.
func (s *TokenService) RefreshSecret() string { return s.config.RefreshSecret }

// RefreshTTL is the refresh token lifetime, also used as the cookie max-age.
func (s *TokenService) RefreshTTL() time.Duration { return s.config.RefreshTTL }

// Encode signs claims with secret.
func (s *TokenService) Encode(claims *models.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm and expiry.
func (s *TokenService) Decode(tokenString, secret string) (*models.Claims, error) {
	return s.parse(tokenString, secret, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
}

// DecodeIgnoringExpiry verifies signature and algorithm only.
func (s *TokenService) DecodeIgnoringExpiry(tokenString, secret string) (*models.Claims, error) {
	return s.parse(tokenString, secret, jwt.WithoutClaimsValidation())
}

func (s *TokenService) parse(tokenString, secret string, opts ...jwt.ParserOption) (*models.Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || claims.User.ID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// IssuePair mints an access and a refresh token for identity.
func (s *TokenService) IssuePair(identity models.AuthenticatedIdentity, now time.Time) (*models.TokenPair, error) {
	accessExp := now.Add(s.config.AccessTTL)
	refreshExp := now.Add(s.config.RefreshTTL)

	access, err := s.Encode(s.claims(identity, now, accessExp), s.config.AccessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Encode(s.claims(identity, now, refreshExp), s.config.RefreshSecret)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Each token gets a random ID so two pairs minted in the same second differ.
func (s *TokenService) claims(identity models.AuthenticatedIdentity, issuedAt, expiresAt time.Time) *models.Claims {
	return &models.Claims{
		User: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}
