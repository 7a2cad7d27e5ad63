package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/urlessen/identity-api/internal/validation"
)

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Username      string `json:"username" validate:"username"`
	Password      string `json:"password" validate:"password"`
	PasswordCheck string `json:"passwordCheck" validate:"eqfield=Password"`
}

func (r SignUpRequest) Validate() bool {
	return validation.Struct(r)
}

// SignInRequest holds credentials for authenticating a user.
type SignInRequest struct {
	Username string `json:"username" validate:"username"`
	Password string `json:"password" validate:"password"`
}

func (r SignInRequest) Validate() bool {
	return validation.Struct(r)
}

// SignInResponse returns the access token and the authenticated user. The
// refresh token travels only in the rotation cookie.
type SignInResponse struct {
	Token string                `json:"token"`
	User  AuthenticatedIdentity `json:"user"`
}

// TokenPair is the result of minting both token flavors for one identity.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Claims is the JWT payload shared by access and refresh tokens.
type Claims struct {
	User AuthenticatedIdentity `json:"user"`
	jwt.RegisteredClaims
}

var (
	_ validation.Validatable = SignUpRequest{}
	_ validation.Validatable = SignInRequest{}
)
