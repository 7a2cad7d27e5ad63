package repository

import "errors"

var (
	// ErrSessionNotFound is returned by Rotate when no row holds the presented token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicateUsername is returned by Create when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

const pqUniqueViolation = "23505"
