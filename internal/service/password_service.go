package service

import (
	"context"
	"time"

	"github.com/urlessen/identity-api/pkg/jobs"
	"github.com/urlessen/identity-api/pkg/password"
)

// PasswordService runs password hashing on a bounded worker pool so the
// request goroutine only waits for the result.
type PasswordService struct {
	hasher  *password.Hasher
	pool    *jobs.Pool
	metrics *MetricsService
}

// NewPasswordService constructs the service. The pool must be started by the caller.
func NewPasswordService(hasher *password.Hasher, pool *jobs.Pool, metrics *MetricsService) *PasswordService {
	return &PasswordService{hasher: hasher, pool: pool, metrics: metrics}
}

// Hash returns the stored form of plaintext.
func (s *PasswordService) Hash(ctx context.Context, plaintext string) (string, error) {
	var encoded string
	err := s.pool.Do(ctx, "password_hash", func(context.Context) error {
		start := time.Now()
		defer func() { s.metrics.ObservePasswordHash("hash", time.Since(start)) }()

		var err error
		encoded, err = s.hasher.Hash(plaintext)
		return err
	})
	if err != nil {
		return "", err
	}
	return encoded, nil
}

// Verify reports whether plaintext matches stored. A cancelled context or a
// stopped pool is returned as an error, never as a match.
func (s *PasswordService) Verify(ctx context.Context, plaintext, stored string) (bool, error) {
	var ok bool
	err := s.pool.Do(ctx, "password_verify", func(context.Context) error {
		start := time.Now()
		defer func() { s.metrics.ObservePasswordHash("verify", time.Since(start)) }()

		ok = s.hasher.Verify(plaintext, stored)
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
