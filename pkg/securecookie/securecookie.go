package securecookie

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidValue is returned when a cookie value cannot be opened.
var ErrInvalidValue = errors.New("invalid cookie value")

// Sealer encrypts and authenticates cookie values with XChaCha20-Poly1305.
type Sealer struct {
	key  []byte
	name string
}

// NewSealer derives the AEAD key from secret. The cookie name is bound as
// associated data so a value cannot be replayed under another cookie.
func NewSealer(secret, name string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("cookie secret missing")
	}
	if name == "" {
		return nil, fmt.Errorf("cookie name missing")
	}
	sum := sha256.Sum256([]byte(secret))
	return &Sealer{key: sum[:], name: name}, nil
}

// Name returns the cookie name the sealer is bound to.
func (s *Sealer) Name() string {
	return s.name
}

// Seal returns the url-safe encoding of nonce||ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(s.name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any tampering or foreign value yields ErrInvalidValue.
func (s *Sealer) Open(value string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", ErrInvalidValue
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrInvalidValue
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(s.name))
	if err != nil {
		return "", ErrInvalidValue
	}
	return string(plaintext), nil
}

// Options describes cookie attributes shared by set and clear.
type Options struct {
	Path   string
	Secure bool
	MaxAge time.Duration
}

// Cookie builds the HTTP-only cookie carrying the sealed value.
func (s *Sealer) Cookie(plaintext string, opts Options) (*http.Cookie, error) {
	sealed, err := s.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     s.name,
		Value:    sealed,
		Path:     opts.Path,
		MaxAge:   int(opts.MaxAge / time.Second),
		Expires:  time.Now().Add(opts.MaxAge),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Expired builds a cookie that removes the value from the client.
func (s *Sealer) Expired(opts Options) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Read returns the opened value of the request cookie. A missing or
// unreadable cookie reports ok=false.
func (s *Sealer) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	value, err := s.Open(c.Value)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}
