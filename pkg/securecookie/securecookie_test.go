package securecookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer("secret", "session")
	require.NoError(t, err)

	sealed, err := s.Seal("refresh-token-value")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "refresh-token-value")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", opened)

	again, err := s.Seal("refresh-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestOpenRejectsTampering(t *testing.T) {
	s, err := NewSealer("secret", "session")
	require.NoError(t, err)
	sealed, err := s.Seal("refresh-token-value")
	require.NoError(t, err)

	flipped := []byte(sealed)
	if flipped[len(flipped)-1] == 'A' {
		flipped[len(flipped)-1] = 'B'
	} else {
		flipped[len(flipped)-1] = 'A'
	}

	other, err := NewSealer("other-secret", "session")
	require.NoError(t, err)
	renamed, err := NewSealer("secret", "other")
	require.NoError(t, err)

	_, err = s.Open(string(flipped))
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = renamed.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = s.Open("not base64 !!")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = s.Open("c2hvcnQ")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestCookieAttributes(t *testing.T) {
	s, err := NewSealer("secret", "session")
	require.NoError(t, err)

	c, err := s.Cookie("token", Options{Path: "/auth", Secure: true, MaxAge: 48 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "/auth", c.Path)
	assert.Equal(t, 172800, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	expired := s.Expired(Options{Path: "/auth"})
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, expired.Value)
}

func TestRead(t *testing.T) {
	s, err := NewSealer("secret", "session")
	require.NoError(t, err)
	c, err := s.Cookie("token", Options{Path: "/auth", MaxAge: time.Hour})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	_, ok := s.Read(req)
	assert.False(t, ok)

	req.AddCookie(c)
	value, ok := s.Read(req)
	assert.True(t, ok)
	assert.Equal(t, "token", value)

	forged := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	forged.AddCookie(&http.Cookie{Name: "session", Value: strings.Repeat("A", 80)})
	_, ok = s.Read(forged)
	assert.False(t, ok)
}

func TestNewSealerRequiresSecretAndName(t *testing.T) {
	_, err := NewSealer("", "session")
	assert.Error(t, err)
	_, err = NewSealer("secret", "")
	assert.Error(t, err)
}
