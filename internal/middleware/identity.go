package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/urlessen/identity-api/internal/models"
	"github.com/urlessen/identity-api/internal/service"
	appErrors "github.com/urlessen/identity-api/pkg/errors"
	"github.com/urlessen/identity-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the caller's identity.
const ContextIdentityKey = "currentIdentity"

// Identity attaches the identity of a valid, unexpired access token. Requests
// without one pass through untouched.
func Identity(tokens *service.TokenService) gin.HandlerFunc {
	return identity(tokens, false)
}

// StaleIdentity is Identity for the rotation endpoints: the access token must
// carry a valid signature but may be past its expiry.
func StaleIdentity(tokens *service.TokenService) gin.HandlerFunc {
	return identity(tokens, true)
}

func identity(tokens *service.TokenService, allowExpired bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		var (
			claims *models.Claims
			err    error
		)
		if allowExpired {
			claims, err = tokens.DecodeIgnoringExpiry(raw, tokens.AccessSecret())
		} else {
			claims, err = tokens.Decode(raw, tokens.AccessSecret())
		}
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextIdentityKey, claims.User)
		c.Next()
	}
}

// RequireIdentity aborts with 401 unless an identity middleware attached one.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFromContext(c); !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the identity attached to the request.
func IdentityFromContext(c *gin.Context) (models.AuthenticatedIdentity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return models.AuthenticatedIdentity{}, false
	}
	identity, ok := value.(models.AuthenticatedIdentity)
	return identity, ok
}

// bearerToken accepts exactly "<scheme> <token>" with a case-insensitive
// Bearer scheme.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
