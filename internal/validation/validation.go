// Package validation holds the credential and URL body rules shared by the
// request models. Every check is pure and reports a single bool.
package validation

import (
	"net/url"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 32
	minPasswordLength = 12

	maxTitleLength       = 64
	maxDescriptionLength = 256
	maxLongURLLength     = 2048
)

// Validatable is implemented by every request body accepted by the API.
type Validatable interface {
	Validate() bool
}

// IsValidUsername accepts 2 to 32 bytes of ASCII letters, '-', '_' and '.'.
func IsValidUsername(username string) bool {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return false
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// IsValidPassword requires at least 12 bytes with one letter, one ASCII digit
// and one symbol. Symbols are whatever bytes remain after letters and digits,
// so non-ASCII input counts toward them.
func IsValidPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}

	var alpha, digits int
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case unicode.IsLetter(r):
			alpha++
		}
	}
	symbols := len(password) - alpha - digits

	return alpha > 0 && digits > 0 && symbols > 0
}

func IsValidTitle(title string) bool {
	return len(title) <= maxTitleLength
}

func IsValidDescription(description string) bool {
	return len(description) <= maxDescriptionLength
}

// IsValidLongURL requires an absolute URL of at most 2048 bytes.
func IsValidLongURL(raw string) bool {
	if raw == "" || len(raw) > maxLongURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a validator with the username, password, title, description
// and longurl tags.
func New() *validator.Validate {
	v := validator.New()
	register := func(tag string, fn func(string) bool) {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
	register("username", IsValidUsername)
	register("password", IsValidPassword)
	register("title", IsValidTitle)
	register("description", IsValidDescription)
	register("longurl", IsValidLongURL)
	return v
}

// Struct reports whether s satisfies its validate tags.
func Struct(s interface{}) bool {
	return Validator().Struct(s) == nil
}
