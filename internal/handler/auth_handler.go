package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/urlessen/identity-api/internal/middleware"
	"github.com/urlessen/identity-api/internal/models"
	"github.com/urlessen/identity-api/internal/service"
	appErrors "github.com/urlessen/identity-api/pkg/errors"
	"github.com/urlessen/identity-api/pkg/response"
	"github.com/urlessen/identity-api/pkg/securecookie"
)

// AuthHandler wires HTTP endpoints to the auth service and owns the rotation cookie.
type AuthHandler struct {
	service *service.AuthService
	cookies *securecookie.Sealer
	options securecookie.Options
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookies *securecookie.Sealer, options securecookie.Options, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, cookies: cookies, options: options, logger: logger}
}

// SignUp godoc
// @Summary Register an account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignUpRequest true "Signup payload"
// @Success 200 {object} models.AuthenticatedIdentity
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload"))
		return
	}

	identity, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, identity)
}

// SignIn godoc
// @Summary Authenticate user
// @Description Returns an access token and sets the HTTP-only rotation cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignInRequest true "Signin payload"
// @Success 200 {object} models.SignInResponse
// @Failure 401 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signin payload"))
		return
	}

	presented, _ := h.cookies.Read(c.Request)
	res, err := h.service.SignIn(c.Request.Context(), req, presented)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !h.setSessionCookie(c, res.RefreshToken) {
		return
	}
	response.OK(c, res.Response)
}

// Refresh godoc
// @Summary Rotate the refresh token
// @Description Requires the bearer access token (it may be expired) and the rotation cookie.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SignInResponse
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	identity, _ := middleware.IdentityFromContext(c)
	presented, ok := h.cookies.Read(c.Request)
	if !ok {
		h.fail(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), identity, presented)
	if err != nil {
		if errors.Is(err, service.ErrRefreshReuse) {
			http.SetCookie(c.Writer, h.cookies.Expired(h.options))
		}
		h.fail(c, err)
		return
	}

	if !h.setSessionCookie(c, res.RefreshToken) {
		return
	}
	response.OK(c, res.Response)
}

// Logout godoc
// @Summary End the current session
// @Tags Authentication
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, _ := middleware.IdentityFromContext(c)
	presented, ok := h.cookies.Read(c.Request)
	if !ok {
		h.fail(c, appErrors.ErrUnauthorized)
		return
	}

	http.SetCookie(c.Writer, h.cookies.Expired(h.options))
	if err := h.service.Logout(c.Request.Context(), identity, presented); err != nil {
		h.fail(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Current identity
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AuthenticatedIdentity
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, _ := middleware.IdentityFromContext(c)
	response.OK(c, identity)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, refreshToken string) bool {
	cookie, err := h.cookies.Cookie(refreshToken, h.options)
	if err != nil {
		h.fail(c, appErrors.Internal(err, "failed to seal session cookie"))
		return false
	}
	http.SetCookie(c.Writer, cookie)
	return true
}

// fail logs server-side failures with their cause before writing the envelope.
func (h *AuthHandler) fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(appErr.Message, zap.Error(appErr.Err), zap.String("path", c.FullPath()))
	}
	response.Error(c, appErr)
}
