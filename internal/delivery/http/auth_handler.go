package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tradeledger/internal/delivery/http/dto"
	"tradeledger/internal/middleware"
)

const operatorSubject = "operator"

// AuthHandler issues operator tokens
type AuthHandler struct {
	passwordHash []byte
	auth         *middleware.Authenticator
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. passwordHash is a bcrypt hash of the operator password.
func NewAuthHandler(passwordHash string, auth *middleware.Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		passwordHash: []byte(passwordHash),
		auth:         auth,
		logger:       logger,
	}
}

// Token checks the operator password and returns a JWT
// POST /api/auth/token
func (h *AuthHandler) Token(c echo.Context) error {
	var req dto.TokenRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, "Password is required")
	}

	if len(h.passwordHash) == 0 {
		return ForbiddenResponse(c, "Operator login is disabled")
	}
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.logger.Warn("operator login failed", zap.String("remote_ip", c.RealIP()))
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	token, err := h.auth.GenerateJWT(operatorSubject)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.auth.TTL().Seconds()),
	})

	return SuccessResponse(c, dto.TokenResponse{
		Token:     token,
		ExpiresIn: int64(h.auth.TTL().Seconds()),
	})
}

// Logout clears the token cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return SuccessMessageResponse(c, "Logged out", nil)
}
