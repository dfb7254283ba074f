package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/infra/config"
	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	cfg   *config.AppConfig
	auth  *usecase.AuthService
	users *usecase.UserService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(cfg *config.AppConfig, auth *usecase.AuthService, users *usecase.UserService) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth, users: users}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.Login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.Login)
	}

	r.POST("/logout", middleware.RequireAuth(h.auth, h.cfg.Auth.CookieName), h.Logout)
}

// Login authenticates the supplied credentials and sets the session cookie.
// Long-lasted sessions get a persistent cookie, regular ones a browser
// session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		Code:       req.Code,
		LongLasted: req.LongLasted,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		// One body for every rejection: the response must not reveal
		// whether the password or the verification code was wrong.
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusForbidden, Message: "forbidden"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	maxAge := 0
	if token.LongLasted {
		maxAge = int(h.cfg.Auth.LongLastedMaxAge.Seconds())
	}
	c.SetCookie(h.cfg.Auth.CookieName, token.ID, maxAge, "/", "", h.cfg.Auth.CookieSecure, true)

	functions, err := h.users.Capabilities(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{User: newUserPayload(*user, functions)})
}

// Logout deletes the current session token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.AuthenticatedToken(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token.ID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidToken, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "logout failed")
		return
	}

	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", h.cfg.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
