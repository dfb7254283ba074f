package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/usecase"
)

const (
	// AuthUserKey is the context key holding the authenticated *domain.User.
	AuthUserKey = "auth_user"
	// AuthTokenKey is the context key holding the *domain.AuthenticationToken.
	AuthTokenKey = "auth_token"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth resolves the session cookie into an authenticated user.
// Every rejection uses the same 403 "forbidden" body so clients cannot
// distinguish a missing cookie from a revoked or expired one.
func RequireAuth(auth *usecase.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenID, err := c.Cookie(cookieName)
		if err != nil || tokenID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "forbidden"))
			return
		}

		user, token, err := auth.AuthenticateToken(c.Request.Context(), tokenID)
		if err != nil {
			if errors.Is(err, usecase.ErrInvalidToken) {
				// Expired or revoked cookie: tell the client to drop it.
				c.SetCookie(cookieName, "", -1, "/", "", false, true)
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "forbidden"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		c.Set(AuthUserKey, user)
		c.Set(AuthTokenKey, token)
		c.Set(UserIDKey, user.ID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = user.ID
		}

		c.Next()
	}
}

// RequireBaseFunction rejects authenticated users whose role does not grant
// the supplied capability. It must be chained after RequireAuth.
func RequireBaseFunction(users *usecase.UserService, fn domain.BaseFunction) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := AuthenticatedUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "forbidden"))
			return
		}

		granted, err := users.HasBaseFunction(c.Request.Context(), user, fn)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authorization check failed"))
			return
		}
		if !granted {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "forbidden"))
			return
		}

		c.Next()
	}
}

// AuthenticatedUser retrieves the resolved user from context (helper for handlers).
func AuthenticatedUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(AuthUserKey)
	if !exists {
		return nil, false
	}

	user, ok := value.(*domain.User)
	return user, ok && user != nil
}

// AuthenticatedToken retrieves the session token backing the request.
func AuthenticatedToken(c *gin.Context) (*domain.AuthenticationToken, bool) {
	value, exists := c.Get(AuthTokenKey)
	if !exists {
		return nil, false
	}

	token, ok := value.(*domain.AuthenticationToken)
	return token, ok && token != nil
}
