package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/usecase"
)

// TotpHandler exposes two-factor enrollment endpoints.
type TotpHandler struct {
	users *usecase.UserService
}

// NewTotpHandler constructs TotpHandler.
func NewTotpHandler(users *usecase.UserService) *TotpHandler {
	return &TotpHandler{users: users}
}

// RegisterRoutes binds two-factor routes under the user group.
func (h *TotpHandler) RegisterRoutes(r *gin.RouterGroup, adminGuard gin.HandlerFunc) {
	r.PUT("/totp", h.Enable)
	r.POST("/totp/test", h.Test)
	r.POST("/totp/disable", h.DisableSelf)
	r.DELETE("/:username/totp", adminGuard, h.DisableByAdmin)
}

// Enable generates a new shared secret for the authenticated account.
// The secret is returned once; the client must confirm it via Test.
func (h *TotpHandler) Enable(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	secret, err := h.users.EnableTotp(c.Request.Context(), user)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "failed to enable two-factor")
		return
	}

	c.JSON(http.StatusOK, TotpEnableResponse{Secret: secret})
}

// Test verifies a code against the account's current secret.
func (h *TotpHandler) Test(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	var req TotpTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code is required"))
		return
	}

	if !h.users.TestTotp(user, req.Code) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "code accepted"})
}

// DisableSelf drops two-factor after password confirmation.
func (h *TotpHandler) DisableSelf(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	var req TotpDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password is required"))
		return
	}

	err := h.users.DisableTotpSelf(c.Request.Context(), user, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "failed to disable two-factor")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor disabled"})
}

// DisableByAdmin drops two-factor on any account without password confirmation.
func (h *TotpHandler) DisableByAdmin(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	err := h.users.DisableTotpByAdmin(c.Request.Context(), username)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to disable two-factor")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor disabled"})
}
