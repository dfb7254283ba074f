package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/usecase"
)

// PasswordHandler exposes the password recovery endpoints.
type PasswordHandler struct {
	recovery *usecase.PasswordRecoveryService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(recovery *usecase.PasswordRecoveryService) *PasswordHandler {
	return &PasswordHandler{recovery: recovery}
}

// RegisterRoutes binds recovery routes, applying optional middleware ahead of handlers.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, lostMiddlewares ...gin.HandlerFunc) {
	if len(lostMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, lostMiddlewares...)
		chain = append(chain, h.Lost)
		r.POST("/password/lost", chain...)
	} else {
		r.POST("/password/lost", h.Lost)
	}

	r.POST("/password/reset", h.Reset)
}

// Lost initiates a password recovery. It answers identically whether or not
// the username exists so the endpoint cannot be used to probe accounts.
func (h *PasswordHandler) Lost(c *gin.Context) {
	var req PasswordLostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}

	if err := h.recovery.RequestRecovery(c.Request.Context(), req.Username); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process recovery request"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists, a recovery key has been sent"})
}

// Reset consumes a recovery key and sets the new password.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "key and password are required"))
		return
	}

	err := h.recovery.ResetPassword(c.Request.Context(), req.Key, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrKeyNotFound, Status: http.StatusNotFound, Message: "recovery key not found or expired"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
