package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/usecase"
)

// UserHandler exposes account management endpoints.
type UserHandler struct {
	users    *usecase.UserService
	deletion *usecase.AccountDeletionService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService, deletion *usecase.AccountDeletionService) *UserHandler {
	return &UserHandler{users: users, deletion: deletion}
}

// RegisterRoutes binds account routes. Admin-only routes must be guarded by
// the caller with a capability middleware.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, adminGuard gin.HandlerFunc) {
	r.GET("", h.Current)
	r.POST("", h.UpdateSelf)
	r.DELETE("", h.DeleteSelf)
	r.POST("/onboarding", h.SetOnboarding)

	r.GET("/list", adminGuard, h.List)
	r.PUT("", adminGuard, h.Create)
	r.GET("/:username", adminGuard, h.Get)
	r.POST("/:username", adminGuard, h.UpdateByAdmin)
	r.DELETE("/:username", adminGuard, h.DeleteByAdmin)
}

// Current returns the authenticated account with its capabilities.
func (h *UserHandler) Current(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	functions, err := h.users.Capabilities(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load account"))
		return
	}

	payload := newUserPayload(*user, functions)
	payload.DefaultPassword = h.users.HasDefaultAdminPassword(user)
	c.JSON(http.StatusOK, payload)
}

// Create provisions a new account.
func (h *UserHandler) Create(c *gin.Context) {
	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username, password and email are required"))
		return
	}

	user, err := h.users.Create(c.Request.Context(), usecase.CreateUserInput{
		Username:     req.Username,
		Password:     req.Password,
		Email:        req.Email,
		StorageQuota: req.StorageQuota,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAlreadyExistingUsername, Status: http.StatusConflict, Message: "username already taken"},
		}, http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, newUserPayload(*user, nil))
}

// UpdateSelf changes the email or password of the authenticated account.
func (h *UserHandler) UpdateSelf(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	var req UserSelfUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	err := h.users.UpdateSelf(c.Request.Context(), user, usecase.SelfUpdateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "failed to update account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account updated"})
}

// Get returns any account by username.
func (h *UserHandler) Get(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	user, err := h.users.GetByUsername(c.Request.Context(), username)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to load user")
		return
	}

	functions, err := h.users.Capabilities(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load user"))
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user, functions))
}

// List returns accounts, optionally sorted.
func (h *UserHandler) List(c *gin.Context) {
	filter := port.UserFilter{
		SortBy:    c.Query("sort_by"),
		Ascending: c.DefaultQuery("order", "asc") != "desc",
	}

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list users"))
		return
	}

	payloads := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newUserPayload(user, nil))
	}

	c.JSON(http.StatusOK, UserListResponse{Users: payloads, Total: len(payloads)})
}

// UpdateByAdmin changes any account's email, password, quota or disabled state.
func (h *UserHandler) UpdateByAdmin(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	var req UserAdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	err := h.users.UpdateByAdmin(c.Request.Context(), username, usecase.AdminUpdateInput{
		Email:        req.Email,
		Password:     req.Password,
		StorageQuota: req.StorageQuota,
		Disabled:     req.Disabled,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to update user")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user updated"})
}

// SetOnboarding toggles the first-connection flag on the authenticated account.
func (h *UserHandler) SetOnboarding(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.users.SetOnboarding(c.Request.Context(), user.ID, req.Onboarding); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to update onboarding"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "onboarding updated"})
}

// DeleteSelf removes the authenticated account and all its data.
func (h *UserHandler) DeleteSelf(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	h.delete(c, user.Username)
}

// DeleteByAdmin removes any account and all its data.
func (h *UserHandler) DeleteByAdmin(c *gin.Context) {
	h.delete(c, strings.TrimSpace(c.Param("username")))
}

func (h *UserHandler) delete(c *gin.Context, username string) {
	err := h.deletion.Delete(c.Request.Context(), username)
	if err != nil {
		// The conflict response names the workflow blocking the deletion.
		var conflict *usecase.RouteModelConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, NewErrorResponse(c,
				fmt.Sprintf("user is referenced by route model %q", conflict.RouteModel)))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "forbidden"},
		}, http.StatusInternalServerError, "failed to delete user")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}
