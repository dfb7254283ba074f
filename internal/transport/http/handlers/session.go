package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/usecase"
)

// SessionHandler exposes endpoints listing and revoking session tokens.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes binds session management routes to the provided router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/session", h.ListSessions)
	r.DELETE("/session", h.RevokeOtherSessions)
}

// ListSessions returns the authenticated user's sessions, newest first. The
// session backing this request is flagged as current.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	token, ok := middleware.AuthenticatedToken(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	// The guest identity is shared between visitors; exposing its sessions
	// would leak other visitors' addresses and user agents.
	if user.IsGuest() {
		c.JSON(http.StatusOK, SessionListResponse{Sessions: []SessionPayload{}, Total: 0})
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), user.ID, token.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	payloads := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, newSessionPayload(session))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: payloads, Total: len(payloads)})
}

// RevokeOtherSessions deletes every session except the one backing this
// request, logging the user out everywhere else.
func (h *SessionHandler) RevokeOtherSessions(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	token, ok := middleware.AuthenticatedToken(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	// A guest revoking "other" sessions would log out unrelated visitors.
	if user.IsGuest() {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	if err := h.sessions.DeleteOthers(c.Request.Context(), user.ID, token.ID); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "other sessions revoked"})
}
