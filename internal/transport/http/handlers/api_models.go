package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password"`
	Code       string `json:"code"`
	LongLasted bool   `json:"long_lasted"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	User UserPayload `json:"user"`
}

// UserPayload describes a user account view returned by the API.
type UserPayload struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email,omitempty"`
	RoleID         string   `json:"role_id"`
	BaseFunctions  []string `json:"base_functions,omitempty"`
	StorageQuota   int64    `json:"storage_quota"`
	StorageCurrent int64    `json:"storage_current"`
	TotpEnabled    bool     `json:"totp_enabled"`
	Onboarding     bool     `json:"onboarding"`
	Disabled       bool     `json:"disabled"`
	CreateDate     string   `json:"create_date"`

	// DefaultPassword warns that the built-in admin account still uses
	// the factory password. Only ever set on the admin's own view.
	DefaultPassword bool `json:"default_password,omitempty"`
}

// UserCreateRequest defines the account provisioning payload.
type UserCreateRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Email        string `json:"email" binding:"required"`
	StorageQuota int64  `json:"storage_quota"`
}

// UserSelfUpdateRequest carries fields a user may change on their own account.
type UserSelfUpdateRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UserAdminUpdateRequest carries fields an administrator may change on any account.
type UserAdminUpdateRequest struct {
	Email        *string `json:"email,omitempty"`
	Password     *string `json:"password,omitempty"`
	StorageQuota *int64  `json:"storage_quota,omitempty"`
	Disabled     *bool   `json:"disabled,omitempty"`
}

// UserListResponse wraps a list of accounts.
type UserListResponse struct {
	Users []UserPayload `json:"users"`
	Total int           `json:"total"`
}

// OnboardingRequest toggles the first-connection flag.
type OnboardingRequest struct {
	Onboarding bool `json:"onboarding"`
}

// TotpEnableResponse returns the generated shared secret for enrollment.
type TotpEnableResponse struct {
	Secret string `json:"secret"`
}

// TotpTestRequest carries a code to verify against the pending secret.
type TotpTestRequest struct {
	Code string `json:"code" binding:"required"`
}

// TotpDisableRequest requires password confirmation to drop two-factor.
type TotpDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

// PasswordLostRequest initiates a password recovery.
type PasswordLostRequest struct {
	Username string `json:"username" binding:"required"`
}

// PasswordResetRequest completes a recovery with the emailed key.
type PasswordResetRequest struct {
	Key      string `json:"key" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionPayload describes a session view in API responses.
type SessionPayload struct {
	CreateDate   time.Time `json:"create_date"`
	LastActivity time.Time `json:"last_activity"`
	IP           *string   `json:"ip,omitempty"`
	UserAgent    *string   `json:"user_agent,omitempty"`
	LongLasted   bool      `json:"long_lasted"`
	Current      bool      `json:"current"`
}

// SessionListResponse wraps a list of sessions for a user.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// DocumentCreateRequest defines the payload for creating a document.
type DocumentCreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// DocumentPayload summarizes a document entity.
type DocumentPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language"`
	CreateDate  time.Time `json:"create_date"`
	UpdateDate  time.Time `json:"update_date"`
}

// DocumentListResponse wraps multiple documents.
type DocumentListResponse struct {
	Documents []DocumentPayload `json:"documents"`
	Total     int               `json:"total"`
}

// FilePayload summarizes a stored file.
type FilePayload struct {
	ID         string    `json:"id"`
	DocumentID *string   `json:"document_id,omitempty"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	CreateDate time.Time `json:"create_date"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newUserPayload converts a domain user to an API view.
func newUserPayload(user domain.User, functions []domain.BaseFunction) UserPayload {
	payload := UserPayload{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		RoleID:         user.RoleID,
		StorageQuota:   user.StorageQuota,
		StorageCurrent: user.StorageCurrent,
		TotpEnabled:    user.TotpEnabled(),
		Onboarding:     user.Onboarding,
		Disabled:       user.IsDisabled(),
		CreateDate:     user.CreateDate.UTC().Format(time.RFC3339),
	}

	if len(functions) > 0 {
		names := make([]string, 0, len(functions))
		for _, fn := range functions {
			names = append(names, string(fn))
		}
		payload.BaseFunctions = names
	}

	return payload
}

// newSessionPayload converts a session to an API session payload.
func newSessionPayload(session usecase.Session) SessionPayload {
	return SessionPayload{
		CreateDate:   session.Token.CreateDate,
		LastActivity: session.LastActivity(),
		IP:           session.Token.IP,
		UserAgent:    session.Token.UserAgent,
		LongLasted:   session.Token.LongLasted,
		Current:      session.Current,
	}
}

// newDocumentPayload converts a domain document to an API view.
func newDocumentPayload(doc domain.Document) DocumentPayload {
	return DocumentPayload{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Language:    doc.Language,
		CreateDate:  doc.CreateDate,
		UpdateDate:  doc.UpdateDate,
	}
}

// newFilePayload converts a domain file to an API view.
func newFilePayload(file domain.File) FilePayload {
	return FilePayload{
		ID:         file.ID,
		DocumentID: file.DocumentID,
		Name:       file.Name,
		MimeType:   file.MimeType,
		Size:       file.Size,
		CreateDate: file.CreateDate,
	}
}
