package domain

import "time"

// Truncation limits applied to client metadata before persisting a token.
const (
	TokenIPMaxLength        = 45
	TokenUserAgentMaxLength = 1000
)

// AuthenticationToken is a bearer session credential. The ID is the opaque
// token value presented by the client cookie.
type AuthenticationToken struct {
	ID                 string
	UserID             string
	LongLasted         bool
	IP                 *string
	UserAgent          *string
	CreateDate         time.Time
	LastConnectionDate *time.Time
}

// PasswordRecovery is a one-time password reset key tied to a username.
type PasswordRecovery struct {
	ID         string
	Username   string
	CreateDate time.Time
}
