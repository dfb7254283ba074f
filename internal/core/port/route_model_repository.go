package port

import "context"

// RouteModelRepository checks workflow route models for participant
// references. The workflow engine itself is an external collaborator.
type RouteModelRepository interface {
	// FindNameByTargetUsername returns the name of an active route model
	// referencing the username as a participant, or "" when none does.
	FindNameByTargetUsername(ctx context.Context, username string) (string, error)
}
