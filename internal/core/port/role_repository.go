package port

import (
	"context"

	"github.com/docmesh/docman-service/internal/core/domain"
)

// RoleRepository resolves role capability grants.
type RoleRepository interface {
	GetBaseFunctions(ctx context.Context, roleID string) (domain.CapabilitySet, error)
}
