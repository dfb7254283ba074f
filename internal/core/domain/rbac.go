package domain

// BaseFunction names a capability granted through a role.
type BaseFunction string

const (
	// BaseFunctionAdmin grants administrative rights over users and groups.
	BaseFunctionAdmin BaseFunction = "ADMIN"
	// BaseFunctionPassword allows changing the own password.
	BaseFunctionPassword BaseFunction = "PASSWORD"
)

// CapabilitySet holds the base functions granted to a principal.
type CapabilitySet map[BaseFunction]struct{}

// NewCapabilitySet builds a set from the provided functions.
func NewCapabilitySet(functions ...BaseFunction) CapabilitySet {
	set := make(CapabilitySet, len(functions))
	for _, fn := range functions {
		set[fn] = struct{}{}
	}
	return set
}

// Has reports whether the set grants the supplied base function.
func (s CapabilitySet) Has(fn BaseFunction) bool {
	_, ok := s[fn]
	return ok
}

// List returns the granted functions in unspecified order.
func (s CapabilitySet) List() []BaseFunction {
	functions := make([]BaseFunction, 0, len(s))
	for fn := range s {
		functions = append(functions, fn)
	}
	return functions
}

// Role defines a named set of base functions assigned to users.
type Role struct {
	ID   string
	Name string
}

// RoleBaseFunction links a role with a base function.
type RoleBaseFunction struct {
	RoleID       string
	BaseFunction BaseFunction
}
