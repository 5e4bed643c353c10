package registry

import "fmt"

// Authorizer decides whether a principal may perform administrative
// mutations. Implementations are injected at registry construction so
// the gating policy stays pluggable.
type Authorizer interface {
	Authorize(principal string) error
}

// SingleAdmin authorizes exactly one administrator principal.
type SingleAdmin struct {
	admin string
}

// Ensure SingleAdmin implements the Authorizer interface.
var _ Authorizer = (*SingleAdmin)(nil)

// NewSingleAdmin creates an authorizer accepting only the given principal.
func NewSingleAdmin(admin string) *SingleAdmin {
	return &SingleAdmin{admin: admin}
}

// Authorize returns ErrUnauthorized for any principal other than the admin.
func (a *SingleAdmin) Authorize(principal string) error {
	if principal == "" || principal != a.admin {
		return fmt.Errorf("%w: principal %q", ErrUnauthorized, principal)
	}
	return nil
}

// PrincipalSet authorizes any member of a fixed set of principals.
type PrincipalSet struct {
	members map[string]struct{}
}

// Ensure PrincipalSet implements the Authorizer interface.
var _ Authorizer = (*PrincipalSet)(nil)

// NewPrincipalSet creates an authorizer accepting any of the given principals.
func NewPrincipalSet(principals ...string) *PrincipalSet {
	members := make(map[string]struct{}, len(principals))
	for _, p := range principals {
		members[p] = struct{}{}
	}
	return &PrincipalSet{members: members}
}

// Authorize returns ErrUnauthorized for principals outside the set.
func (a *PrincipalSet) Authorize(principal string) error {
	if _, ok := a.members[principal]; !ok {
		return fmt.Errorf("%w: principal %q", ErrUnauthorized, principal)
	}
	return nil
}
