package rbac

import "errors"

// Role codes with reserved meaning. Exactly one role with CodeDefault must
// exist; its absence is a fatal startup condition checked in main.
const (
	// CodeDefault is assigned to every self-registered account.
	CodeDefault int32 = 0
	// CodeSuperAdmin bypasses every permission check.
	CodeSuperAdmin int32 = -1
)

// ErrRoleNotFound indicates a dangling role reference.
var ErrRoleNotFound = errors.New("rbac: role not found")

// Role groups a permission set under a stable integer code. Many accounts
// reference one role, so a permission update applies to all holders at once.
type Role struct {
	Code        int32    `json:"code"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Allows reports whether the role satisfies every required permission.
// The super-admin sentinel passes unconditionally, and an empty requirement
// always passes. Duplicate entries in the permission set are harmless.
func (r Role) Allows(required ...string) bool {
	if r.Code == CodeSuperAdmin {
		return true
	}
	if len(required) == 0 {
		return true
	}
	granted := make(map[string]struct{}, len(r.Permissions))
	for _, p := range r.Permissions {
		granted[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := granted[p]; !ok {
			return false
		}
	}
	return true
}
