package access

// Role identifies one of the fixed base roles. The set of valid values is
// owned by the directory (roles table); only the super role is distinguished
// in code.
type Role string

// RoleAdmin is the distinguished super role. Its matrix membership is locked
// against editing, and provisioning grants it every catalogued permission.
const RoleAdmin Role = "ADMIN"

// PermissionID identifies a catalogued permission. The access core treats it
// as opaque: unknown identifiers simply resolve to a role-default deny.
type PermissionID string

// UserID references a user record owned by the directory.
type UserID string

// User is the directory view the resolver needs.
type User struct {
	ID        UserID
	Name      string
	Role      Role
	BadgeNo   string
	AvatarKey string
}

// RoleSet holds the roles granted a permission by default.
type RoleSet map[Role]struct{}

// Matrix maps each permission to the roles that receive it by default.
// A missing permission is equivalent to an empty set.
type Matrix map[PermissionID]RoleSet

// Overrides maps users to their sparse per-permission exceptions.
// true forces allow, false forces deny; absence means inherit from role.
// Invariant: no user maps to an empty inner map.
type Overrides map[UserID]map[PermissionID]bool

// Source records which layer produced a decision.
type Source string

const (
	SourceRoleDefault   Source = "role_default"
	SourceOverrideAllow Source = "override_allow"
	SourceOverrideDeny  Source = "override_deny"
)

// Decision is the effective outcome for one (user, permission) pair.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Source  Source `json:"source"`
}

// Policy bundles the two structures that encode access policy. They are
// persisted independently (see Editor.Commit).
type Policy struct {
	Matrix    Matrix
	Overrides Overrides
}

// Clone returns a deep copy so drafts never alias committed state.
func (p Policy) Clone() Policy {
	return Policy{Matrix: p.Matrix.clone(), Overrides: p.Overrides.clone()}
}

func (m Matrix) clone() Matrix {
	out := make(Matrix, len(m))
	for perm, roles := range m {
		set := make(RoleSet, len(roles))
		for role := range roles {
			set[role] = struct{}{}
		}
		out[perm] = set
	}
	return out
}

func (o Overrides) clone() Overrides {
	out := make(Overrides, len(o))
	for user, perms := range o {
		inner := make(map[PermissionID]bool, len(perms))
		for perm, allowed := range perms {
			inner[perm] = allowed
		}
		out[user] = inner
	}
	return out
}
