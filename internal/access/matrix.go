package access

// Toggle flips membership of role in the set for permission and returns a new
// matrix; the receiver is never mutated. Toggling RoleAdmin is a silent no-op:
// the super role's rows are locked at the editing surface. A permission whose
// last role is removed keeps its empty set; callers treat empty and absent
// alike.
func (m Matrix) Toggle(role Role, permission PermissionID) Matrix {
	if role == RoleAdmin {
		return m
	}
	out := m.clone()
	set, ok := out[permission]
	if !ok {
		set = make(RoleSet)
		out[permission] = set
	}
	if _, member := set[role]; member {
		delete(set, role)
	} else {
		set[role] = struct{}{}
	}
	return out
}

// Grants reports whether the matrix grants permission to role by default.
func (m Matrix) Grants(role Role, permission PermissionID) bool {
	_, ok := m[permission][role]
	return ok
}
