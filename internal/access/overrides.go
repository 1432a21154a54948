package access

// Set returns a new override store with the (user, permission) entry set to
// the given value, or cleared when value is nil. The receiver is never
// mutated. Clearing the last entry for a user removes the user's key
// entirely, keeping the store canonical-minimal: presence of a user key
// implies at least one override. Permission identifiers are stored as given;
// membership in the catalog is not checked.
func (o Overrides) Set(user UserID, permission PermissionID, value *bool) Overrides {
	out := o.clone()
	if value == nil {
		inner, ok := out[user]
		if !ok {
			return out
		}
		delete(inner, permission)
		if len(inner) == 0 {
			delete(out, user)
		}
		return out
	}
	inner, ok := out[user]
	if !ok {
		inner = make(map[PermissionID]bool, 1)
		out[user] = inner
	}
	inner[permission] = *value
	return out
}

// Get returns the override for (user, permission), if any.
func (o Overrides) Get(user UserID, permission PermissionID) (allowed bool, ok bool) {
	allowed, ok = o[user][permission]
	return allowed, ok
}
