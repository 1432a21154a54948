package access

// Resolve computes the effective decision for one permission. Precedence is
// strict: an explicit per-user override wins over the role default, allow and
// deny alike. A nil user fails closed.
//
// There is no special case for RoleAdmin here: its effective access depends
// entirely on the matrix actually containing ADMIN for each permission. The
// editing surface locks ADMIN rows and provisioning seeds them, but a matrix
// loaded without those entries resolves fail-closed like any other role.
func Resolve(user *User, permission PermissionID, matrix Matrix, overrides Overrides) Decision {
	if user == nil {
		return Decision{Allowed: false, Source: SourceRoleDefault}
	}
	if forced, ok := overrides[user.ID][permission]; ok {
		if forced {
			return Decision{Allowed: true, Source: SourceOverrideAllow}
		}
		return Decision{Allowed: false, Source: SourceOverrideDeny}
	}
	_, granted := matrix[permission][user.Role]
	return Decision{Allowed: granted, Source: SourceRoleDefault}
}
