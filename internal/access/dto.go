package access

import "sort"

// MatrixView is the JSON shape of the matrix: permission → sorted role list.
type MatrixView map[string][]string

// OverridesView is the JSON shape of the override store.
type OverridesView map[string]map[string]bool

// PolicyView is what the editor screen loads.
type PolicyView struct {
	Matrix    MatrixView    `json:"matrix"`
	Overrides OverridesView `json:"overrides"`
	Saving    bool          `json:"saving"`
}

// NewMatrixView converts a Matrix to its transport shape.
func NewMatrixView(m Matrix) MatrixView {
	out := make(MatrixView, len(m))
	for perm, roles := range m {
		list := make([]string, 0, len(roles))
		for role := range roles {
			list = append(list, string(role))
		}
		sort.Strings(list)
		out[string(perm)] = list
	}
	return out
}

// NewOverridesView converts an Overrides store to its transport shape.
func NewOverridesView(o Overrides) OverridesView {
	out := make(OverridesView, len(o))
	for user, perms := range o {
		inner := make(map[string]bool, len(perms))
		for perm, allowed := range perms {
			inner[string(perm)] = allowed
		}
		out[string(user)] = inner
	}
	return out
}

// NewPolicyView builds the editor payload.
func NewPolicyView(p Policy, saving bool) PolicyView {
	return PolicyView{
		Matrix:    NewMatrixView(p.Matrix),
		Overrides: NewOverridesView(p.Overrides),
		Saving:    saving,
	}
}
