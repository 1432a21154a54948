package catalog

import "github.com/vigil-ops/vigil/internal/access"

// Entry is one catalogued permission with its display label.
type Entry struct {
	ID    access.PermissionID `json:"id"`
	Label string              `json:"label"`
}

// Group bundles related permissions for display. Rank orders groups on the
// editor screen.
type Group struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Rank    int     `json:"rank"`
	Entries []Entry `json:"entries"`
}
