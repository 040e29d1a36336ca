package rbac

import (
	"strings"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Permission represents an atomic capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var actionLabels = map[string]string{
	"view":     "View",
	"create":   "Create",
	"edit":     "Edit",
	"delete":   "Delete",
	"manage":   "Manage",
	"status":   "Change status of",
	"convert":  "Convert",
	"move":     "Record movements of",
	"tracking": "Track time and expenses of",
}

// Catalog returns the fixed permission catalog with generated descriptions.
func Catalog() []Permission {
	scopes := shared.AllScopes()
	perms := make([]Permission, 0, len(scopes))
	for _, name := range scopes {
		perms = append(perms, Permission{Name: name, Description: describe(name)})
	}
	return perms
}

func describe(name string) string {
	resource, action, ok := strings.Cut(name, ".")
	if !ok {
		return name
	}
	label, ok := actionLabels[action]
	if !ok {
		label = action
	}
	return label + " " + resource
}
