package categories

import (
	"strings"

	"github.com/alvarodevdoo/erp/internal/shared"
)

func (in CategoryInput) normalize() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, shared.Validation("category name is required")
	}
	return in, nil
}
