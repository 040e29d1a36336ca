package shared

// Catalog and stock permissions.
const (
	PermPartnersView   = "partners.view"
	PermPartnersCreate = "partners.create"
	PermPartnersEdit   = "partners.edit"
	PermPartnersDelete = "partners.delete"

	PermCategoriesView = "categories.view"
	PermCategoriesEdit = "categories.edit"

	PermProductsView   = "products.view"
	PermProductsCreate = "products.create"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"

	PermStockView = "stock.view"
	PermStockMove = "stock.move"
)

// CatalogScopes lists permissions of master data and stock.
func CatalogScopes() []string {
	return []string{
		PermPartnersView,
		PermPartnersCreate,
		PermPartnersEdit,
		PermPartnersDelete,
		PermCategoriesView,
		PermCategoriesEdit,
		PermProductsView,
		PermProductsCreate,
		PermProductsEdit,
		PermProductsDelete,
		PermStockView,
		PermStockMove,
	}
}
