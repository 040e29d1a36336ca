package shared

// Quote and order permissions.
const (
	PermQuotesView    = "quotes.view"
	PermQuotesCreate  = "quotes.create"
	PermQuotesEdit    = "quotes.edit"
	PermQuotesDelete  = "quotes.delete"
	PermQuotesStatus  = "quotes.status"
	PermQuotesConvert = "quotes.convert"

	PermOrdersView     = "orders.view"
	PermOrdersCreate   = "orders.create"
	PermOrdersEdit     = "orders.edit"
	PermOrdersDelete   = "orders.delete"
	PermOrdersStatus   = "orders.status"
	PermOrdersTracking = "orders.tracking"
)

// SalesScopes lists all permissions related to quotes and orders.
func SalesScopes() []string {
	return []string{
		PermQuotesView,
		PermQuotesCreate,
		PermQuotesEdit,
		PermQuotesDelete,
		PermQuotesStatus,
		PermQuotesConvert,
		PermOrdersView,
		PermOrdersCreate,
		PermOrdersEdit,
		PermOrdersDelete,
		PermOrdersStatus,
		PermOrdersTracking,
	}
}

// AllScopes returns every permission known to the application.
func AllScopes() []string {
	all := make([]string, 0, 40)
	all = append(all, CoreScopes()...)
	all = append(all, CatalogScopes()...)
	all = append(all, SalesScopes()...)
	return all
}
