package shared

// Core platform permissions.
const (
	PermCompaniesView   = "companies.view"
	PermCompaniesManage = "companies.manage"

	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"

	PermAuditView     = "audit.view"
	PermDashboardView = "dashboard.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermCompaniesView,
		PermCompaniesManage,
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermAuditView,
		PermDashboardView,
	}
}
