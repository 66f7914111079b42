package core

// Permission enumerates the engine's access-control capabilities. Each value
// maps to a fixed column of the budget_access_control table; new capabilities
// are added here, never by constructing column names at runtime.
type Permission string

const (
	PermViewBudget          Permission = "can_view_budget"
	PermManageBudget        Permission = "can_manage_budget"
	PermApproveTransactions Permission = "can_approve_transactions"
	PermManageTargets       Permission = "can_manage_targets"
)

// Permissions lists every capability the engine knows about.
func Permissions() []Permission {
	return []Permission{
		PermViewBudget,
		PermManageBudget,
		PermApproveTransactions,
		PermManageTargets,
	}
}

// AccessControl is one staff member's capability row. A missing row means no
// capabilities.
type AccessControl struct {
	UserID              int64
	ViewBudget          bool
	ManageBudget        bool
	ApproveTransactions bool
	ManageTargets       bool
}

// Has reports whether the capability row grants a permission. An unknown
// permission is never granted.
func (a AccessControl) Has(p Permission) bool {
	switch p {
	case PermViewBudget:
		return a.ViewBudget
	case PermManageBudget:
		return a.ManageBudget
	case PermApproveTransactions:
		return a.ApproveTransactions
	case PermManageTargets:
		return a.ManageTargets
	}
	return false
}
