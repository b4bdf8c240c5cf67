package lifecycle

import "github.com/spec-kit/sla-governance/internal/domain"

// Action names a lifecycle capability checked against the permission table.
type Action string

const (
	ActionCreate         Action = "create"
	ActionClaim          Action = "claim"
	ActionUpdateStatus   Action = "update-status"
	ActionReassign       Action = "reassign"
	ActionViewAll        Action = "view-all"
	ActionViewGovernance Action = "view-governance"
)

var permissions = map[domain.Role]map[Action]bool{
	domain.RoleEmployee: {
		ActionCreate: true,
	},
	domain.RoleManager: {
		ActionCreate:         true,
		ActionViewGovernance: true,
	},
	domain.RoleTechnician: {
		ActionCreate:       true,
		ActionClaim:        true,
		ActionUpdateStatus: true,
		ActionViewAll:      true,
	},
	domain.RoleAdmin: {
		ActionCreate:         true,
		ActionUpdateStatus:   true,
		ActionReassign:       true,
		ActionViewAll:        true,
		ActionViewGovernance: true,
	},
}

// Can reports whether role may perform action. Unknown roles may do nothing.
func Can(role domain.Role, action Action) bool {
	return permissions[role][action]
}
