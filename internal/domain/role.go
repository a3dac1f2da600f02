package domain

// Role enumerates portal roles used for access scoping and notification
// targeting.
type Role string

const (
	RoleConsumer       Role = "CONSUMER"
	RoleSiteEngineer   Role = "SITE_ENGINEER"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
)

// OperatorRole reports whether the role belongs to utility staff.
func (r Role) OperatorRole() bool {
	return r == RoleSiteEngineer || r == RoleDepartmentHead
}
