package workflow

// Role names recognized by the workflow rules
const (
	RoleSupervisor   = "SUPERVISOR"
	RoleRegistrar    = "REGISTRAR"
	RoleCertificator = "CERTIFICATOR"
	RoleLegalAdvisor = "LEGAL_ADVISOR"
	RoleCashier      = "CASHIER"
	RoleReceptionist = "RECEPTIONIST"
)

// Principal identifies the authenticated user on whose behalf a workflow
// operation runs. It is threaded explicitly through every engine call;
// nothing in the workflow core reads ambient user state.
type Principal struct {
	UserID string
	Roles  []string
}

// IsInRole returns true if the principal carries the given role
func (p Principal) IsInRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSupervisor returns true if the principal carries the supervisor role
func (p Principal) IsSupervisor() bool {
	return p.IsInRole(RoleSupervisor)
}
