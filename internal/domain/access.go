package domain

type Capability string

const (
	CapDashboard      Capability = "dashboard"
	CapInventory      Capability = "inventory"
	CapSales          Capability = "sales"
	CapInsights       Capability = "insights"
	CapHR             Capability = "hr"
	CapFinancials     Capability = "financials"
	CapAuditLog       Capability = "audit_log"
	CapSettings       Capability = "settings"
	CapViewFinancials Capability = "view_financials"
)

var staffCapabilities = map[Capability]bool{
	CapDashboard: true,
	CapInventory: true,
	CapSales:     true,
	CapInsights:  true,
}

// Allowed is the single authorization rule for the whole backend: admins can
// do everything, staff only the front-of-house capabilities.
func Allowed(role Role, capability Capability) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleStaff:
		return staffCapabilities[capability]
	default:
		return false
	}
}

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStaff:
		return RoleStaff, true
	default:
		return "", false
	}
}
