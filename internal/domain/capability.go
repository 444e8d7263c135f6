package domain

// Capability identifies an action guarded by role.
type Capability string

const (
	CapRequestCreate      Capability = "request:create"
	CapRequestListOwn     Capability = "request:list_own"
	CapRequestView        Capability = "request:view"
	CapRequestComment     Capability = "request:comment"
	CapRequestListAll     Capability = "request:list_all"
	CapRequestSetStatus   Capability = "request:set_status"
	CapRequestViewHistory Capability = "request:view_history"
	CapRequestAssign      Capability = "request:assign"
	CapProfileUpdate      Capability = "profile:update"
	CapUserList           Capability = "user:list"
	CapUserView           Capability = "user:view"
)

var baseCapabilities = []Capability{
	CapRequestCreate,
	CapRequestListOwn,
	CapRequestView,
	CapRequestComment,
	CapProfileUpdate,
}

var staffCapabilities = []Capability{
	CapRequestListAll,
	CapRequestSetStatus,
	CapRequestViewHistory,
}

var adminCapabilities = []Capability{
	CapRequestAssign,
	CapUserList,
	CapUserView,
}

// RoleCapabilities is the static role to capability table.
var RoleCapabilities = buildCapabilityTable()

func buildCapabilityTable() map[Role]map[Capability]struct{} {
	grant := func(groups ...[]Capability) map[Capability]struct{} {
		set := make(map[Capability]struct{})
		for _, group := range groups {
			for _, capability := range group {
				set[capability] = struct{}{}
			}
		}
		return set
	}
	return map[Role]map[Capability]struct{}{
		RoleCustomer: grant(baseCapabilities),
		RoleSupport:  grant(baseCapabilities, staffCapabilities),
		RoleAdmin:    grant(baseCapabilities, staffCapabilities, adminCapabilities),
	}
}

// Can reports whether role holds capability.
func (r Role) Can(capability Capability) bool {
	_, ok := RoleCapabilities[r][capability]
	return ok
}
