package models

import "strings"

// Role is the closed set of platform roles. The backend and older clients
// emit several spellings ("admin", "ROLE_ADMIN", "Admin"); ParseRole is the
// single place they are normalized.
type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleChef     Role = "ROLE_CHEF"
	RoleWaiter   Role = "ROLE_WAITER"
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleUnknown  Role = ""
)

// ParseRole normalizes any role spelling into the canonical enum.
func ParseRole(raw string) Role {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "ROLE_")
	switch normalized {
	case "ADMIN":
		return RoleAdmin
	case "CHEF":
		return RoleChef
	case "WAITER":
		return RoleWaiter
	case "CUSTOMER":
		return RoleCustomer
	default:
		return RoleUnknown
	}
}

// IsStaff reports whether the role can see venue-wide data.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleChef || r == RoleWaiter
}

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleChef:
		return "Chef"
	case RoleWaiter:
		return "Waiter"
	case RoleCustomer:
		return "Customer"
	default:
		return "User"
	}
}

// DashboardPath returns the route the role lands on after login.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/dashboard/admin"
	case RoleChef:
		return "/dashboard/chef"
	case RoleWaiter:
		return "/dashboard/waiter"
	case RoleCustomer:
		return "/dashboard/customer"
	default:
		return "/"
	}
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
