package domain

import "time"

// Role determines which operations a user may perform.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupport  Role = "support"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSupport, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may handle service requests.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleAdmin
}

// Address is a customer's postal address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// User is an account holder: a customer, a support agent or an administrator.
// Role is fixed at creation.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Address      Address
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the identity fields joined into service request listings.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// UserSummary is the public identity of a user.
type UserSummary struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *Address
}
