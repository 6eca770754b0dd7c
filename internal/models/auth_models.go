package models

import "time"

const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleCashier    = "cashier"
	RoleWaiter     = "waiter"
	RoleKitchen    = "kitchen"
)

// IsValidTenantRole reports whether role can be assigned to a tenant user.
func IsValidTenantRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// User represents a user in the system. TenantID is nil only for the superadmin.
type User struct {
	ID           int64     `json:"id" db:"id"`
	TenantID     *int64    `json:"tenant_id,omitempty" db:"tenant_id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
