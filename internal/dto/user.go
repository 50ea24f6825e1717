package dto

import "github.com/revenuehq/tax-portal-api/internal/models"

// AdminCreateUserRequest lets an administrator provision accounts. The TIN
// is optional for staff roles; a temporary one is generated when absent.
type AdminCreateUserRequest struct {
	FullName     string              `json:"full_name" validate:"required"`
	Email        string              `json:"email" validate:"required,email"`
	Password     string              `json:"password" validate:"required,min=6"`
	Role         models.UserRole     `json:"role" validate:"required,oneof=TAXPAYER OFFICER ADMIN"`
	TIN          string              `json:"tin"`
	TaxpayerType models.TaxpayerType `json:"taxpayer_type"`
}

// UpdateProfileRequest mutates the caller's own profile fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// UpdateUserRoleRequest mutates a user's role; admin only.
type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=TAXPAYER OFFICER ADMIN"`
}
