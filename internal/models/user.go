package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleTaxpayer UserRole = "TAXPAYER"
	RoleOfficer  UserRole = "OFFICER"
	RoleAdmin    UserRole = "ADMIN"
)

// TaxpayerType classifies a taxpayer profile.
type TaxpayerType string

const (
	TaxpayerTypeIndividual   TaxpayerType = "Individual"
	TaxpayerTypeOrganization TaxpayerType = "Organization"
)

// BootstrapAdminTIN is assigned to the initial administrator account.
const BootstrapAdminTIN = "ADMIN-000000"

// User represents a portal account stored in the profiles table.
type User struct {
	ID           string       `db:"id" json:"id"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	FullName     string       `db:"full_name" json:"full_name"`
	TIN          string       `db:"tin" json:"tin"`
	Role         UserRole     `db:"role" json:"role"`
	TaxpayerType TaxpayerType `db:"taxpayer_type" json:"taxpayer_type"`
	AvatarURL    *string      `db:"avatar_url" json:"avatar_url,omitempty"`
	Active       bool         `db:"active" json:"active"`
	LastLogin    *time.Time   `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// ProfileStub carries the owning taxpayer's identity in joined listings.
type ProfileStub struct {
	FullName     string       `db:"profile_full_name" json:"full_name"`
	TIN          string       `db:"profile_tin" json:"tin"`
	Email        string       `db:"profile_email" json:"email"`
	TaxpayerType TaxpayerType `db:"profile_taxpayer_type" json:"taxpayer_type"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
