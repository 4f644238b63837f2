package domain

import "time"

// UserRole classifies an account for authorization decisions. Emergency
// approval and rejection are restricted to requests from HOSPITAL accounts;
// MEMBER accounts are donors and individual requesters.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleStaff    UserRole = "STAFF"
	RoleHospital UserRole = "HOSPITAL"
	RoleMember   UserRole = "MEMBER"
)

// User represents an account in the domain: staff, hospital, or donor/member.
type User struct {
	UserID       string     `json:"userID"` // Primary Key (UUID)
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	// BloodType is established by the donor's first accepted blood unit and is
	// immutable afterwards.
	BloodType *BloodType `json:"bloodType,omitempty"`
	IsActive  bool       `json:"isActive"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete
}
