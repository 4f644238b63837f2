package models

import "time"

// User is the database shape of one account row. blood_group and rh_factor
// are set once by the donor's first accepted blood unit.
type User struct {
	UserID       string  `db:"user_id"`
	Name         string  `db:"name"`
	Email        string  `db:"email"`
	PasswordHash string  `db:"password_hash"`
	Role         string  `db:"role"`
	BloodGroup   *string `db:"blood_group"` // Nullable
	RhFactor     *string `db:"rh_factor"`   // Nullable
	IsActive     bool    `db:"is_active"`
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"` // Nullable, soft delete
}
