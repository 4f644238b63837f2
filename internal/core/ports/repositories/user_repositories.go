package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a specific user by its unique identifier.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by email, for authentication.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListUsers retrieves a paginated list of active users.
	ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)

	// FindDonorsByBloodTypes retrieves active MEMBER users whose recorded blood
	// type is one of the given types. Used to suggest donor contacts.
	FindDonorsByBloodTypes(ctx context.Context, bloodTypes []domain.BloodType) ([]domain.User, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateUser updates an existing user's details.
	UpdateUser(ctx context.Context, user domain.User) error

	// DeactivateUser marks a user as inactive.
	DeactivateUser(ctx context.Context, userID string, actorID string, now time.Time) error
}

// UserTransactionSupport defines operations that run inside another
// component's transaction, such as back-filling a donor's blood type during
// their first blood unit intake.
type UserTransactionSupport interface {
	// SetUserBloodTypeInTx records the donor's established blood type. Fails if
	// a different type is already recorded.
	SetUserBloodTypeInTx(ctx context.Context, tx pgx.Tx, userID string, bloodType domain.BloodType, actorID string, now time.Time) error
}

// UserRepositoryFacade combines all user-related repository interfaces
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	UserTransactionSupport
}
