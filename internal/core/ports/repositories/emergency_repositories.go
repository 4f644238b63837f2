package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// ListRequestsFilter narrows emergency request listings. Nil fields mean "no filter".
type ListRequestsFilter struct {
	Status      *domain.EmergencyStatus
	RequesterID *string
}

// EmergencyReader defines read operations for emergency request data
type EmergencyReader interface {
	// FindRequestByID retrieves a specific request by its unique identifier.
	FindRequestByID(ctx context.Context, requestID string) (*domain.EmergencyRequest, error)

	// ListRequests retrieves a filtered, paginated list of requests using
	// token-based pagination.
	ListRequests(ctx context.Context, filter ListRequestsFilter, limit int, nextToken *string) ([]domain.EmergencyRequest, *string, error)

	// FindPendingByBloodType retrieves all PENDING requests matching a blood
	// type and component, restricted to the given requester role.
	FindPendingByBloodType(ctx context.Context, bloodType domain.BloodType, component domain.ComponentType, requesterRole domain.UserRole) ([]domain.EmergencyRequest, error)

	// ListLogsByRequest retrieves the request's transition log, oldest first.
	ListLogsByRequest(ctx context.Context, requestID string) ([]domain.EmergencyRequestLog, error)
}

// EmergencyWriter defines write operations for emergency request data
type EmergencyWriter interface {
	// SaveRequest persists a new emergency request.
	SaveRequest(ctx context.Context, request domain.EmergencyRequest) error

	// UpdateRequest persists status/assignment changes of a request.
	UpdateRequest(ctx context.Context, request domain.EmergencyRequest) error

	// SaveLog appends a transition log entry. Logs are never updated or deleted.
	SaveLog(ctx context.Context, log domain.EmergencyRequestLog) error
}

// EmergencyTransactionSupport defines operations used inside a database
// transaction. Approval locks the request row so two concurrent approvals of
// the same request cannot both succeed.
type EmergencyTransactionSupport interface {
	// FindRequestByIDForUpdate selects one request and locks its row for update.
	FindRequestByIDForUpdate(ctx context.Context, tx pgx.Tx, requestID string) (*domain.EmergencyRequest, error)

	// SaveRequestInTx persists a new request within a transaction, so the
	// request and its initial log entry commit together.
	SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error

	// UpdateRequestInTx persists status/assignment changes within a transaction.
	UpdateRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error

	// SaveLogInTx appends a transition log entry within a transaction.
	SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.EmergencyRequestLog) error
}

// EmergencyRepositoryFacade combines all emergency-request-related repository interfaces
type EmergencyRepositoryFacade interface {
	EmergencyReader
	EmergencyWriter
	EmergencyTransactionSupport
}

// EmergencyRepositoryWithTx extends EmergencyRepositoryFacade with transaction capabilities
type EmergencyRepositoryWithTx interface {
	EmergencyRepositoryFacade
	TransactionManager
}
