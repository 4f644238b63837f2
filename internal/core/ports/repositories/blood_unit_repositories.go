package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// ListUnitsFilter narrows blood unit listings. Zero values mean "no filter".
type ListUnitsFilter struct {
	BloodTypes     []domain.BloodType
	ComponentType  *domain.ComponentType
	Status         *domain.BloodUnitStatus
	ExcludeExpired bool
	Now            time.Time // Reference time for the expiry filter
}

// ExpiredUnit pairs a swept unit with the status it held before the sweep.
type ExpiredUnit struct {
	Unit           domain.BloodUnit
	PreviousStatus domain.BloodUnitStatus
}

// BloodUnitReader defines read operations for blood unit data
type BloodUnitReader interface {
	// FindUnitByID retrieves a specific blood unit by its unique identifier.
	FindUnitByID(ctx context.Context, unitID string) (*domain.BloodUnit, error)

	// FindUnitsByDonor retrieves every blood unit owned by a donor.
	FindUnitsByDonor(ctx context.Context, donorID string) ([]domain.BloodUnit, error)

	// FindDonorBloodType returns the blood type recorded on the donor's
	// existing units, or nil if the donor has no units yet.
	FindDonorBloodType(ctx context.Context, donorID string) (*domain.BloodType, error)

	// ListUnits retrieves a filtered, paginated list of blood units using
	// token-based pagination. It returns the units, a token for the next page,
	// and an error.
	ListUnits(ctx context.Context, filter ListUnitsFilter, limit int, nextToken *string) ([]domain.BloodUnit, *string, error)

	// ListActionsByUnit retrieves the audit trail of a unit, oldest first.
	ListActionsByUnit(ctx context.Context, unitID string) ([]domain.BloodUnitAction, error)
}

// BloodUnitWriter defines write operations for blood unit data
type BloodUnitWriter interface {
	// SaveUnit persists a new blood unit.
	SaveUnit(ctx context.Context, unit domain.BloodUnit) error

	// UpdateUnit updates the mutable fields of a unit (remaining volume,
	// status, separation flag).
	UpdateUnit(ctx context.Context, unit domain.BloodUnit) error

	// SaveAction appends an audit record. Actions are never updated or deleted.
	SaveAction(ctx context.Context, action domain.BloodUnitAction) error

	// ExpireUnits marks every AVAILABLE or RESERVED unit whose expiry date has
	// passed as EXPIRED and returns the transitioned units together with the
	// status each one held before the sweep.
	ExpireUnits(ctx context.Context, now time.Time, actorID string) ([]ExpiredUnit, error)
}

// BloodUnitTransactionSupport defines operations used inside a database
// transaction. Volume mutations lock the unit row so concurrent deductions
// serialize on the store.
type BloodUnitTransactionSupport interface {
	// FindUnitByIDForUpdate selects one unit and locks its row for update.
	FindUnitByIDForUpdate(ctx context.Context, tx pgx.Tx, unitID string) (*domain.BloodUnit, error)

	// UpdateUnitInTx persists volume/status/separation changes within a transaction.
	UpdateUnitInTx(ctx context.Context, tx pgx.Tx, unit domain.BloodUnit) error

	// SaveUnitsInTx inserts multiple units within a transaction (component separation).
	SaveUnitsInTx(ctx context.Context, tx pgx.Tx, units []domain.BloodUnit) error

	// SaveActionInTx appends an audit record within a transaction.
	SaveActionInTx(ctx context.Context, tx pgx.Tx, action domain.BloodUnitAction) error
}

// BloodUnitRepositoryFacade combines all blood-unit-related repository interfaces
type BloodUnitRepositoryFacade interface {
	BloodUnitReader
	BloodUnitWriter
	BloodUnitTransactionSupport
}

// BloodUnitRepositoryWithTx extends BloodUnitRepositoryFacade with transaction capabilities
type BloodUnitRepositoryWithTx interface {
	BloodUnitRepositoryFacade
	TransactionManager
}
