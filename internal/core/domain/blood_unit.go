package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentType identifies what a blood unit physically contains.
type ComponentType string

const (
	WholeBlood ComponentType = "WHOLE_BLOOD"
	RedCells   ComponentType = "RED_CELLS"
	Plasma     ComponentType = "PLASMA"
	Platelets  ComponentType = "PLATELETS"
)

// BloodUnitStatus is the inventory state of a blood unit.
type BloodUnitStatus string

const (
	UnitAvailable   BloodUnitStatus = "AVAILABLE"
	UnitUsed        BloodUnitStatus = "USED"
	UnitExpired     BloodUnitStatus = "EXPIRED"
	UnitTransferred BloodUnitStatus = "TRANSFERRED"
	UnitReserved    BloodUnitStatus = "RESERVED"
	UnitDamaged     BloodUnitStatus = "DAMAGED"
)

// BloodUnit is a physical quantity of collected blood or a derived component.
// Invariants maintained by the inventory service:
//   - 0 <= RemainingVolumeMl <= TotalVolumeMl
//   - RemainingVolumeMl == 0 implies Status == USED
//   - a separated WHOLE_BLOOD unit has RemainingVolumeMl == 0 and Status == USED,
//     with its component children pointing back via ParentUnitID
type BloodUnit struct {
	UnitID            string          `json:"unitID"`      // Primary Key (UUID)
	DonorID           string          `json:"donorID"`     // FK -> users.user_id (Not Null)
	BloodType         BloodType       `json:"bloodType"`   // Immutable per donor
	ComponentType     ComponentType   `json:"componentType"`
	TotalVolumeMl     decimal.Decimal `json:"totalVolumeMl"`
	RemainingVolumeMl decimal.Decimal `json:"remainingVolumeMl"`
	IsSeparated       bool            `json:"isSeparated"`
	ParentUnitID      *string         `json:"parentUnitID,omitempty"` // Set on units derived by separation
	ExpiryDate        time.Time       `json:"expiryDate"`
	Status            BloodUnitStatus `json:"status"`
	AuditFields
}

// IsExpired reports whether the unit's expiry date has passed.
func (u *BloodUnit) IsExpired(now time.Time) bool {
	return !u.ExpiryDate.After(now)
}

// BloodUnitActionKind is the kind of audit record written for a blood unit mutation.
type BloodUnitActionKind string

const (
	ActionCreated             BloodUnitActionKind = "CREATED"
	ActionStatusUpdate        BloodUnitActionKind = "STATUS_UPDATE"
	ActionVolumeChange        BloodUnitActionKind = "VOLUME_CHANGE"
	ActionComponentsSeparated BloodUnitActionKind = "COMPONENTS_SEPARATED"
)

// BloodUnitAction is an append-only audit record for one blood unit mutation.
// It is created once and never updated or deleted.
type BloodUnitAction struct {
	ActionID      string              `json:"actionID"` // Primary Key (UUID)
	UnitID        string              `json:"unitID"`   // FK -> blood_units.unit_id
	ActorID       string              `json:"actorID"`  // Staff user performing the action
	Kind          BloodUnitActionKind `json:"kind"`
	PreviousValue string              `json:"previousValue"`
	NewValue      string              `json:"newValue"`
	OccurredAt    time.Time           `json:"occurredAt"`
}
