package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BloodUnit is the database shape of one blood unit row.
// Blood type is stored as two columns (blood_group, rh_factor).
type BloodUnit struct {
	UnitID            string          `db:"unit_id"`
	DonorID           string          `db:"donor_id"`
	BloodGroup        string          `db:"blood_group"`
	RhFactor          string          `db:"rh_factor"`
	ComponentType     string          `db:"component_type"`
	TotalVolumeMl     decimal.Decimal `db:"total_volume_ml"`
	RemainingVolumeMl decimal.Decimal `db:"remaining_volume_ml"`
	IsSeparated       bool            `db:"is_separated"`
	ParentUnitID      *string         `db:"parent_unit_id"` // Nullable
	ExpiryDate        time.Time       `db:"expiry_date"`
	Status            string          `db:"status"`
	AuditFields
}

// BloodUnitAction is the database shape of one append-only audit row.
type BloodUnitAction struct {
	ActionID      string    `db:"action_id"`
	UnitID        string    `db:"unit_id"`
	ActorID       string    `db:"actor_id"`
	Kind          string    `db:"kind"`
	PreviousValue string    `db:"previous_value"`
	NewValue      string    `db:"new_value"`
	OccurredAt    time.Time `db:"occurred_at"`
}
