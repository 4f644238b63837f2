package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmergencyRequest is the database shape of one emergency request row.
// suggested_donors is stored as a text[] column.
type EmergencyRequest struct {
	RequestID        string          `db:"request_id"`
	RequesterID      string          `db:"requester_id"`
	BloodGroup       string          `db:"blood_group"`
	RhFactor         string          `db:"rh_factor"`
	ComponentType    *string         `db:"component_type"` // Nullable, nil means whole blood
	RequiredVolumeMl decimal.Decimal `db:"required_volume_ml"`
	UsedVolumeMl     decimal.Decimal `db:"used_volume_ml"`
	AssignedUnitID   *string         `db:"assigned_unit_id"` // Nullable
	Status           string          `db:"status"`
	RejectionReason  *string         `db:"rejection_reason"` // Nullable
	SuggestedDonors  []string        `db:"suggested_donors"`
	StartDate        time.Time       `db:"start_date"`
	EndDate          time.Time       `db:"end_date"`
	AuditFields
}

// EmergencyRequestLog is the database shape of one transition log row.
type EmergencyRequestLog struct {
	LogID      string    `db:"log_id"`
	RequestID  string    `db:"request_id"`
	ActorID    string    `db:"actor_id"`
	FromStatus string    `db:"from_status"`
	ToStatus   string    `db:"to_status"`
	Note       string    `db:"note"`
	OccurredAt time.Time `db:"occurred_at"`
}
