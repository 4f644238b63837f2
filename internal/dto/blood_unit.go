package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// CreateBloodUnitRequest defines the data needed to register a whole blood intake.
type CreateBloodUnitRequest struct {
	DonorID    string          `json:"donorID" binding:"required"`
	BloodGroup string          `json:"bloodGroup" binding:"required,bloodgroup"`
	RhFactor   string          `json:"rhFactor" binding:"required,rhfactor"`
	VolumeMl   decimal.Decimal `json:"volumeMl" binding:"required"`
	ExpiryDate time.Time       `json:"expiryDate" binding:"required"`
}

// BloodType assembles the value object from the validated request fields.
func (r CreateBloodUnitRequest) BloodType() domain.BloodType {
	return domain.BloodType{Group: domain.BloodGroup(r.BloodGroup), Rh: domain.RhFactor(r.RhFactor)}
}

// SeparateComponentsRequest defines the per-component volumes and expiries for
// splitting a whole blood unit.
type SeparateComponentsRequest struct {
	RedCellsMl      decimal.Decimal `json:"redCellsMl" binding:"required"`
	PlasmaMl        decimal.Decimal `json:"plasmaMl" binding:"required"`
	PlateletsMl     decimal.Decimal `json:"plateletsMl" binding:"required"`
	RedCellsExpiry  time.Time       `json:"redCellsExpiry" binding:"required"`
	PlasmaExpiry    time.Time       `json:"plasmaExpiry" binding:"required"`
	PlateletsExpiry time.Time       `json:"plateletsExpiry" binding:"required"`
}

// DeductVolumeRequest defines a volume deduction against one unit.
type DeductVolumeRequest struct {
	AmountMl decimal.Decimal `json:"amountMl" binding:"required"`
}

// UpdateUnitStatusRequest defines a staff-initiated status change.
type UpdateUnitStatusRequest struct {
	Status domain.BloodUnitStatus `json:"status" binding:"required,oneof=AVAILABLE EXPIRED TRANSFERRED RESERVED DAMAGED"`
}

// ListUnitsParams holds query parameters for listing blood units.
type ListUnitsParams struct {
	BloodType      *string `form:"bloodType"`     // e.g. "A+"
	ComponentType  *string `form:"componentType"` // WHOLE_BLOOD|RED_CELLS|PLASMA|PLATELETS
	Status         *string `form:"status"`
	ExcludeExpired bool    `form:"excludeExpired"`
	Limit          int     `form:"limit"`
	NextToken      *string `form:"nextToken"`
}

// FindCompatibleParams holds query parameters for the compatibility search.
type FindCompatibleParams struct {
	BloodGroup     string  `form:"bloodGroup" binding:"required,bloodgroup"`
	RhFactor       string  `form:"rhFactor" binding:"required,rhfactor"`
	ComponentType  string  `form:"componentType" binding:"required,oneof=WHOLE_BLOOD RED_CELLS PLASMA PLATELETS"`
	Status         *string `form:"status"`
	ExcludeExpired bool    `form:"excludeExpired"`
	Limit          int     `form:"limit"`
	NextToken      *string `form:"nextToken"`
}

// BloodUnitResponse defines the data returned for a blood unit.
type BloodUnitResponse struct {
	UnitID            string          `json:"unitID"`
	DonorID           string          `json:"donorID"`
	BloodType         string          `json:"bloodType"` // "A+", "O-", ...
	ComponentType     string          `json:"componentType"`
	TotalVolumeMl     decimal.Decimal `json:"totalVolumeMl"`
	RemainingVolumeMl decimal.Decimal `json:"remainingVolumeMl"`
	IsSeparated       bool            `json:"isSeparated"`
	ParentUnitID      *string         `json:"parentUnitID,omitempty"`
	ExpiryDate        time.Time       `json:"expiryDate"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	LastUpdatedAt     time.Time       `json:"lastUpdatedAt"`
}

// ToBloodUnitResponse converts a domain.BloodUnit to its response DTO.
func ToBloodUnitResponse(u *domain.BloodUnit) BloodUnitResponse {
	return BloodUnitResponse{
		UnitID:            u.UnitID,
		DonorID:           u.DonorID,
		BloodType:         u.BloodType.String(),
		ComponentType:     string(u.ComponentType),
		TotalVolumeMl:     u.TotalVolumeMl,
		RemainingVolumeMl: u.RemainingVolumeMl,
		IsSeparated:       u.IsSeparated,
		ParentUnitID:      u.ParentUnitID,
		ExpiryDate:        u.ExpiryDate,
		Status:            string(u.Status),
		CreatedAt:         u.CreatedAt,
		LastUpdatedAt:     u.LastUpdatedAt,
	}
}

// ToBloodUnitResponses converts a slice of domain units.
func ToBloodUnitResponses(units []domain.BloodUnit) []BloodUnitResponse {
	out := make([]BloodUnitResponse, len(units))
	for i := range units {
		out[i] = ToBloodUnitResponse(&units[i])
	}
	return out
}

// SeparationResponse returns the parent and the three component units created
// by a separation.
type SeparationResponse struct {
	Parent    BloodUnitResponse `json:"parent"`
	RedCells  BloodUnitResponse `json:"redCells"`
	Plasma    BloodUnitResponse `json:"plasma"`
	Platelets BloodUnitResponse `json:"platelets"`
}

// ListUnitsResponse is a paginated blood unit listing.
type ListUnitsResponse struct {
	Units     []BloodUnitResponse `json:"units"`
	NextToken *string             `json:"nextToken,omitempty"`
}

// BloodUnitActionResponse defines the data returned for one audit record.
type BloodUnitActionResponse struct {
	ActionID      string    `json:"actionID"`
	UnitID        string    `json:"unitID"`
	ActorID       string    `json:"actorID"`
	Kind          string    `json:"kind"`
	PreviousValue string    `json:"previousValue"`
	NewValue      string    `json:"newValue"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ToBloodUnitActionResponses converts audit records to response DTOs.
func ToBloodUnitActionResponses(actions []domain.BloodUnitAction) []BloodUnitActionResponse {
	out := make([]BloodUnitActionResponse, len(actions))
	for i, a := range actions {
		out[i] = BloodUnitActionResponse{
			ActionID:      a.ActionID,
			UnitID:        a.UnitID,
			ActorID:       a.ActorID,
			Kind:          string(a.Kind),
			PreviousValue: a.PreviousValue,
			NewValue:      a.NewValue,
			OccurredAt:    a.OccurredAt,
		}
	}
	return out
}
