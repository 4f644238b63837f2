package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// CreateEmergencyRequest defines the submission of an urgent blood request.
type CreateEmergencyRequest struct {
	BloodGroup       string          `json:"bloodGroup" binding:"required,bloodgroup"`
	RhFactor         string          `json:"rhFactor" binding:"required,rhfactor"`
	ComponentType    *string         `json:"componentType,omitempty" binding:"omitempty,oneof=WHOLE_BLOOD RED_CELLS PLASMA PLATELETS"`
	RequiredVolumeMl decimal.Decimal `json:"requiredVolumeMl" binding:"required"`
	StartDate        *time.Time      `json:"startDate,omitempty"`
}

// BloodType assembles the value object from the validated request fields.
func (r CreateEmergencyRequest) BloodType() domain.BloodType {
	return domain.BloodType{Group: domain.BloodGroup(r.BloodGroup), Rh: domain.RhFactor(r.RhFactor)}
}

// ApproveEmergencyRequest defines the staff approval of a pending request.
type ApproveEmergencyRequest struct {
	BloodUnitID  string          `json:"bloodUnitID" binding:"required"`
	UsedVolumeMl decimal.Decimal `json:"usedVolumeMl" binding:"required"`
}

// RejectEmergencyRequest defines the staff rejection of a pending request.
type RejectEmergencyRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectByBloodTypeRequest defines a bulk rejection of all pending hospital
// requests matching a blood type and component.
type RejectByBloodTypeRequest struct {
	BloodGroup    string  `json:"bloodGroup" binding:"required,bloodgroup"`
	RhFactor      string  `json:"rhFactor" binding:"required,rhfactor"`
	ComponentType *string `json:"componentType,omitempty" binding:"omitempty,oneof=WHOLE_BLOOD RED_CELLS PLASMA PLATELETS"`
	Reason        string  `json:"reason" binding:"required"`
}

// BloodType assembles the value object from the validated request fields.
func (r RejectByBloodTypeRequest) BloodType() domain.BloodType {
	return domain.BloodType{Group: domain.BloodGroup(r.BloodGroup), Rh: domain.RhFactor(r.RhFactor)}
}

// ProvideContactsRequest defines the suggested donor contacts for an
// individual requester. When DonorIDs is empty the service looks up compatible
// active donors itself.
type ProvideContactsRequest struct {
	DonorIDs []string `json:"donorIDs"`
}

// ListEmergencyParams holds query parameters for listing emergency requests.
type ListEmergencyParams struct {
	Status      *string `form:"status"`
	RequesterID *string `form:"requesterID"`
	Limit       int     `form:"limit"`
	NextToken   *string `form:"nextToken"`
}

// EmergencyResponse defines the data returned for an emergency request.
type EmergencyResponse struct {
	RequestID        string          `json:"requestID"`
	RequesterID      string          `json:"requesterID"`
	BloodType        string          `json:"bloodType"`
	ComponentType    string          `json:"componentType"`
	RequiredVolumeMl decimal.Decimal `json:"requiredVolumeMl"`
	UsedVolumeMl     decimal.Decimal `json:"usedVolumeMl"`
	AssignedUnitID   *string         `json:"assignedUnitID,omitempty"`
	Status           string          `json:"status"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	SuggestedDonors  []string        `json:"suggestedDonors,omitempty"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	CreatedAt        time.Time       `json:"createdAt"`
	LastUpdatedAt    time.Time       `json:"lastUpdatedAt"`
}

// ToEmergencyResponse converts a domain.EmergencyRequest to its response DTO.
func ToEmergencyResponse(r *domain.EmergencyRequest) EmergencyResponse {
	return EmergencyResponse{
		RequestID:        r.RequestID,
		RequesterID:      r.RequesterID,
		BloodType:        r.BloodType.String(),
		ComponentType:    string(r.Component()),
		RequiredVolumeMl: r.RequiredVolumeMl,
		UsedVolumeMl:     r.UsedVolumeMl,
		AssignedUnitID:   r.AssignedUnitID,
		Status:           string(r.Status),
		RejectionReason:  r.RejectionReason,
		SuggestedDonors:  r.SuggestedDonors,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		CreatedAt:        r.CreatedAt,
		LastUpdatedAt:    r.LastUpdatedAt,
	}
}

// ToEmergencyResponses converts a slice of requests.
func ToEmergencyResponses(requests []domain.EmergencyRequest) []EmergencyResponse {
	out := make([]EmergencyResponse, len(requests))
	for i := range requests {
		out[i] = ToEmergencyResponse(&requests[i])
	}
	return out
}

// ListEmergencyResponse is a paginated emergency request listing.
type ListEmergencyResponse struct {
	Requests  []EmergencyResponse `json:"requests"`
	NextToken *string             `json:"nextToken,omitempty"`
}

// BulkRejectResponse reports the outcome of a bulk rejection.
type BulkRejectResponse struct {
	Count      int      `json:"count"`
	RequestIDs []string `json:"requestIDs"`
}

// EmergencyLogResponse defines the data returned for one transition log entry.
type EmergencyLogResponse struct {
	LogID      string    `json:"logID"`
	RequestID  string    `json:"requestID"`
	ActorID    string    `json:"actorID"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ToEmergencyLogResponses converts log entries to response DTOs.
func ToEmergencyLogResponses(logs []domain.EmergencyRequestLog) []EmergencyLogResponse {
	out := make([]EmergencyLogResponse, len(logs))
	for i, l := range logs {
		out[i] = EmergencyLogResponse{
			LogID:      l.LogID,
			RequestID:  l.RequestID,
			ActorID:    l.ActorID,
			FromStatus: string(l.FromStatus),
			ToStatus:   string(l.ToStatus),
			Note:       l.Note,
			OccurredAt: l.OccurredAt,
		}
	}
	return out
}
