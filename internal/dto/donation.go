package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// CreateDonationRequest defines a donor's submission to join a campaign.
type CreateDonationRequest struct {
	CampaignID      string          `json:"campaignID" binding:"required"`
	AppointmentDate *time.Time      `json:"appointmentDate,omitempty"`
	VolumeMl        decimal.Decimal `json:"volumeMl"`
}

// UpdateDonationStatusRequest defines a staff-driven status transition.
type UpdateDonationStatusRequest struct {
	Status domain.DonationStatus `json:"status" binding:"required,oneof=PENDING APPOINTMENT_CONFIRMED CUSTOMER_CHECKED_IN COMPLETED RESULT_RETURNED APPOINTMENT_CANCELLED APPOINTMENT_ABSENT CUSTOMER_CANCELLED REJECTED"`
	Note   string                `json:"note"`
}

// CancelDonationRequest defines a donor-initiated cancellation.
type CancelDonationRequest struct {
	Note string `json:"note"`
}

// RescheduleDonationRequest defines an appointment date change.
type RescheduleDonationRequest struct {
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
}

// CompleteDonationRequest carries the collection outcome recorded when staff
// mark a donation COMPLETED.
type CompleteDonationRequest struct {
	VolumeMl     decimal.Decimal             `json:"volumeMl" binding:"required"`
	BloodGroup   *string                     `json:"bloodGroup,omitempty" binding:"omitempty,bloodgroup"`
	RhFactor     *string                     `json:"rhFactor,omitempty" binding:"omitempty,rhfactor"`
	ResultStatus domain.DonationResultStatus `json:"resultStatus" binding:"required,oneof=COMPLETED NOT_QUALIFIED"`
	RejectReason *string                     `json:"rejectReason,omitempty"`
	Note         string                      `json:"note"`
}

// BloodType assembles the optional blood type from the request fields.
func (r CompleteDonationRequest) BloodType() *domain.BloodType {
	if r.BloodGroup == nil || r.RhFactor == nil {
		return nil
	}
	return &domain.BloodType{Group: domain.BloodGroup(*r.BloodGroup), Rh: domain.RhFactor(*r.RhFactor)}
}

// ListDonationsParams holds query parameters for listing campaign donations.
type ListDonationsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// DonationResponse defines the data returned for a campaign donation.
type DonationResponse struct {
	DonationID      string          `json:"donationID"`
	DonorID         string          `json:"donorID"`
	CampaignID      string          `json:"campaignID"`
	Status          string          `json:"status"`
	AppointmentDate *time.Time      `json:"appointmentDate,omitempty"`
	VolumeMl        decimal.Decimal `json:"volumeMl"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastUpdatedAt   time.Time       `json:"lastUpdatedAt"`
}

// ToDonationResponse converts a domain.CampaignDonation to its response DTO.
func ToDonationResponse(d *domain.CampaignDonation) DonationResponse {
	return DonationResponse{
		DonationID:      d.DonationID,
		DonorID:         d.DonorID,
		CampaignID:      d.CampaignID,
		Status:          string(d.Status),
		AppointmentDate: d.AppointmentDate,
		VolumeMl:        d.VolumeMl,
		CreatedAt:       d.CreatedAt,
		LastUpdatedAt:   d.LastUpdatedAt,
	}
}

// ToDonationResponses converts a slice of donations.
func ToDonationResponses(donations []domain.CampaignDonation) []DonationResponse {
	out := make([]DonationResponse, len(donations))
	for i := range donations {
		out[i] = ToDonationResponse(&donations[i])
	}
	return out
}

// ListDonationsResponse is a paginated donation listing.
type ListDonationsResponse struct {
	Donations []DonationResponse `json:"donations"`
	NextToken *string            `json:"nextToken,omitempty"`
}

// DonationResultResponse defines the data returned for a donation result.
type DonationResultResponse struct {
	ResultID     string          `json:"resultID"`
	DonationID   string          `json:"donationID"`
	VolumeMl     decimal.Decimal `json:"volumeMl"`
	BloodType    *string         `json:"bloodType,omitempty"`
	Status       string          `json:"status"`
	RejectReason *string         `json:"rejectReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ToDonationResultResponse converts a domain.DonationResult to its response DTO.
func ToDonationResultResponse(r *domain.DonationResult) DonationResultResponse {
	resp := DonationResultResponse{
		ResultID:     r.ResultID,
		DonationID:   r.DonationID,
		VolumeMl:     r.VolumeMl,
		Status:       string(r.Status),
		RejectReason: r.RejectReason,
		CreatedAt:    r.CreatedAt,
	}
	if r.BloodType != nil {
		bt := r.BloodType.String()
		resp.BloodType = &bt
	}
	return resp
}

// DonationLogResponse defines the data returned for one transition log entry.
type DonationLogResponse struct {
	LogID      string    `json:"logID"`
	DonationID string    `json:"donationID"`
	ActorID    string    `json:"actorID"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ToDonationLogResponses converts log entries to response DTOs.
func ToDonationLogResponses(logs []domain.CampaignDonationLog) []DonationLogResponse {
	out := make([]DonationLogResponse, len(logs))
	for i, l := range logs {
		out[i] = DonationLogResponse{
			LogID:      l.LogID,
			DonationID: l.DonationID,
			ActorID:    l.ActorID,
			FromStatus: string(l.FromStatus),
			ToStatus:   string(l.ToStatus),
			Note:       l.Note,
			OccurredAt: l.OccurredAt,
		}
	}
	return out
}
