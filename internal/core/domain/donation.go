package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus is the state of one donor's participation in a campaign.
type DonationStatus string

const (
	DonationPending              DonationStatus = "PENDING"
	DonationAppointmentConfirmed DonationStatus = "APPOINTMENT_CONFIRMED"
	DonationCheckedIn            DonationStatus = "CUSTOMER_CHECKED_IN"
	DonationCompleted            DonationStatus = "COMPLETED"
	DonationResultReturned       DonationStatus = "RESULT_RETURNED"
	DonationAppointmentCancelled DonationStatus = "APPOINTMENT_CANCELLED"
	DonationAppointmentAbsent    DonationStatus = "APPOINTMENT_ABSENT"
	DonationCustomerCancelled    DonationStatus = "CUSTOMER_CANCELLED"
	DonationRejected             DonationStatus = "REJECTED"
)

// DonationTransitions is the single declarative transition table for the
// donation state machine. Statuses not present as keys are terminal.
var DonationTransitions = map[DonationStatus][]DonationStatus{
	DonationPending: {
		DonationRejected,
		DonationAppointmentConfirmed,
		DonationCustomerCancelled,
	},
	DonationAppointmentConfirmed: {
		DonationAppointmentCancelled,
		DonationAppointmentAbsent,
		DonationCompleted,
		DonationCustomerCancelled,
		DonationCheckedIn,
	},
	DonationCheckedIn: {
		DonationCompleted,
	},
	DonationCompleted: {
		DonationResultReturned,
	},
}

// CanTransitionDonation reports whether the donation state machine allows
// moving from one status to another. Re-setting the current status is not a
// valid transition.
func CanTransitionDonation(from, to DonationStatus) bool {
	for _, allowed := range DonationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalDonationStatus reports whether no transition leaves the status.
func IsTerminalDonationStatus(s DonationStatus) bool {
	return len(DonationTransitions[s]) == 0
}

// CampaignDonation is one donor's participation in one donation campaign.
type CampaignDonation struct {
	DonationID      string          `json:"donationID"` // Primary Key (UUID)
	DonorID         string          `json:"donorID"`    // FK -> users.user_id
	CampaignID      string          `json:"campaignID"` // FK -> campaigns.campaign_id
	Status          DonationStatus  `json:"status"`
	AppointmentDate *time.Time      `json:"appointmentDate,omitempty"`
	VolumeMl        decimal.Decimal `json:"volumeMl"`
	AuditFields
}

// DonationResultStatus is the outcome classification of a completed donation.
type DonationResultStatus string

const (
	ResultCompleted    DonationResultStatus = "COMPLETED"
	ResultNotQualified DonationResultStatus = "NOT_QUALIFIED"
)

// DonationResult is the 1:1 outcome record of a completed donation. It is
// created exactly once when the donation reaches COMPLETED and is immutable
// afterwards except by staff correction.
type DonationResult struct {
	ResultID     string               `json:"resultID"`   // Primary Key (UUID)
	DonationID   string               `json:"donationID"` // FK -> campaign_donations (unique)
	VolumeMl     decimal.Decimal      `json:"volumeMl"`
	BloodType    *BloodType           `json:"bloodType,omitempty"`
	Status       DonationResultStatus `json:"status"`
	RejectReason *string              `json:"rejectReason,omitempty"`
	AuditFields
}

// CampaignDonationLog is an append-only audit entry, one per status transition.
type CampaignDonationLog struct {
	LogID      string         `json:"logID"`      // Primary Key (UUID)
	DonationID string         `json:"donationID"` // FK -> campaign_donations
	ActorID    string         `json:"actorID"`    // Staff member or the donor themself
	FromStatus DonationStatus `json:"fromStatus"`
	ToStatus   DonationStatus `json:"toStatus"`
	Note       string         `json:"note"`
	OccurredAt time.Time      `json:"occurredAt"`
}
