package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignDonation is the database shape of one donation row.
type CampaignDonation struct {
	DonationID      string          `db:"donation_id"`
	DonorID         string          `db:"donor_id"`
	CampaignID      string          `db:"campaign_id"`
	Status          string          `db:"status"`
	AppointmentDate *time.Time      `db:"appointment_date"` // Nullable
	VolumeMl        decimal.Decimal `db:"volume_ml"`
	AuditFields
}

// DonationResult is the database shape of one donation result row.
// donation_id carries a unique constraint so a donation has at most one result.
type DonationResult struct {
	ResultID     string          `db:"result_id"`
	DonationID   string          `db:"donation_id"`
	VolumeMl     decimal.Decimal `db:"volume_ml"`
	BloodGroup   *string         `db:"blood_group"` // Nullable
	RhFactor     *string         `db:"rh_factor"`   // Nullable
	Status       string          `db:"status"`
	RejectReason *string         `db:"reject_reason"` // Nullable
	AuditFields
}

// CampaignDonationLog is the database shape of one transition log row.
type CampaignDonationLog struct {
	LogID      string    `db:"log_id"`
	DonationID string    `db:"donation_id"`
	ActorID    string    `db:"actor_id"`
	FromStatus string    `db:"from_status"`
	ToStatus   string    `db:"to_status"`
	Note       string    `db:"note"`
	OccurredAt time.Time `db:"occurred_at"`
}
