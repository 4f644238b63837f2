package services

import (
	"context"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// DonationReaderSvc defines read operations for campaign donations.
type DonationReaderSvc interface {
	// GetDonationByID retrieves a specific donation by its ID.
	GetDonationByID(ctx context.Context, donationID string) (*domain.CampaignDonation, error)

	// ListDonationsByCampaign retrieves a paginated donation list for a campaign.
	ListDonationsByCampaign(ctx context.Context, campaignID string, params dto.ListDonationsParams) (*dto.ListDonationsResponse, error)

	// ListDonationsByDonor retrieves every donation of one donor.
	ListDonationsByDonor(ctx context.Context, donorID string) ([]domain.CampaignDonation, error)

	// GetDonationResult retrieves the result of a completed donation.
	GetDonationResult(ctx context.Context, donationID string) (*domain.DonationResult, error)

	// ListDonationLogs retrieves the donation's transition log.
	ListDonationLogs(ctx context.Context, donationID string) ([]domain.CampaignDonationLog, error)
}

// DonationWriterSvc defines the donation state machine operations.
type DonationWriterSvc interface {
	// RequestDonation submits a donor's participation in a campaign (PENDING).
	RequestDonation(ctx context.Context, donorID string, req dto.CreateDonationRequest) (*domain.CampaignDonation, error)

	// UpdateStatus performs a staff-driven transition through the single
	// declarative transition table.
	UpdateStatus(ctx context.Context, donationID string, req dto.UpdateDonationStatusRequest, actorID string) (*domain.CampaignDonation, error)

	// CustomerCancel cancels the donor's own donation. Cancelling a confirmed
	// appointment requires at least 24 hours of lead time.
	CustomerCancel(ctx context.Context, donationID string, donorID string, note string) (*domain.CampaignDonation, error)

	// Complete transitions a donation to COMPLETED and idempotently creates
	// its DonationResult in the same transaction.
	Complete(ctx context.Context, donationID string, req dto.CompleteDonationRequest, actorID string) (*domain.DonationResult, error)

	// Reschedule validates and changes the appointment date. When the campaign
	// has a fixed collection date, the appointment must fall on that calendar day.
	Reschedule(ctx context.Context, donationID string, req dto.RescheduleDonationRequest, actorID string) (*domain.CampaignDonation, error)
}

// DonationSvcFacade combines all donation service interfaces.
type DonationSvcFacade interface {
	DonationReaderSvc
	DonationWriterSvc
}
