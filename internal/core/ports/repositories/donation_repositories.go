package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// DonationReader defines read operations for campaign donation data
type DonationReader interface {
	// FindDonationByID retrieves a specific donation by its unique identifier.
	FindDonationByID(ctx context.Context, donationID string) (*domain.CampaignDonation, error)

	// ListDonationsByCampaign retrieves a paginated list of donations for a
	// campaign using token-based pagination.
	ListDonationsByCampaign(ctx context.Context, campaignID string, limit int, nextToken *string) ([]domain.CampaignDonation, *string, error)

	// ListDonationsByDonor retrieves every donation of one donor, newest first.
	ListDonationsByDonor(ctx context.Context, donorID string) ([]domain.CampaignDonation, error)

	// FindResultByDonationID retrieves the 1:1 result of a donation, if any.
	FindResultByDonationID(ctx context.Context, donationID string) (*domain.DonationResult, error)

	// ListLogsByDonation retrieves the donation's transition log, oldest first.
	ListLogsByDonation(ctx context.Context, donationID string) ([]domain.CampaignDonationLog, error)
}

// DonationWriter defines write operations for campaign donation data
type DonationWriter interface {
	// SaveDonation persists a new campaign donation.
	SaveDonation(ctx context.Context, donation domain.CampaignDonation) error

	// SaveLog appends a transition log entry. Logs are never updated or deleted.
	SaveLog(ctx context.Context, log domain.CampaignDonationLog) error
}

// DonationTransactionSupport defines operations used inside a database
// transaction. Status transitions lock the donation row so the
// "already transitioned" check cannot be lost to a concurrent writer.
type DonationTransactionSupport interface {
	// FindDonationByIDForUpdate selects one donation and locks its row for update.
	FindDonationByIDForUpdate(ctx context.Context, tx pgx.Tx, donationID string) (*domain.CampaignDonation, error)

	// SaveDonationInTx persists a new donation within a transaction, so the
	// donation and its initial log entry commit together.
	SaveDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error

	// UpdateDonationInTx persists status/appointment changes within a transaction.
	UpdateDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error

	// FindResultByDonationIDInTx retrieves a donation's result within a transaction.
	FindResultByDonationIDInTx(ctx context.Context, tx pgx.Tx, donationID string) (*domain.DonationResult, error)

	// SaveResultInTx inserts a donation result within a transaction.
	SaveResultInTx(ctx context.Context, tx pgx.Tx, result domain.DonationResult) error

	// SaveLogInTx appends a transition log entry within a transaction.
	SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.CampaignDonationLog) error
}

// DonationRepositoryFacade combines all donation-related repository interfaces
type DonationRepositoryFacade interface {
	DonationReader
	DonationWriter
	DonationTransactionSupport
}

// DonationRepositoryWithTx extends DonationRepositoryFacade with transaction capabilities
type DonationRepositoryWithTx interface {
	DonationRepositoryFacade
	TransactionManager
}
