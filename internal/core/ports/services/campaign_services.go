package services

import (
	"context"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// CampaignReaderSvc defines read operations for campaign data
type CampaignReaderSvc interface {
	// GetCampaignByID retrieves a campaign by ID.
	GetCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error)

	// ListCampaigns retrieves a paginated list of active campaigns.
	ListCampaigns(ctx context.Context, limit, offset int) ([]domain.Campaign, error)
}

// CampaignWriterSvc defines write operations for campaign data
type CampaignWriterSvc interface {
	// CreateCampaign creates a new donation campaign.
	CreateCampaign(ctx context.Context, req dto.CreateCampaignRequest, actorID string) (*domain.Campaign, error)

	// UpdateCampaign updates an existing campaign's details.
	UpdateCampaign(ctx context.Context, campaignID string, req dto.UpdateCampaignRequest, actorID string) (*domain.Campaign, error)
}

// CampaignSvcFacade combines all campaign-related service interfaces
type CampaignSvcFacade interface {
	CampaignReaderSvc
	CampaignWriterSvc
}
