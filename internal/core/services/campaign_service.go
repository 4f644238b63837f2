package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
)

// campaignService manages donation campaigns.
type campaignService struct {
	campaignRepo portsrepo.CampaignRepositoryFacade
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(campaignRepo portsrepo.CampaignRepositoryFacade) portssvc.CampaignSvcFacade {
	return &campaignService{campaignRepo: campaignRepo}
}

// Ensure campaignService implements the portssvc.CampaignSvcFacade interface
var _ portssvc.CampaignSvcFacade = (*campaignService)(nil)

// CreateCampaign creates a new donation campaign.
func (s *campaignService) CreateCampaign(ctx context.Context, req dto.CreateCampaignRequest, actorID string) (*domain.Campaign, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	campaign := domain.Campaign{
		CampaignID:     uuid.NewString(),
		Name:           req.Name,
		Location:       req.Location,
		CollectionDate: req.CollectionDate,
		IsActive:       true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	if err := s.campaignRepo.SaveCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}
	logger.Info("campaign created",
		slog.String("campaign_id", campaign.CampaignID),
		slog.String("name", campaign.Name),
	)
	return &campaign, nil
}

// UpdateCampaign updates an existing campaign's details.
func (s *campaignService) UpdateCampaign(ctx context.Context, campaignID string, req dto.UpdateCampaignRequest, actorID string) (*domain.Campaign, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	campaign, err := s.campaignRepo.FindCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", campaignID, err)
	}
	if req.Name != nil {
		campaign.Name = *req.Name
	}
	if req.Location != nil {
		campaign.Location = *req.Location
	}
	if req.CollectionDate != nil {
		campaign.CollectionDate = req.CollectionDate
	}
	if req.IsActive != nil {
		campaign.IsActive = *req.IsActive
	}
	campaign.LastUpdatedAt = now
	campaign.LastUpdatedBy = actorID

	if err := s.campaignRepo.UpdateCampaign(ctx, *campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign %s: %w", campaignID, err)
	}
	logger.Info("campaign updated", slog.String("campaign_id", campaignID))
	return campaign, nil
}

// GetCampaignByID retrieves a campaign by ID.
func (s *campaignService) GetCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	campaign, err := s.campaignRepo.FindCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", campaignID, err)
	}
	return campaign, nil
}

// ListCampaigns retrieves a paginated list of active campaigns.
func (s *campaignService) ListCampaigns(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	campaigns, err := s.campaignRepo.ListCampaigns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}
