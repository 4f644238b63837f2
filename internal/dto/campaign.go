package dto

import (
	"time"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// CreateCampaignRequest defines the data needed to create a donation campaign.
type CreateCampaignRequest struct {
	Name           string     `json:"name" binding:"required"`
	Location       string     `json:"location"`
	CollectionDate *time.Time `json:"collectionDate,omitempty"`
}

// UpdateCampaignRequest defines the data allowed for updating a campaign.
type UpdateCampaignRequest struct {
	Name           *string    `json:"name"`
	Location       *string    `json:"location"`
	CollectionDate *time.Time `json:"collectionDate"`
	IsActive       *bool      `json:"isActive"`
}

// CampaignResponse defines the data returned for a campaign.
type CampaignResponse struct {
	CampaignID     string     `json:"campaignID"`
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	CollectionDate *time.Time `json:"collectionDate,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ToCampaignResponse converts a domain.Campaign to its response DTO.
func ToCampaignResponse(c *domain.Campaign) CampaignResponse {
	return CampaignResponse{
		CampaignID:     c.CampaignID,
		Name:           c.Name,
		Location:       c.Location,
		CollectionDate: c.CollectionDate,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
}

// ToCampaignResponses converts a slice of campaigns.
func ToCampaignResponses(campaigns []domain.Campaign) []CampaignResponse {
	out := make([]CampaignResponse, len(campaigns))
	for i := range campaigns {
		out[i] = ToCampaignResponse(&campaigns[i])
	}
	return out
}
