package domain

import "time"

// Campaign is a donation drive donors register against. When CollectionDate is
// set, appointment dates of its donations must fall on that calendar day.
type Campaign struct {
	CampaignID     string     `json:"campaignID"` // Primary Key (UUID)
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	CollectionDate *time.Time `json:"collectionDate,omitempty"`
	IsActive       bool       `json:"isActive"`
	AuditFields
}
