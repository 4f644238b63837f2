package models

import "time"

// Campaign is the database shape of one campaign row.
type Campaign struct {
	CampaignID     string     `db:"campaign_id"`
	Name           string     `db:"name"`
	Location       string     `db:"location"`
	CollectionDate *time.Time `db:"collection_date"` // Nullable
	IsActive       bool       `db:"is_active"`
	AuditFields
}
