package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	"github.com/redcross-vn/blood_bank_app/internal/models"
)

const campaignColumns = `campaign_id, name, location, collection_date, is_active,
		created_at, created_by, last_updated_at, last_updated_by`

type PgxCampaignRepository struct {
	BaseRepository
}

func newPgxCampaignRepository(pool *pgxpool.Pool) portsrepo.CampaignRepositoryFacade {
	return &PgxCampaignRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxCampaignRepository implements portsrepo.CampaignRepositoryFacade
var _ portsrepo.CampaignRepositoryFacade = (*PgxCampaignRepository)(nil)

func toDomainCampaign(m models.Campaign) domain.Campaign {
	return domain.Campaign{
		CampaignID:     m.CampaignID,
		Name:           m.Name,
		Location:       m.Location,
		CollectionDate: m.CollectionDate,
		IsActive:       m.IsActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var m models.Campaign
	err := row.Scan(
		&m.CampaignID,
		&m.Name,
		&m.Location,
		&m.CollectionDate,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	campaign := toDomainCampaign(m)
	return &campaign, nil
}

func (r *PgxCampaignRepository) SaveCampaign(ctx context.Context, campaign domain.Campaign) error {
	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.Pool.Exec(ctx, query,
		campaign.CampaignID,
		campaign.Name,
		campaign.Location,
		campaign.CollectionDate,
		campaign.IsActive,
		campaign.CreatedAt,
		campaign.CreatedBy,
		campaign.LastUpdatedAt,
		campaign.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: campaign %s", apperrors.ErrDuplicate, campaign.CampaignID)
		}
		return fmt.Errorf("failed to save campaign %s: %w", campaign.CampaignID, err)
	}
	return nil
}

func (r *PgxCampaignRepository) FindCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE campaign_id = $1;`
	campaign, err := scanCampaign(r.Pool.QueryRow(ctx, query, campaignID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, campaignID)
		}
		return nil, fmt.Errorf("failed to find campaign %s: %w", campaignID, err)
	}
	return campaign, nil
}

func (r *PgxCampaignRepository) ListCampaigns(ctx context.Context, limit int, offset int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]domain.Campaign, 0)
	for rows.Next() {
		campaign, scanErr := scanCampaign(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", scanErr)
		}
		campaigns = append(campaigns, *campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *PgxCampaignRepository) UpdateCampaign(ctx context.Context, campaign domain.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $2, location = $3, collection_date = $4, is_active = $5, last_updated_at = $6, last_updated_by = $7
		WHERE campaign_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		campaign.CampaignID,
		campaign.Name,
		campaign.Location,
		campaign.CollectionDate,
		campaign.IsActive,
		campaign.LastUpdatedAt,
		campaign.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign %s: %w", campaign.CampaignID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: campaign %s", apperrors.ErrNotFound, campaign.CampaignID)
	}
	return nil
}
