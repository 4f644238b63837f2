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
	"github.com/redcross-vn/blood_bank_app/internal/utils/pagination"
)

const donationColumns = `donation_id, donor_id, campaign_id, status, appointment_date, volume_ml,
		created_at, created_by, last_updated_at, last_updated_by`

type PgxDonationRepository struct {
	BaseRepository
}

func newPgxDonationRepository(pool *pgxpool.Pool) portsrepo.DonationRepositoryWithTx {
	return &PgxDonationRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxDonationRepository implements portsrepo.DonationRepositoryWithTx
var _ portsrepo.DonationRepositoryWithTx = (*PgxDonationRepository)(nil)

// Helper to convert models.CampaignDonation to domain.CampaignDonation
func toDomainDonation(m models.CampaignDonation) domain.CampaignDonation {
	return domain.CampaignDonation{
		DonationID:      m.DonationID,
		DonorID:         m.DonorID,
		CampaignID:      m.CampaignID,
		Status:          domain.DonationStatus(m.Status),
		AppointmentDate: m.AppointmentDate,
		VolumeMl:        m.VolumeMl,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func scanDonation(row pgx.Row) (*domain.CampaignDonation, error) {
	var m models.CampaignDonation
	err := row.Scan(
		&m.DonationID,
		&m.DonorID,
		&m.CampaignID,
		&m.Status,
		&m.AppointmentDate,
		&m.VolumeMl,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	donation := toDomainDonation(m)
	return &donation, nil
}

const insertDonationQuery = `
	INSERT INTO campaign_donations (` + donationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`

func donationArgs(donation domain.CampaignDonation) []interface{} {
	return []interface{}{
		donation.DonationID,
		donation.DonorID,
		donation.CampaignID,
		string(donation.Status),
		donation.AppointmentDate,
		donation.VolumeMl,
		donation.CreatedAt,
		donation.CreatedBy,
		donation.LastUpdatedAt,
		donation.LastUpdatedBy,
	}
}

func (r *PgxDonationRepository) SaveDonation(ctx context.Context, donation domain.CampaignDonation) error {
	_, err := r.Pool.Exec(ctx, insertDonationQuery, donationArgs(donation)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: donation %s", apperrors.ErrDuplicate, donation.DonationID)
		}
		return fmt.Errorf("failed to save donation %s: %w", donation.DonationID, err)
	}
	return nil
}

func (r *PgxDonationRepository) SaveDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error {
	_, err := tx.Exec(ctx, insertDonationQuery, donationArgs(donation)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: donation %s", apperrors.ErrDuplicate, donation.DonationID)
		}
		return fmt.Errorf("failed to save donation %s: %w", donation.DonationID, err)
	}
	return nil
}

func (r *PgxDonationRepository) FindDonationByID(ctx context.Context, donationID string) (*domain.CampaignDonation, error) {
	query := `SELECT ` + donationColumns + ` FROM campaign_donations WHERE donation_id = $1;`
	donation, err := scanDonation(r.Pool.QueryRow(ctx, query, donationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: donation %s", apperrors.ErrNotFound, donationID)
		}
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	return donation, nil
}

// FindDonationByIDForUpdate locks the donation row until the surrounding
// transaction ends, so concurrent transitions of one donation serialize.
func (r *PgxDonationRepository) FindDonationByIDForUpdate(ctx context.Context, tx pgx.Tx, donationID string) (*domain.CampaignDonation, error) {
	query := `SELECT ` + donationColumns + ` FROM campaign_donations WHERE donation_id = $1 FOR UPDATE;`
	donation, err := scanDonation(tx.QueryRow(ctx, query, donationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: donation %s", apperrors.ErrNotFound, donationID)
		}
		return nil, fmt.Errorf("failed to lock donation %s: %w", donationID, err)
	}
	return donation, nil
}

func (r *PgxDonationRepository) UpdateDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error {
	query := `
		UPDATE campaign_donations
		SET status = $2, appointment_date = $3, volume_ml = $4, last_updated_at = $5, last_updated_by = $6
		WHERE donation_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query,
		donation.DonationID,
		string(donation.Status),
		donation.AppointmentDate,
		donation.VolumeMl,
		donation.LastUpdatedAt,
		donation.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update donation %s: %w", donation.DonationID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: donation %s", apperrors.ErrNotFound, donation.DonationID)
	}
	return nil
}

// ListDonationsByCampaign retrieves a page of donations for a campaign using
// token-based pagination ordered by (created_at DESC, donation_id DESC).
func (r *PgxDonationRepository) ListDonationsByCampaign(ctx context.Context, campaignID string, limit int, nextToken *string) ([]domain.CampaignDonation, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + donationColumns + ` FROM campaign_donations WHERE campaign_id = $1`
	orderByClause := `ORDER BY created_at DESC, donation_id DESC`

	var rows pgx.Rows
	var err error
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeCursor(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query := baseQuery + ` AND (created_at, donation_id) < ($2, $3) ` + orderByClause + ` LIMIT $4;`
		rows, err = r.Pool.Query(ctx, query, campaignID, lastCreatedAt, lastID, fetchLimit)
	} else {
		query := baseQuery + ` ` + orderByClause + ` LIMIT $2;`
		rows, err = r.Pool.Query(ctx, query, campaignID, fetchLimit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query donations for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	donations := make([]domain.CampaignDonation, 0, fetchLimit)
	for rows.Next() {
		donation, scanErr := scanDonation(rows)
		if scanErr != nil {
			return nil, nil, fmt.Errorf("failed to scan donation: %w", scanErr)
		}
		donations = append(donations, *donation)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating donations: %w", err)
	}

	var token *string
	if len(donations) > limit {
		donations = donations[:limit]
		last := donations[len(donations)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.DonationID)
		token = &t
	}
	return donations, token, nil
}

func (r *PgxDonationRepository) ListDonationsByDonor(ctx context.Context, donorID string) ([]domain.CampaignDonation, error) {
	query := `SELECT ` + donationColumns + ` FROM campaign_donations WHERE donor_id = $1 ORDER BY created_at DESC, donation_id DESC;`
	rows, err := r.Pool.Query(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations for donor %s: %w", donorID, err)
	}
	defer rows.Close()

	donations := make([]domain.CampaignDonation, 0)
	for rows.Next() {
		donation, scanErr := scanDonation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", scanErr)
		}
		donations = append(donations, *donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}
	return donations, nil
}

const donationResultColumns = `result_id, donation_id, volume_ml, blood_group, rh_factor, status, reject_reason,
		created_at, created_by, last_updated_at, last_updated_by`

func toDomainDonationResult(m models.DonationResult) domain.DonationResult {
	result := domain.DonationResult{
		ResultID:     m.ResultID,
		DonationID:   m.DonationID,
		VolumeMl:     m.VolumeMl,
		Status:       domain.DonationResultStatus(m.Status),
		RejectReason: m.RejectReason,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
	if m.BloodGroup != nil && m.RhFactor != nil {
		result.BloodType = &domain.BloodType{Group: domain.BloodGroup(*m.BloodGroup), Rh: domain.RhFactor(*m.RhFactor)}
	}
	return result
}

func scanDonationResult(row pgx.Row) (*domain.DonationResult, error) {
	var m models.DonationResult
	err := row.Scan(
		&m.ResultID,
		&m.DonationID,
		&m.VolumeMl,
		&m.BloodGroup,
		&m.RhFactor,
		&m.Status,
		&m.RejectReason,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	result := toDomainDonationResult(m)
	return &result, nil
}

func (r *PgxDonationRepository) FindResultByDonationID(ctx context.Context, donationID string) (*domain.DonationResult, error) {
	query := `SELECT ` + donationResultColumns + ` FROM donation_results WHERE donation_id = $1;`
	result, err := scanDonationResult(r.Pool.QueryRow(ctx, query, donationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: result for donation %s", apperrors.ErrNotFound, donationID)
		}
		return nil, fmt.Errorf("failed to find result for donation %s: %w", donationID, err)
	}
	return result, nil
}

func (r *PgxDonationRepository) FindResultByDonationIDInTx(ctx context.Context, tx pgx.Tx, donationID string) (*domain.DonationResult, error) {
	query := `SELECT ` + donationResultColumns + ` FROM donation_results WHERE donation_id = $1;`
	result, err := scanDonationResult(tx.QueryRow(ctx, query, donationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: result for donation %s", apperrors.ErrNotFound, donationID)
		}
		return nil, fmt.Errorf("failed to find result for donation %s: %w", donationID, err)
	}
	return result, nil
}

func (r *PgxDonationRepository) SaveResultInTx(ctx context.Context, tx pgx.Tx, result domain.DonationResult) error {
	var bloodGroup, rhFactor *string
	if result.BloodType != nil {
		g, rh := string(result.BloodType.Group), string(result.BloodType.Rh)
		bloodGroup, rhFactor = &g, &rh
	}
	query := `
		INSERT INTO donation_results (` + donationResultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := tx.Exec(ctx, query,
		result.ResultID,
		result.DonationID,
		result.VolumeMl,
		bloodGroup,
		rhFactor,
		string(result.Status),
		result.RejectReason,
		result.CreatedAt,
		result.CreatedBy,
		result.LastUpdatedAt,
		result.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: result for donation %s", apperrors.ErrDuplicate, result.DonationID)
		}
		return fmt.Errorf("failed to save result for donation %s: %w", result.DonationID, err)
	}
	return nil
}

const insertDonationLogQuery = `
	INSERT INTO campaign_donation_logs (log_id, donation_id, actor_id, from_status, to_status, note, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

func (r *PgxDonationRepository) SaveLog(ctx context.Context, log domain.CampaignDonationLog) error {
	_, err := r.Pool.Exec(ctx, insertDonationLogQuery,
		log.LogID, log.DonationID, log.ActorID, string(log.FromStatus), string(log.ToStatus), log.Note, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save donation log: %w", err)
	}
	return nil
}

func (r *PgxDonationRepository) SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.CampaignDonationLog) error {
	_, err := tx.Exec(ctx, insertDonationLogQuery,
		log.LogID, log.DonationID, log.ActorID, string(log.FromStatus), string(log.ToStatus), log.Note, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save donation log: %w", err)
	}
	return nil
}

func (r *PgxDonationRepository) ListLogsByDonation(ctx context.Context, donationID string) ([]domain.CampaignDonationLog, error) {
	query := `
		SELECT log_id, donation_id, actor_id, from_status, to_status, note, occurred_at
		FROM campaign_donation_logs
		WHERE donation_id = $1
		ORDER BY occurred_at ASC, log_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for donation %s: %w", donationID, err)
	}
	defer rows.Close()

	logs := make([]domain.CampaignDonationLog, 0)
	for rows.Next() {
		var m models.CampaignDonationLog
		if err := rows.Scan(&m.LogID, &m.DonationID, &m.ActorID, &m.FromStatus, &m.ToStatus, &m.Note, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation log: %w", err)
		}
		logs = append(logs, domain.CampaignDonationLog{
			LogID:      m.LogID,
			DonationID: m.DonationID,
			ActorID:    m.ActorID,
			FromStatus: domain.DonationStatus(m.FromStatus),
			ToStatus:   domain.DonationStatus(m.ToStatus),
			Note:       m.Note,
			OccurredAt: m.OccurredAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donation logs: %w", err)
	}
	return logs, nil
}
