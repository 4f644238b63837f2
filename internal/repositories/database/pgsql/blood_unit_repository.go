package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	"github.com/redcross-vn/blood_bank_app/internal/models"
	"github.com/redcross-vn/blood_bank_app/internal/utils/pagination"
)

const bloodUnitColumns = `unit_id, donor_id, blood_group, rh_factor, component_type, total_volume_ml, remaining_volume_ml,
		is_separated, parent_unit_id, expiry_date, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxBloodUnitRepository struct {
	BaseRepository
}

func newPgxBloodUnitRepository(pool *pgxpool.Pool) portsrepo.BloodUnitRepositoryWithTx {
	return &PgxBloodUnitRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxBloodUnitRepository implements portsrepo.BloodUnitRepositoryWithTx
var _ portsrepo.BloodUnitRepositoryWithTx = (*PgxBloodUnitRepository)(nil)

// Helper to convert domain.BloodUnit to models.BloodUnit
func toModelBloodUnit(d domain.BloodUnit) models.BloodUnit {
	return models.BloodUnit{
		UnitID:            d.UnitID,
		DonorID:           d.DonorID,
		BloodGroup:        string(d.BloodType.Group),
		RhFactor:          string(d.BloodType.Rh),
		ComponentType:     string(d.ComponentType),
		TotalVolumeMl:     d.TotalVolumeMl,
		RemainingVolumeMl: d.RemainingVolumeMl,
		IsSeparated:       d.IsSeparated,
		ParentUnitID:      d.ParentUnitID,
		ExpiryDate:        d.ExpiryDate,
		Status:            string(d.Status),
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

// Helper to convert models.BloodUnit to domain.BloodUnit
func toDomainBloodUnit(m models.BloodUnit) domain.BloodUnit {
	return domain.BloodUnit{
		UnitID:            m.UnitID,
		DonorID:           m.DonorID,
		BloodType:         domain.BloodType{Group: domain.BloodGroup(m.BloodGroup), Rh: domain.RhFactor(m.RhFactor)},
		ComponentType:     domain.ComponentType(m.ComponentType),
		TotalVolumeMl:     m.TotalVolumeMl,
		RemainingVolumeMl: m.RemainingVolumeMl,
		IsSeparated:       m.IsSeparated,
		ParentUnitID:      m.ParentUnitID,
		ExpiryDate:        m.ExpiryDate,
		Status:            domain.BloodUnitStatus(m.Status),
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func scanBloodUnit(row pgx.Row) (*domain.BloodUnit, error) {
	var m models.BloodUnit
	err := row.Scan(
		&m.UnitID,
		&m.DonorID,
		&m.BloodGroup,
		&m.RhFactor,
		&m.ComponentType,
		&m.TotalVolumeMl,
		&m.RemainingVolumeMl,
		&m.IsSeparated,
		&m.ParentUnitID,
		&m.ExpiryDate,
		&m.Status,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	unit := toDomainBloodUnit(m)
	return &unit, nil
}

func (r *PgxBloodUnitRepository) FindUnitByID(ctx context.Context, unitID string) (*domain.BloodUnit, error) {
	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units WHERE unit_id = $1;`
	unit, err := scanBloodUnit(r.Pool.QueryRow(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: blood unit %s", apperrors.ErrNotFound, unitID)
		}
		return nil, fmt.Errorf("failed to find blood unit %s: %w", unitID, err)
	}
	return unit, nil
}

// FindUnitByIDForUpdate locks the unit row until the surrounding transaction
// ends, serializing concurrent volume mutations on the same unit.
func (r *PgxBloodUnitRepository) FindUnitByIDForUpdate(ctx context.Context, tx pgx.Tx, unitID string) (*domain.BloodUnit, error) {
	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units WHERE unit_id = $1 FOR UPDATE;`
	unit, err := scanBloodUnit(tx.QueryRow(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: blood unit %s", apperrors.ErrNotFound, unitID)
		}
		return nil, fmt.Errorf("failed to lock blood unit %s: %w", unitID, err)
	}
	return unit, nil
}

func (r *PgxBloodUnitRepository) FindUnitsByDonor(ctx context.Context, donorID string) ([]domain.BloodUnit, error) {
	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units WHERE donor_id = $1 ORDER BY created_at DESC, unit_id DESC;`
	rows, err := r.Pool.Query(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units for donor %s: %w", donorID, err)
	}
	defer rows.Close()
	return collectBloodUnits(rows)
}

func collectBloodUnits(rows pgx.Rows) ([]domain.BloodUnit, error) {
	units := make([]domain.BloodUnit, 0)
	for rows.Next() {
		unit, err := scanBloodUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blood unit: %w", err)
		}
		units = append(units, *unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blood units: %w", err)
	}
	return units, nil
}

// FindDonorBloodType returns the blood type recorded on the donor's existing
// units, or nil if the donor has no units yet.
func (r *PgxBloodUnitRepository) FindDonorBloodType(ctx context.Context, donorID string) (*domain.BloodType, error) {
	query := `SELECT blood_group, rh_factor FROM blood_units WHERE donor_id = $1 ORDER BY created_at ASC LIMIT 1;`
	var group, rh string
	err := r.Pool.QueryRow(ctx, query, donorID).Scan(&group, &rh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blood type for donor %s: %w", donorID, err)
	}
	return &domain.BloodType{Group: domain.BloodGroup(group), Rh: domain.RhFactor(rh)}, nil
}

// ListUnits retrieves a filtered page of blood units using token-based
// pagination ordered by (created_at DESC, unit_id DESC).
func (r *PgxBloodUnitRepository) ListUnits(ctx context.Context, filter portsrepo.ListUnitsFilter, limit int, nextToken *string) ([]domain.BloodUnit, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to determine whether there is a next page.
	fetchLimit := limit + 1

	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(filter.BloodTypes) > 0 {
		pairs := make([]string, 0, len(filter.BloodTypes))
		for _, bt := range filter.BloodTypes {
			pairs = append(pairs, "("+arg(string(bt.Group))+", "+arg(string(bt.Rh))+")")
		}
		conditions = append(conditions, "(blood_group, rh_factor) IN ("+strings.Join(pairs, ", ")+")")
	}
	if filter.ComponentType != nil {
		conditions = append(conditions, "component_type = "+arg(string(*filter.ComponentType)))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if filter.ExcludeExpired {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		conditions = append(conditions, "expiry_date > "+arg(now))
	}
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		conditions = append(conditions, "(created_at, unit_id) < ("+arg(lastCreatedAt)+", "+arg(lastID)+")")
	}

	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, unit_id DESC LIMIT " + arg(fetchLimit) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query blood units: %w", err)
	}
	defer rows.Close()

	units, err := collectBloodUnits(rows)
	if err != nil {
		return nil, nil, err
	}

	var token *string
	if len(units) > limit {
		units = units[:limit]
		last := units[len(units)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.UnitID)
		token = &t
	}
	return units, token, nil
}

func (r *PgxBloodUnitRepository) SaveUnit(ctx context.Context, unit domain.BloodUnit) error {
	m := toModelBloodUnit(unit)
	query := `
		INSERT INTO blood_units (` + bloodUnitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query, bloodUnitArgs(m)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: blood unit %s", apperrors.ErrDuplicate, unit.UnitID)
		}
		return fmt.Errorf("failed to save blood unit %s: %w", unit.UnitID, err)
	}
	return nil
}

func bloodUnitArgs(m models.BloodUnit) []interface{} {
	return []interface{}{
		m.UnitID,
		m.DonorID,
		m.BloodGroup,
		m.RhFactor,
		m.ComponentType,
		m.TotalVolumeMl,
		m.RemainingVolumeMl,
		m.IsSeparated,
		m.ParentUnitID,
		m.ExpiryDate,
		m.Status,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	}
}

// SaveUnitsInTx inserts multiple units in one batch within a transaction.
func (r *PgxBloodUnitRepository) SaveUnitsInTx(ctx context.Context, tx pgx.Tx, units []domain.BloodUnit) error {
	if len(units) == 0 {
		return nil
	}
	query := `
		INSERT INTO blood_units (` + bloodUnitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	batch := &pgx.Batch{}
	for _, unit := range units {
		batch.Queue(query, bloodUnitArgs(toModelBloodUnit(unit))...)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range units {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: blood unit", apperrors.ErrDuplicate)
			}
			return fmt.Errorf("failed to batch-insert blood units: %w", err)
		}
	}
	return nil
}

const updateBloodUnitQuery = `
	UPDATE blood_units
	SET remaining_volume_ml = $2, is_separated = $3, status = $4, expiry_date = $5,
	    last_updated_at = $6, last_updated_by = $7
	WHERE unit_id = $1;
`

func (r *PgxBloodUnitRepository) UpdateUnit(ctx context.Context, unit domain.BloodUnit) error {
	m := toModelBloodUnit(unit)
	cmdTag, err := r.Pool.Exec(ctx, updateBloodUnitQuery,
		m.UnitID, m.RemainingVolumeMl, m.IsSeparated, m.Status, m.ExpiryDate, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update blood unit %s: %w", unit.UnitID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: blood unit %s", apperrors.ErrNotFound, unit.UnitID)
	}
	return nil
}

func (r *PgxBloodUnitRepository) UpdateUnitInTx(ctx context.Context, tx pgx.Tx, unit domain.BloodUnit) error {
	m := toModelBloodUnit(unit)
	cmdTag, err := tx.Exec(ctx, updateBloodUnitQuery,
		m.UnitID, m.RemainingVolumeMl, m.IsSeparated, m.Status, m.ExpiryDate, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update blood unit %s: %w", unit.UnitID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: blood unit %s", apperrors.ErrNotFound, unit.UnitID)
	}
	return nil
}

// ExpireUnits marks past-expiry AVAILABLE and RESERVED units as EXPIRED and
// returns the transitioned units. The locked subselect carries each unit's
// pre-sweep status through RETURNING so the audit trail records it.
func (r *PgxBloodUnitRepository) ExpireUnits(ctx context.Context, now time.Time, actorID string) ([]portsrepo.ExpiredUnit, error) {
	query := `
		UPDATE blood_units b
		SET status = 'EXPIRED', last_updated_at = $1, last_updated_by = $2
		FROM (
			SELECT unit_id, status AS previous_status
			FROM blood_units
			WHERE status IN ('AVAILABLE', 'RESERVED') AND expiry_date <= $1
			FOR UPDATE
		) prev
		WHERE b.unit_id = prev.unit_id
		RETURNING b.unit_id, b.donor_id, b.blood_group, b.rh_factor, b.component_type, b.total_volume_ml,
			b.remaining_volume_ml, b.is_separated, b.parent_unit_id, b.expiry_date, b.status,
			b.created_at, b.created_by, b.last_updated_at, b.last_updated_by, prev.previous_status;
	`
	rows, err := r.Pool.Query(ctx, query, now, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to expire blood units: %w", err)
	}
	defer rows.Close()

	expired := make([]portsrepo.ExpiredUnit, 0)
	for rows.Next() {
		var m models.BloodUnit
		var previousStatus string
		err := rows.Scan(
			&m.UnitID,
			&m.DonorID,
			&m.BloodGroup,
			&m.RhFactor,
			&m.ComponentType,
			&m.TotalVolumeMl,
			&m.RemainingVolumeMl,
			&m.IsSeparated,
			&m.ParentUnitID,
			&m.ExpiryDate,
			&m.Status,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
			&previousStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired blood unit: %w", err)
		}
		expired = append(expired, portsrepo.ExpiredUnit{
			Unit:           toDomainBloodUnit(m),
			PreviousStatus: domain.BloodUnitStatus(previousStatus),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired blood units: %w", err)
	}
	return expired, nil
}

const insertActionQuery = `
	INSERT INTO blood_unit_actions (action_id, unit_id, actor_id, kind, previous_value, new_value, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

func (r *PgxBloodUnitRepository) SaveAction(ctx context.Context, action domain.BloodUnitAction) error {
	_, err := r.Pool.Exec(ctx, insertActionQuery,
		action.ActionID, action.UnitID, action.ActorID, string(action.Kind),
		action.PreviousValue, action.NewValue, action.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save blood unit action: %w", err)
	}
	return nil
}

func (r *PgxBloodUnitRepository) SaveActionInTx(ctx context.Context, tx pgx.Tx, action domain.BloodUnitAction) error {
	_, err := tx.Exec(ctx, insertActionQuery,
		action.ActionID, action.UnitID, action.ActorID, string(action.Kind),
		action.PreviousValue, action.NewValue, action.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save blood unit action: %w", err)
	}
	return nil
}

func (r *PgxBloodUnitRepository) ListActionsByUnit(ctx context.Context, unitID string) ([]domain.BloodUnitAction, error) {
	query := `
		SELECT action_id, unit_id, actor_id, kind, previous_value, new_value, occurred_at
		FROM blood_unit_actions
		WHERE unit_id = $1
		ORDER BY occurred_at ASC, action_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions for unit %s: %w", unitID, err)
	}
	defer rows.Close()

	actions := make([]domain.BloodUnitAction, 0)
	for rows.Next() {
		var m models.BloodUnitAction
		if err := rows.Scan(&m.ActionID, &m.UnitID, &m.ActorID, &m.Kind, &m.PreviousValue, &m.NewValue, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan blood unit action: %w", err)
		}
		actions = append(actions, domain.BloodUnitAction{
			ActionID:      m.ActionID,
			UnitID:        m.UnitID,
			ActorID:       m.ActorID,
			Kind:          domain.BloodUnitActionKind(m.Kind),
			PreviousValue: m.PreviousValue,
			NewValue:      m.NewValue,
			OccurredAt:    m.OccurredAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blood unit actions: %w", err)
	}
	return actions, nil
}
