package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	"github.com/redcross-vn/blood_bank_app/internal/models"
	"github.com/redcross-vn/blood_bank_app/internal/utils/pagination"
)

const emergencyColumns = `request_id, requester_id, blood_group, rh_factor, component_type, required_volume_ml,
		used_volume_ml, assigned_unit_id, status, rejection_reason, suggested_donors, start_date, end_date,
		created_at, created_by, last_updated_at, last_updated_by`

type PgxEmergencyRepository struct {
	BaseRepository
}

func newPgxEmergencyRepository(pool *pgxpool.Pool) portsrepo.EmergencyRepositoryWithTx {
	return &PgxEmergencyRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxEmergencyRepository implements portsrepo.EmergencyRepositoryWithTx
var _ portsrepo.EmergencyRepositoryWithTx = (*PgxEmergencyRepository)(nil)

// Helper to convert models.EmergencyRequest to domain.EmergencyRequest
func toDomainEmergencyRequest(m models.EmergencyRequest) domain.EmergencyRequest {
	request := domain.EmergencyRequest{
		RequestID:        m.RequestID,
		RequesterID:      m.RequesterID,
		BloodType:        domain.BloodType{Group: domain.BloodGroup(m.BloodGroup), Rh: domain.RhFactor(m.RhFactor)},
		RequiredVolumeMl: m.RequiredVolumeMl,
		UsedVolumeMl:     m.UsedVolumeMl,
		AssignedUnitID:   m.AssignedUnitID,
		Status:           domain.EmergencyStatus(m.Status),
		RejectionReason:  m.RejectionReason,
		SuggestedDonors:  m.SuggestedDonors,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
	if m.ComponentType != nil {
		ct := domain.ComponentType(*m.ComponentType)
		request.ComponentType = &ct
	}
	return request
}

func scanEmergencyRequest(row pgx.Row) (*domain.EmergencyRequest, error) {
	var m models.EmergencyRequest
	err := row.Scan(
		&m.RequestID,
		&m.RequesterID,
		&m.BloodGroup,
		&m.RhFactor,
		&m.ComponentType,
		&m.RequiredVolumeMl,
		&m.UsedVolumeMl,
		&m.AssignedUnitID,
		&m.Status,
		&m.RejectionReason,
		&m.SuggestedDonors,
		&m.StartDate,
		&m.EndDate,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	request := toDomainEmergencyRequest(m)
	return &request, nil
}

func emergencyComponentColumn(request domain.EmergencyRequest) *string {
	if request.ComponentType == nil {
		return nil
	}
	ct := string(*request.ComponentType)
	return &ct
}

const insertEmergencyQuery = `
	INSERT INTO emergency_requests (` + emergencyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
`

func emergencyArgs(request domain.EmergencyRequest) []interface{} {
	return []interface{}{
		request.RequestID,
		request.RequesterID,
		string(request.BloodType.Group),
		string(request.BloodType.Rh),
		emergencyComponentColumn(request),
		request.RequiredVolumeMl,
		request.UsedVolumeMl,
		request.AssignedUnitID,
		string(request.Status),
		request.RejectionReason,
		request.SuggestedDonors,
		request.StartDate,
		request.EndDate,
		request.CreatedAt,
		request.CreatedBy,
		request.LastUpdatedAt,
		request.LastUpdatedBy,
	}
}

func (r *PgxEmergencyRepository) SaveRequest(ctx context.Context, request domain.EmergencyRequest) error {
	_, err := r.Pool.Exec(ctx, insertEmergencyQuery, emergencyArgs(request)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: emergency request %s", apperrors.ErrDuplicate, request.RequestID)
		}
		return fmt.Errorf("failed to save emergency request %s: %w", request.RequestID, err)
	}
	return nil
}

func (r *PgxEmergencyRepository) SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error {
	_, err := tx.Exec(ctx, insertEmergencyQuery, emergencyArgs(request)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: emergency request %s", apperrors.ErrDuplicate, request.RequestID)
		}
		return fmt.Errorf("failed to save emergency request %s: %w", request.RequestID, err)
	}
	return nil
}

func (r *PgxEmergencyRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.EmergencyRequest, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergency_requests WHERE request_id = $1;`
	request, err := scanEmergencyRequest(r.Pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: emergency request %s", apperrors.ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to find emergency request %s: %w", requestID, err)
	}
	return request, nil
}

// FindRequestByIDForUpdate locks the request row until the surrounding
// transaction ends. Two concurrent approvals of the same request serialize
// here, and the loser sees a non-PENDING status.
func (r *PgxEmergencyRepository) FindRequestByIDForUpdate(ctx context.Context, tx pgx.Tx, requestID string) (*domain.EmergencyRequest, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergency_requests WHERE request_id = $1 FOR UPDATE;`
	request, err := scanEmergencyRequest(tx.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: emergency request %s", apperrors.ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to lock emergency request %s: %w", requestID, err)
	}
	return request, nil
}

const updateEmergencyQuery = `
	UPDATE emergency_requests
	SET used_volume_ml = $2, assigned_unit_id = $3, status = $4, rejection_reason = $5, suggested_donors = $6,
	    last_updated_at = $7, last_updated_by = $8
	WHERE request_id = $1;
`

func emergencyUpdateArgs(request domain.EmergencyRequest) []interface{} {
	return []interface{}{
		request.RequestID,
		request.UsedVolumeMl,
		request.AssignedUnitID,
		string(request.Status),
		request.RejectionReason,
		request.SuggestedDonors,
		request.LastUpdatedAt,
		request.LastUpdatedBy,
	}
}

func (r *PgxEmergencyRepository) UpdateRequest(ctx context.Context, request domain.EmergencyRequest) error {
	cmdTag, err := r.Pool.Exec(ctx, updateEmergencyQuery, emergencyUpdateArgs(request)...)
	if err != nil {
		return fmt.Errorf("failed to update emergency request %s: %w", request.RequestID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: emergency request %s", apperrors.ErrNotFound, request.RequestID)
	}
	return nil
}

func (r *PgxEmergencyRepository) UpdateRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error {
	cmdTag, err := tx.Exec(ctx, updateEmergencyQuery, emergencyUpdateArgs(request)...)
	if err != nil {
		return fmt.Errorf("failed to update emergency request %s: %w", request.RequestID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: emergency request %s", apperrors.ErrNotFound, request.RequestID)
	}
	return nil
}

// ListRequests retrieves a filtered page of requests using token-based
// pagination ordered by (created_at DESC, request_id DESC).
func (r *PgxEmergencyRepository) ListRequests(ctx context.Context, filter portsrepo.ListRequestsFilter, limit int, nextToken *string) ([]domain.EmergencyRequest, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if filter.RequesterID != nil {
		conditions = append(conditions, "requester_id = "+arg(*filter.RequesterID))
	}
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		conditions = append(conditions, "(created_at, request_id) < ("+arg(lastCreatedAt)+", "+arg(lastID)+")")
	}

	query := `SELECT ` + emergencyColumns + ` FROM emergency_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, request_id DESC LIMIT " + arg(fetchLimit) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query emergency requests: %w", err)
	}
	defer rows.Close()

	requests, err := collectEmergencyRequests(rows)
	if err != nil {
		return nil, nil, err
	}

	var token *string
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.RequestID)
		token = &t
	}
	return requests, token, nil
}

func collectEmergencyRequests(rows pgx.Rows) ([]domain.EmergencyRequest, error) {
	requests := make([]domain.EmergencyRequest, 0)
	for rows.Next() {
		request, err := scanEmergencyRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency request: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emergency requests: %w", err)
	}
	return requests, nil
}

// FindPendingByBloodType retrieves PENDING requests for one blood type and
// component whose requester has the given role. A nil component column on the
// row means whole blood.
func (r *PgxEmergencyRepository) FindPendingByBloodType(ctx context.Context, bloodType domain.BloodType, component domain.ComponentType, requesterRole domain.UserRole) ([]domain.EmergencyRequest, error) {
	query := `
		SELECT ` + prefixColumns(emergencyColumns, "er.") + `
		FROM emergency_requests er
		JOIN users u ON er.requester_id = u.user_id
		WHERE er.status = 'PENDING'
		  AND er.blood_group = $1 AND er.rh_factor = $2
		  AND COALESCE(er.component_type, 'WHOLE_BLOOD') = $3
		  AND u.role = $4
		ORDER BY er.created_at ASC;
	`
	rows, err := r.Pool.Query(ctx, query,
		string(bloodType.Group), string(bloodType.Rh), string(component), string(requesterRole))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests for %s: %w", bloodType.String(), err)
	}
	defer rows.Close()
	return collectEmergencyRequests(rows)
}

// prefixColumns prepends a table alias to every column in a comma-separated list.
func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

const insertEmergencyLogQuery = `
	INSERT INTO emergency_request_logs (log_id, request_id, actor_id, from_status, to_status, note, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

func (r *PgxEmergencyRepository) SaveLog(ctx context.Context, log domain.EmergencyRequestLog) error {
	_, err := r.Pool.Exec(ctx, insertEmergencyLogQuery,
		log.LogID, log.RequestID, log.ActorID, string(log.FromStatus), string(log.ToStatus), log.Note, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save emergency request log: %w", err)
	}
	return nil
}

func (r *PgxEmergencyRepository) SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.EmergencyRequestLog) error {
	_, err := tx.Exec(ctx, insertEmergencyLogQuery,
		log.LogID, log.RequestID, log.ActorID, string(log.FromStatus), string(log.ToStatus), log.Note, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save emergency request log: %w", err)
	}
	return nil
}

func (r *PgxEmergencyRepository) ListLogsByRequest(ctx context.Context, requestID string) ([]domain.EmergencyRequestLog, error) {
	query := `
		SELECT log_id, request_id, actor_id, from_status, to_status, note, occurred_at
		FROM emergency_request_logs
		WHERE request_id = $1
		ORDER BY occurred_at ASC, log_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for request %s: %w", requestID, err)
	}
	defer rows.Close()

	logs := make([]domain.EmergencyRequestLog, 0)
	for rows.Next() {
		var m models.EmergencyRequestLog
		if err := rows.Scan(&m.LogID, &m.RequestID, &m.ActorID, &m.FromStatus, &m.ToStatus, &m.Note, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan emergency request log: %w", err)
		}
		logs = append(logs, domain.EmergencyRequestLog{
			LogID:      m.LogID,
			RequestID:  m.RequestID,
			ActorID:    m.ActorID,
			FromStatus: domain.EmergencyStatus(m.FromStatus),
			ToStatus:   domain.EmergencyStatus(m.ToStatus),
			Note:       m.Note,
			OccurredAt: m.OccurredAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emergency request logs: %w", err)
	}
	return logs, nil
}
