package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/compat"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
)

// requestValidityWindow is how long an emergency request stays open for a decision.
const requestValidityWindow = 24 * time.Hour

var (
	ErrRequestNotPending    = fmt.Errorf("%w: request is no longer pending", apperrors.ErrConflict)
	ErrIncompatibleUnit     = fmt.Errorf("%w: blood unit is not compatible with the request", apperrors.ErrValidation)
	ErrRequesterNotHospital = fmt.Errorf("%w: request was not made by a hospital", apperrors.ErrForbidden)
	ErrRequesterNotMember   = fmt.Errorf("%w: request was not made by an individual", apperrors.ErrForbidden)
)

// emergencyService drives the emergency allocation state machine. Hospital
// requests are settled against inventory; individual requests are answered
// with donor contacts.
type emergencyService struct {
	emergencyRepo portsrepo.EmergencyRepositoryWithTx
	unitRepo      portsrepo.BloodUnitRepositoryWithTx
	userRepo      portsrepo.UserRepositoryFacade
	notifier      portssvc.Notifier
}

// NewEmergencyService creates a new emergency allocation service.
func NewEmergencyService(emergencyRepo portsrepo.EmergencyRepositoryWithTx, unitRepo portsrepo.BloodUnitRepositoryWithTx, userRepo portsrepo.UserRepositoryFacade, notifier portssvc.Notifier) portssvc.EmergencySvcFacade {
	return &emergencyService{
		emergencyRepo: emergencyRepo,
		unitRepo:      unitRepo,
		userRepo:      userRepo,
		notifier:      notifier,
	}
}

// Ensure emergencyService implements the portssvc.EmergencySvcFacade interface
var _ portssvc.EmergencySvcFacade = (*emergencyService)(nil)

// CreateRequest submits an urgent blood request. The request's validity
// window closes one day after it opens.
func (s *emergencyService) CreateRequest(ctx context.Context, requesterID string, req dto.CreateEmergencyRequest) (*domain.EmergencyRequest, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	if !req.RequiredVolumeMl.IsPositive() {
		return nil, fmt.Errorf("%w: got %s ml", ErrInvalidVolume, req.RequiredVolumeMl.String())
	}
	requester, err := s.userRepo.FindUserByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requester %s: %w", requesterID, err)
	}
	if requester.Role != domain.RoleHospital && requester.Role != domain.RoleMember {
		return nil, fmt.Errorf("%w: role %s cannot open emergency requests", apperrors.ErrForbidden, requester.Role)
	}

	startDate := now
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	var component *domain.ComponentType
	if req.ComponentType != nil {
		ct := domain.ComponentType(*req.ComponentType)
		component = &ct
	}

	request := domain.EmergencyRequest{
		RequestID:        uuid.NewString(),
		RequesterID:      requesterID,
		BloodType:        req.BloodType(),
		ComponentType:    component,
		RequiredVolumeMl: req.RequiredVolumeMl,
		Status:           domain.EmergencyPending,
		StartDate:        startDate,
		EndDate:          startDate.Add(requestValidityWindow),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requesterID,
			LastUpdatedAt: now,
			LastUpdatedBy: requesterID,
		},
	}
	tx, err := s.emergencyRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.emergencyRepo.Rollback(ctx, tx)

	if err := s.emergencyRepo.SaveRequestInTx(ctx, tx, request); err != nil {
		return nil, fmt.Errorf("failed to save emergency request: %w", err)
	}
	log := domain.EmergencyRequestLog{
		LogID:      uuid.NewString(),
		RequestID:  request.RequestID,
		ActorID:    requesterID,
		ToStatus:   domain.EmergencyPending,
		Note:       fmt.Sprintf("requested %s ml of %s %s", req.RequiredVolumeMl.String(), request.BloodType.String(), request.Component()),
		OccurredAt: now,
	}
	if err := s.emergencyRepo.SaveLogInTx(ctx, tx, log); err != nil {
		return nil, fmt.Errorf("failed to save request log: %w", err)
	}
	if err := s.emergencyRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit emergency request: %w", err)
	}

	logger.Info("emergency request created",
		slog.String("request_id", request.RequestID),
		slog.String("requester_id", requesterID),
		slog.String("blood_type", request.BloodType.String()),
		slog.String("component", string(request.Component())),
	)
	return &request, nil
}

// lockPendingRequest locks a request row and verifies it is still PENDING.
func (s *emergencyService) lockPendingRequest(ctx context.Context, tx pgx.Tx, requestID string) (*domain.EmergencyRequest, error) {
	request, err := s.emergencyRepo.FindRequestByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock request %s: %w", requestID, err)
	}
	if request.Status != domain.EmergencyPending {
		return nil, fmt.Errorf("%w: request %s is %s", ErrRequestNotPending, requestID, request.Status)
	}
	return request, nil
}

// settleRequest persists a locked request's transition and writes its log
// entry inside the transaction.
func (s *emergencyService) settleRequest(ctx context.Context, tx pgx.Tx, request *domain.EmergencyRequest, to domain.EmergencyStatus, actorID, note string, now time.Time) error {
	request.Status = to
	request.LastUpdatedAt = now
	request.LastUpdatedBy = actorID
	if err := s.emergencyRepo.UpdateRequestInTx(ctx, tx, *request); err != nil {
		return fmt.Errorf("failed to update request %s: %w", request.RequestID, err)
	}
	log := domain.EmergencyRequestLog{
		LogID:      uuid.NewString(),
		RequestID:  request.RequestID,
		ActorID:    actorID,
		FromStatus: domain.EmergencyPending,
		ToStatus:   to,
		Note:       note,
		OccurredAt: now,
	}
	if err := s.emergencyRepo.SaveLogInTx(ctx, tx, log); err != nil {
		return fmt.Errorf("failed to save request log: %w", err)
	}
	return nil
}

// Approve allocates a blood unit to a pending hospital request. The request
// row and the unit row are both locked, and the request transition commits
// together with the unit's volume deduction. A second approval of the same
// request fails the pending check after the first one commits.
func (s *emergencyService) Approve(ctx context.Context, requestID string, req dto.ApproveEmergencyRequest, staffID string) (*domain.EmergencyRequest, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	if !req.UsedVolumeMl.IsPositive() {
		return nil, fmt.Errorf("%w: got %s ml", ErrInvalidVolume, req.UsedVolumeMl.String())
	}

	tx, err := s.emergencyRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.emergencyRepo.Rollback(ctx, tx)

	request, err := s.lockPendingRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	requester, err := s.userRepo.FindUserByID(ctx, request.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requester %s: %w", request.RequesterID, err)
	}
	if requester.Role != domain.RoleHospital {
		return nil, fmt.Errorf("%w: request %s", ErrRequesterNotHospital, requestID)
	}
	if req.UsedVolumeMl.GreaterThan(request.RequiredVolumeMl) {
		return nil, fmt.Errorf("%w: used %s ml exceeds required %s ml",
			apperrors.ErrVolumeExceeded, req.UsedVolumeMl.String(), request.RequiredVolumeMl.String())
	}

	unit, err := s.unitRepo.FindUnitByIDForUpdate(ctx, tx, req.BloodUnitID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock unit %s: %w", req.BloodUnitID, err)
	}
	if unit.Status != domain.UnitAvailable {
		return nil, fmt.Errorf("%w: unit %s is %s", apperrors.ErrConflict, unit.UnitID, unit.Status)
	}
	if unit.IsExpired(now) {
		return nil, fmt.Errorf("%w: unit %s expired %s", apperrors.ErrConflict, unit.UnitID, unit.ExpiryDate.Format(time.RFC3339))
	}
	if unit.ComponentType != request.Component() {
		return nil, fmt.Errorf("%w: unit %s holds %s, request needs %s",
			ErrIncompatibleUnit, unit.UnitID, unit.ComponentType, request.Component())
	}
	if !compat.CanDonate(unit.BloodType, request.BloodType, request.Component()) {
		return nil, fmt.Errorf("%w: unit %s is %s, recipient is %s",
			ErrIncompatibleUnit, unit.UnitID, unit.BloodType.String(), request.BloodType.String())
	}

	previousRemaining := unit.RemainingVolumeMl
	previousUnitStatus := unit.Status
	if err := deductLockedUnit(unit, req.UsedVolumeMl, staffID, now); err != nil {
		return nil, err
	}
	if err := s.unitRepo.UpdateUnitInTx(ctx, tx, *unit); err != nil {
		return nil, fmt.Errorf("failed to update unit %s: %w", unit.UnitID, err)
	}
	action := domain.BloodUnitAction{
		ActionID:      uuid.NewString(),
		UnitID:        unit.UnitID,
		ActorID:       staffID,
		Kind:          domain.ActionVolumeChange,
		PreviousValue: fmt.Sprintf("remaining %s ml", previousRemaining.String()),
		NewValue:      fmt.Sprintf("remaining %s ml (emergency request %s)", unit.RemainingVolumeMl.String(), requestID),
		OccurredAt:    now,
	}
	if err := s.unitRepo.SaveActionInTx(ctx, tx, action); err != nil {
		return nil, fmt.Errorf("failed to save unit audit record: %w", err)
	}

	request.UsedVolumeMl = req.UsedVolumeMl
	request.AssignedUnitID = &unit.UnitID
	note := fmt.Sprintf("allocated %s ml from unit %s (remaining %s -> %s ml)",
		req.UsedVolumeMl.String(), unit.UnitID, previousRemaining.String(), unit.RemainingVolumeMl.String())
	if err := s.settleRequest(ctx, tx, request, domain.EmergencyApproved, staffID, note, now); err != nil {
		return nil, err
	}
	if err := s.emergencyRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "emergency_request",
		EntityID:   request.RequestID,
		OldStatus:  string(domain.EmergencyPending),
		NewStatus:  string(domain.EmergencyApproved),
		ActorID:    staffID,
		OccurredAt: now,
	})
	if unit.Status != previousUnitStatus {
		s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
			Entity:     "blood_unit",
			EntityID:   unit.UnitID,
			OldStatus:  string(previousUnitStatus),
			NewStatus:  string(unit.Status),
			ActorID:    staffID,
			OccurredAt: now,
		})
	}
	logger.Info("emergency request approved",
		slog.String("request_id", request.RequestID),
		slog.String("unit_id", unit.UnitID),
		slog.String("used_ml", req.UsedVolumeMl.String()),
	)
	return request, nil
}

// Reject declines a pending hospital request with a reason.
func (s *emergencyService) Reject(ctx context.Context, requestID string, req dto.RejectEmergencyRequest, staffID string) (*domain.EmergencyRequest, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.emergencyRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.emergencyRepo.Rollback(ctx, tx)

	request, err := s.lockPendingRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	requester, err := s.userRepo.FindUserByID(ctx, request.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requester %s: %w", request.RequesterID, err)
	}
	if requester.Role != domain.RoleHospital {
		return nil, fmt.Errorf("%w: request %s", ErrRequesterNotHospital, requestID)
	}

	reason := req.Reason
	request.RejectionReason = &reason
	if err := s.settleRequest(ctx, tx, request, domain.EmergencyRejected, staffID, reason, now); err != nil {
		return nil, err
	}
	if err := s.emergencyRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "emergency_request",
		EntityID:   request.RequestID,
		OldStatus:  string(domain.EmergencyPending),
		NewStatus:  string(domain.EmergencyRejected),
		ActorID:    staffID,
		OccurredAt: now,
	})
	logger.Info("emergency request rejected",
		slog.String("request_id", request.RequestID),
		slog.String("reason", reason),
	)
	return request, nil
}

// RejectByBloodType bulk-rejects every pending hospital request matching a
// blood type and component. Each request settles in its own transaction, so a
// request approved concurrently is skipped rather than clobbered.
func (s *emergencyService) RejectByBloodType(ctx context.Context, req dto.RejectByBloodTypeRequest, staffID string) (*dto.BulkRejectResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	component := domain.WholeBlood
	if req.ComponentType != nil {
		component = domain.ComponentType(*req.ComponentType)
	}
	pending, err := s.emergencyRepo.FindPendingByBloodType(ctx, req.BloodType(), component, domain.RoleHospital)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending requests: %w", err)
	}
	if len(pending) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no pending hospital requests for %s %s", req.BloodType().String(), component))
	}

	rejected := make([]string, 0, len(pending))
	for i := range pending {
		requestID := pending[i].RequestID
		if err := s.rejectOne(ctx, requestID, req.Reason, staffID, now); err != nil {
			logger.Warn("skipping request during bulk rejection",
				slog.String("request_id", requestID), slog.Any("error", err))
			continue
		}
		rejected = append(rejected, requestID)
	}

	logger.Info("bulk rejection finished",
		slog.String("blood_type", req.BloodType().String()),
		slog.Int("matched", len(pending)),
		slog.Int("rejected", len(rejected)),
	)
	return &dto.BulkRejectResponse{Count: len(rejected), RequestIDs: rejected}, nil
}

// rejectOne settles one request of a bulk rejection under its own lock.
func (s *emergencyService) rejectOne(ctx context.Context, requestID, reason, staffID string, now time.Time) error {
	tx, err := s.emergencyRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.emergencyRepo.Rollback(ctx, tx)

	request, err := s.lockPendingRequest(ctx, tx, requestID)
	if err != nil {
		return err
	}
	request.RejectionReason = &reason
	if err := s.settleRequest(ctx, tx, request, domain.EmergencyRejected, staffID, reason, now); err != nil {
		return err
	}
	if err := s.emergencyRepo.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit rejection: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "emergency_request",
		EntityID:   requestID,
		OldStatus:  string(domain.EmergencyPending),
		NewStatus:  string(domain.EmergencyRejected),
		ActorID:    staffID,
		OccurredAt: now,
	})
	return nil
}

// ProvideContacts answers a pending individual request with suggested donor
// contacts instead of stock. When the caller names no donors, compatible
// active donors are looked up through the compatibility rules.
func (s *emergencyService) ProvideContacts(ctx context.Context, requestID string, req dto.ProvideContactsRequest, staffID string) (*domain.EmergencyRequest, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.emergencyRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.emergencyRepo.Rollback(ctx, tx)

	request, err := s.lockPendingRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	requester, err := s.userRepo.FindUserByID(ctx, request.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requester %s: %w", request.RequesterID, err)
	}
	if requester.Role != domain.RoleMember {
		return nil, fmt.Errorf("%w: request %s", ErrRequesterNotMember, requestID)
	}

	donorIDs := req.DonorIDs
	if len(donorIDs) == 0 {
		donorTypes := compat.CompatibleDonors(request.BloodType, request.Component())
		donors, err := s.userRepo.FindDonorsByBloodTypes(ctx, donorTypes)
		if err != nil {
			return nil, fmt.Errorf("failed to look up compatible donors: %w", err)
		}
		for i := range donors {
			donorIDs = append(donorIDs, donors[i].UserID)
		}
	}

	request.SuggestedDonors = donorIDs
	note := fmt.Sprintf("suggested %d donor contacts", len(donorIDs))
	if err := s.settleRequest(ctx, tx, request, domain.EmergencyContactsProvided, staffID, note, now); err != nil {
		return nil, err
	}
	if err := s.emergencyRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit contact provision: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "emergency_request",
		EntityID:   request.RequestID,
		OldStatus:  string(domain.EmergencyPending),
		NewStatus:  string(domain.EmergencyContactsProvided),
		ActorID:    staffID,
		OccurredAt: now,
	})
	logger.Info("donor contacts provided",
		slog.String("request_id", request.RequestID),
		slog.Int("donor_count", len(donorIDs)),
	)
	return request, nil
}

// GetRequestByID retrieves a specific request by its ID.
func (s *emergencyService) GetRequestByID(ctx context.Context, requestID string) (*domain.EmergencyRequest, error) {
	request, err := s.emergencyRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to find request %s: %w", requestID, err)
	}
	return request, nil
}

// ListRequests retrieves a filtered, paginated request list.
func (s *emergencyService) ListRequests(ctx context.Context, params dto.ListEmergencyParams) (*dto.ListEmergencyResponse, error) {
	filter := portsrepo.ListRequestsFilter{RequesterID: params.RequesterID}
	if params.Status != nil {
		st := domain.EmergencyStatus(*params.Status)
		filter.Status = &st
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	requests, nextToken, err := s.emergencyRepo.ListRequests(ctx, filter, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return &dto.ListEmergencyResponse{
		Requests:  dto.ToEmergencyResponses(requests),
		NextToken: nextToken,
	}, nil
}

// ListRequestLogs retrieves the request's transition log.
func (s *emergencyService) ListRequestLogs(ctx context.Context, requestID string) ([]domain.EmergencyRequestLog, error) {
	if _, err := s.emergencyRepo.FindRequestByID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("failed to find request %s: %w", requestID, err)
	}
	logs, err := s.emergencyRepo.ListLogsByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for request %s: %w", requestID, err)
	}
	return logs, nil
}
