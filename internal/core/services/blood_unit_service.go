package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/compat"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
)

var (
	ErrInvalidVolume     = fmt.Errorf("%w: volume must be positive", apperrors.ErrValidation)
	ErrInvalidExpiry     = fmt.Errorf("%w: expiry date must be in the future", apperrors.ErrValidation)
	ErrBloodTypeMismatch = fmt.Errorf("%w: blood type differs from the donor's established type", apperrors.ErrValidation)
	ErrNotSeparable      = fmt.Errorf("%w: unit cannot be separated", apperrors.ErrConflict)
	ErrDonorNotFound     = fmt.Errorf("%w: donor", apperrors.ErrNotFound)
)

const defaultListLimit = 50

// bloodUnitService maintains the blood unit inventory ledger.
type bloodUnitService struct {
	unitRepo portsrepo.BloodUnitRepositoryWithTx
	userRepo portsrepo.UserRepositoryFacade
	notifier portssvc.Notifier
}

// NewBloodUnitService creates a new inventory ledger service.
func NewBloodUnitService(unitRepo portsrepo.BloodUnitRepositoryWithTx, userRepo portsrepo.UserRepositoryFacade, notifier portssvc.Notifier) portssvc.BloodUnitSvcFacade {
	return &bloodUnitService{
		unitRepo: unitRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Ensure bloodUnitService implements the portssvc.BloodUnitSvcFacade interface
var _ portssvc.BloodUnitSvcFacade = (*bloodUnitService)(nil)

// CreateWholeBloodUnit registers a whole blood intake for a donor. The first
// accepted unit establishes the donor's blood type; every later intake must
// carry the same type.
func (s *bloodUnitService) CreateWholeBloodUnit(ctx context.Context, req dto.CreateBloodUnitRequest, actorID string) (*domain.BloodUnit, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	if !req.VolumeMl.IsPositive() {
		return nil, fmt.Errorf("%w: got %s ml", ErrInvalidVolume, req.VolumeMl.String())
	}
	if !req.ExpiryDate.After(now) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidExpiry, req.ExpiryDate.Format(time.RFC3339))
	}

	donor, err := s.userRepo.FindUserByID(ctx, req.DonorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDonorNotFound, req.DonorID)
		}
		return nil, fmt.Errorf("failed to find donor %s: %w", req.DonorID, err)
	}

	bloodType := req.BloodType()
	established := donor.BloodType
	if established == nil {
		// Fall back to the type recorded on the donor's existing units for
		// accounts created before the users table carried a blood type.
		established, err = s.unitRepo.FindDonorBloodType(ctx, req.DonorID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve established blood type for donor %s: %w", req.DonorID, err)
		}
	}
	if established != nil && !established.Equal(bloodType) {
		return nil, fmt.Errorf("%w: donor %s is %s, intake declares %s", ErrBloodTypeMismatch, req.DonorID, established.String(), bloodType.String())
	}

	unit := domain.BloodUnit{
		UnitID:            uuid.NewString(),
		DonorID:           req.DonorID,
		BloodType:         bloodType,
		ComponentType:     domain.WholeBlood,
		TotalVolumeMl:     req.VolumeMl,
		RemainingVolumeMl: req.VolumeMl,
		IsSeparated:       false,
		ExpiryDate:        req.ExpiryDate,
		Status:            domain.UnitAvailable,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	tx, err := s.unitRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.unitRepo.Rollback(ctx, tx)

	if err := s.unitRepo.SaveUnitsInTx(ctx, tx, []domain.BloodUnit{unit}); err != nil {
		return nil, fmt.Errorf("failed to save blood unit: %w", err)
	}
	if established == nil {
		// First intake pins the donor's blood type in the same transaction.
		if err := s.userRepo.SetUserBloodTypeInTx(ctx, tx, req.DonorID, bloodType, actorID, now); err != nil {
			return nil, fmt.Errorf("failed to record donor blood type: %w", err)
		}
	}
	action := domain.BloodUnitAction{
		ActionID:   uuid.NewString(),
		UnitID:     unit.UnitID,
		ActorID:    actorID,
		Kind:       domain.ActionCreated,
		NewValue:   fmt.Sprintf("%s %s %s ml", unit.BloodType.String(), unit.ComponentType, unit.TotalVolumeMl.String()),
		OccurredAt: now,
	}
	if err := s.unitRepo.SaveActionInTx(ctx, tx, action); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}
	if err := s.unitRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit blood unit creation: %w", err)
	}

	logger.Info("blood unit created",
		slog.String("unit_id", unit.UnitID),
		slog.String("donor_id", unit.DonorID),
		slog.String("blood_type", unit.BloodType.String()),
		slog.String("volume_ml", unit.TotalVolumeMl.String()),
	)
	return &unit, nil
}

// SeparateComponents splits a whole blood unit into red cells, plasma and
// platelets. The parent is locked for the duration so the write is
// all-or-nothing: either the parent is consumed and all three children exist,
// or nothing changed.
func (s *bloodUnitService) SeparateComponents(ctx context.Context, unitID string, req dto.SeparateComponentsRequest, actorID string) (*dto.SeparationResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	volumes := []struct {
		component domain.ComponentType
		volume    decimal.Decimal
		expiry    time.Time
	}{
		{domain.RedCells, req.RedCellsMl, req.RedCellsExpiry},
		{domain.Plasma, req.PlasmaMl, req.PlasmaExpiry},
		{domain.Platelets, req.PlateletsMl, req.PlateletsExpiry},
	}
	for _, v := range volumes {
		if !v.volume.IsPositive() {
			return nil, fmt.Errorf("%w: %s volume %s ml", ErrInvalidVolume, v.component, v.volume.String())
		}
		if !v.expiry.After(now) {
			return nil, fmt.Errorf("%w: %s expiry %s", ErrInvalidExpiry, v.component, v.expiry.Format(time.RFC3339))
		}
	}

	tx, err := s.unitRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.unitRepo.Rollback(ctx, tx)

	parent, err := s.unitRepo.FindUnitByIDForUpdate(ctx, tx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock unit %s: %w", unitID, err)
	}
	if parent.ComponentType != domain.WholeBlood {
		return nil, fmt.Errorf("%w: unit %s is %s, not whole blood", ErrNotSeparable, unitID, parent.ComponentType)
	}
	if parent.IsSeparated {
		return nil, fmt.Errorf("%w: unit %s is already separated", ErrNotSeparable, unitID)
	}
	if parent.Status != domain.UnitAvailable {
		return nil, fmt.Errorf("%w: unit %s is %s", ErrNotSeparable, unitID, parent.Status)
	}

	sum := req.RedCellsMl.Add(req.PlasmaMl).Add(req.PlateletsMl)
	if sum.GreaterThan(parent.TotalVolumeMl) {
		return nil, fmt.Errorf("%w: components sum to %s ml, unit holds %s ml",
			apperrors.ErrVolumeExceeded, sum.String(), parent.TotalVolumeMl.String())
	}

	children := make([]domain.BloodUnit, 0, len(volumes))
	for _, v := range volumes {
		children = append(children, domain.BloodUnit{
			UnitID:            uuid.NewString(),
			DonorID:           parent.DonorID,
			BloodType:         parent.BloodType,
			ComponentType:     v.component,
			TotalVolumeMl:     v.volume,
			RemainingVolumeMl: v.volume,
			ParentUnitID:      &parent.UnitID,
			ExpiryDate:        v.expiry,
			Status:            domain.UnitAvailable,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		})
	}

	previous := fmt.Sprintf("%s remaining %s ml", parent.Status, parent.RemainingVolumeMl.String())
	parent.IsSeparated = true
	parent.RemainingVolumeMl = decimal.Zero
	parent.Status = domain.UnitUsed
	parent.LastUpdatedAt = now
	parent.LastUpdatedBy = actorID

	if err := s.unitRepo.UpdateUnitInTx(ctx, tx, *parent); err != nil {
		return nil, fmt.Errorf("failed to update parent unit %s: %w", unitID, err)
	}
	if err := s.unitRepo.SaveUnitsInTx(ctx, tx, children); err != nil {
		return nil, fmt.Errorf("failed to save component units: %w", err)
	}
	action := domain.BloodUnitAction{
		ActionID:      uuid.NewString(),
		UnitID:        parent.UnitID,
		ActorID:       actorID,
		Kind:          domain.ActionComponentsSeparated,
		PreviousValue: previous,
		NewValue: fmt.Sprintf("red_cells=%s ml plasma=%s ml platelets=%s ml",
			req.RedCellsMl.String(), req.PlasmaMl.String(), req.PlateletsMl.String()),
		OccurredAt: now,
	}
	if err := s.unitRepo.SaveActionInTx(ctx, tx, action); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}
	if err := s.unitRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit separation: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "blood_unit",
		EntityID:   parent.UnitID,
		OldStatus:  string(domain.UnitAvailable),
		NewStatus:  string(domain.UnitUsed),
		ActorID:    actorID,
		OccurredAt: now,
	})
	logger.Info("blood unit separated",
		slog.String("unit_id", parent.UnitID),
		slog.String("red_cells_id", children[0].UnitID),
		slog.String("plasma_id", children[1].UnitID),
		slog.String("platelets_id", children[2].UnitID),
	)

	resp := &dto.SeparationResponse{
		Parent:    dto.ToBloodUnitResponse(parent),
		RedCells:  dto.ToBloodUnitResponse(&children[0]),
		Plasma:    dto.ToBloodUnitResponse(&children[1]),
		Platelets: dto.ToBloodUnitResponse(&children[2]),
	}
	return resp, nil
}

// deductLockedUnit applies a volume deduction to a unit already locked for
// update, transitioning it to USED when the remaining volume reaches zero.
// The emergency allocation flow reuses this inside its own transaction.
func deductLockedUnit(unit *domain.BloodUnit, amountMl decimal.Decimal, actorID string, now time.Time) error {
	if !amountMl.IsPositive() {
		return fmt.Errorf("%w: got %s ml", ErrInvalidVolume, amountMl.String())
	}
	if amountMl.GreaterThan(unit.RemainingVolumeMl) {
		return fmt.Errorf("%w: unit %s has %s ml, requested %s ml",
			apperrors.ErrInsufficientVolume, unit.UnitID, unit.RemainingVolumeMl.String(), amountMl.String())
	}
	unit.RemainingVolumeMl = unit.RemainingVolumeMl.Sub(amountMl)
	if unit.RemainingVolumeMl.IsZero() {
		unit.Status = domain.UnitUsed
	}
	unit.LastUpdatedAt = now
	unit.LastUpdatedBy = actorID
	return nil
}

// DeductVolume removes volume from a unit. The unit row is locked for the
// read-modify-write so concurrent deductions serialize and the remaining
// volume can never go negative.
func (s *bloodUnitService) DeductVolume(ctx context.Context, unitID string, amountMl decimal.Decimal, actorID string) (*domain.BloodUnit, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.unitRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.unitRepo.Rollback(ctx, tx)

	unit, err := s.unitRepo.FindUnitByIDForUpdate(ctx, tx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock unit %s: %w", unitID, err)
	}
	previousStatus := unit.Status
	previousRemaining := unit.RemainingVolumeMl

	if err := deductLockedUnit(unit, amountMl, actorID, now); err != nil {
		return nil, err
	}

	if err := s.unitRepo.UpdateUnitInTx(ctx, tx, *unit); err != nil {
		return nil, fmt.Errorf("failed to update unit %s: %w", unitID, err)
	}
	action := domain.BloodUnitAction{
		ActionID:      uuid.NewString(),
		UnitID:        unit.UnitID,
		ActorID:       actorID,
		Kind:          domain.ActionVolumeChange,
		PreviousValue: fmt.Sprintf("remaining %s ml", previousRemaining.String()),
		NewValue:      fmt.Sprintf("remaining %s ml", unit.RemainingVolumeMl.String()),
		OccurredAt:    now,
	}
	if err := s.unitRepo.SaveActionInTx(ctx, tx, action); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}
	if err := s.unitRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit volume deduction: %w", err)
	}

	if unit.Status != previousStatus {
		s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
			Entity:     "blood_unit",
			EntityID:   unit.UnitID,
			OldStatus:  string(previousStatus),
			NewStatus:  string(unit.Status),
			ActorID:    actorID,
			OccurredAt: now,
		})
	}
	logger.Info("volume deducted",
		slog.String("unit_id", unit.UnitID),
		slog.String("amount_ml", amountMl.String()),
		slog.String("remaining_ml", unit.RemainingVolumeMl.String()),
	)
	return unit, nil
}

// UpdateStatus sets a unit's status. Inventory statuses carry no transition
// table; staff corrections such as DAMAGED or TRANSFERRED are allowed from
// any state and every change lands in the audit trail. The unit row is locked
// for the read-modify-write so a status correction racing a volume deduction
// never writes back a stale volume snapshot.
func (s *bloodUnitService) UpdateStatus(ctx context.Context, unitID string, status domain.BloodUnitStatus, actorID string) (*domain.BloodUnit, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.unitRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.unitRepo.Rollback(ctx, tx)

	unit, err := s.unitRepo.FindUnitByIDForUpdate(ctx, tx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock unit %s: %w", unitID, err)
	}
	previous := unit.Status
	unit.Status = status
	unit.LastUpdatedAt = now
	unit.LastUpdatedBy = actorID

	if err := s.unitRepo.UpdateUnitInTx(ctx, tx, *unit); err != nil {
		return nil, fmt.Errorf("failed to update unit %s: %w", unitID, err)
	}
	action := domain.BloodUnitAction{
		ActionID:      uuid.NewString(),
		UnitID:        unit.UnitID,
		ActorID:       actorID,
		Kind:          domain.ActionStatusUpdate,
		PreviousValue: string(previous),
		NewValue:      string(status),
		OccurredAt:    now,
	}
	if err := s.unitRepo.SaveActionInTx(ctx, tx, action); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}
	if err := s.unitRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	if previous != status {
		s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
			Entity:     "blood_unit",
			EntityID:   unit.UnitID,
			OldStatus:  string(previous),
			NewStatus:  string(status),
			ActorID:    actorID,
			OccurredAt: now,
		})
	}
	logger.Info("blood unit status updated",
		slog.String("unit_id", unit.UnitID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
	)
	return unit, nil
}

// ExpireOverdueUnits sweeps every AVAILABLE or RESERVED unit whose expiry date
// has passed to EXPIRED and writes one audit record per transitioned unit.
func (s *bloodUnitService) ExpireOverdueUnits(ctx context.Context, actorID string) ([]domain.BloodUnit, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	expired, err := s.unitRepo.ExpireUnits(ctx, now, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue units: %w", err)
	}
	units := make([]domain.BloodUnit, 0, len(expired))
	for i := range expired {
		unit := expired[i].Unit
		units = append(units, unit)
		action := domain.BloodUnitAction{
			ActionID:      uuid.NewString(),
			UnitID:        unit.UnitID,
			ActorID:       actorID,
			Kind:          domain.ActionStatusUpdate,
			PreviousValue: string(expired[i].PreviousStatus),
			NewValue:      string(domain.UnitExpired),
			OccurredAt:    now,
		}
		if err := s.unitRepo.SaveAction(ctx, action); err != nil {
			logger.Error("failed to save expiry audit record", slog.String("unit_id", unit.UnitID), slog.Any("error", err))
		}
		s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
			Entity:     "blood_unit",
			EntityID:   unit.UnitID,
			OldStatus:  string(expired[i].PreviousStatus),
			NewStatus:  string(domain.UnitExpired),
			ActorID:    actorID,
			OccurredAt: now,
		})
	}
	if len(units) > 0 {
		logger.Info("expired overdue units", slog.Int("count", len(units)))
	}
	return units, nil
}

// GetUnitByID retrieves a specific blood unit by its ID.
func (s *bloodUnitService) GetUnitByID(ctx context.Context, unitID string) (*domain.BloodUnit, error) {
	unit, err := s.unitRepo.FindUnitByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to find unit %s: %w", unitID, err)
	}
	return unit, nil
}

// ListUnitsByDonor retrieves every unit owned by a donor.
func (s *bloodUnitService) ListUnitsByDonor(ctx context.Context, donorID string) ([]domain.BloodUnit, error) {
	units, err := s.unitRepo.FindUnitsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units for donor %s: %w", donorID, err)
	}
	return units, nil
}

// ListUnitActions retrieves the audit trail for one unit.
func (s *bloodUnitService) ListUnitActions(ctx context.Context, unitID string) ([]domain.BloodUnitAction, error) {
	if _, err := s.unitRepo.FindUnitByID(ctx, unitID); err != nil {
		return nil, fmt.Errorf("failed to find unit %s: %w", unitID, err)
	}
	actions, err := s.unitRepo.ListActionsByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions for unit %s: %w", unitID, err)
	}
	return actions, nil
}

// ListUnits retrieves a filtered, paginated list of blood units.
func (s *bloodUnitService) ListUnits(ctx context.Context, params dto.ListUnitsParams) (*dto.ListUnitsResponse, error) {
	filter := portsrepo.ListUnitsFilter{
		ExcludeExpired: params.ExcludeExpired,
		Now:            time.Now(),
	}
	if params.BloodType != nil {
		bt, err := domain.ParseBloodType(*params.BloodType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		filter.BloodTypes = []domain.BloodType{bt}
	}
	if params.ComponentType != nil {
		ct := domain.ComponentType(*params.ComponentType)
		filter.ComponentType = &ct
	}
	if params.Status != nil {
		st := domain.BloodUnitStatus(*params.Status)
		filter.Status = &st
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	units, nextToken, err := s.unitRepo.ListUnits(ctx, filter, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return &dto.ListUnitsResponse{
		Units:     dto.ToBloodUnitResponses(units),
		NextToken: nextToken,
	}, nil
}

// FindCompatibleUnits resolves the eligible donor blood types for the
// recipient and component, then filters the ledger to matching units.
func (s *bloodUnitService) FindCompatibleUnits(ctx context.Context, params dto.FindCompatibleParams) (*dto.ListUnitsResponse, error) {
	recipient := domain.BloodType{Group: domain.BloodGroup(params.BloodGroup), Rh: domain.RhFactor(params.RhFactor)}
	component := domain.ComponentType(params.ComponentType)

	donorTypes := compat.CompatibleDonors(recipient, component)
	filter := portsrepo.ListUnitsFilter{
		BloodTypes:     donorTypes,
		ComponentType:  &component,
		ExcludeExpired: params.ExcludeExpired,
		Now:            time.Now(),
	}
	if params.Status != nil {
		st := domain.BloodUnitStatus(*params.Status)
		filter.Status = &st
	} else {
		st := domain.UnitAvailable
		filter.Status = &st
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	units, nextToken, err := s.unitRepo.ListUnits(ctx, filter, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to search compatible units: %w", err)
	}
	return &dto.ListUnitsResponse{
		Units:     dto.ToBloodUnitResponses(units),
		NextToken: nextToken,
	}, nil
}
