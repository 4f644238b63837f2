package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// BloodUnitReaderSvc defines read operations over the inventory ledger.
type BloodUnitReaderSvc interface {
	// GetUnitByID retrieves a specific blood unit by its ID.
	GetUnitByID(ctx context.Context, unitID string) (*domain.BloodUnit, error)

	// ListUnits retrieves a filtered, paginated list of blood units.
	ListUnits(ctx context.Context, params dto.ListUnitsParams) (*dto.ListUnitsResponse, error)

	// ListUnitsByDonor retrieves every unit owned by a donor.
	ListUnitsByDonor(ctx context.Context, donorID string) ([]domain.BloodUnit, error)

	// ListUnitActions retrieves the audit trail for one unit.
	ListUnitActions(ctx context.Context, unitID string) ([]domain.BloodUnitAction, error)

	// FindCompatibleUnits resolves the eligible donor blood types for the
	// recipient and component, then filters the ledger.
	FindCompatibleUnits(ctx context.Context, params dto.FindCompatibleParams) (*dto.ListUnitsResponse, error)
}

// BloodUnitWriterSvc defines the mutating inventory operations.
type BloodUnitWriterSvc interface {
	// CreateWholeBloodUnit registers a whole blood intake for a donor.
	CreateWholeBloodUnit(ctx context.Context, req dto.CreateBloodUnitRequest, actorID string) (*domain.BloodUnit, error)

	// SeparateComponents splits a whole blood unit into red cells, plasma and
	// platelets as an all-or-nothing write.
	SeparateComponents(ctx context.Context, unitID string, req dto.SeparateComponentsRequest, actorID string) (*dto.SeparationResponse, error)

	// DeductVolume removes volume from a unit, transitioning it to USED when
	// the remaining volume reaches zero. Race-free per unit.
	DeductVolume(ctx context.Context, unitID string, amountMl decimal.Decimal, actorID string) (*domain.BloodUnit, error)

	// UpdateStatus sets a unit's status without a transition table.
	UpdateStatus(ctx context.Context, unitID string, status domain.BloodUnitStatus, actorID string) (*domain.BloodUnit, error)

	// ExpireOverdueUnits sweeps past-expiry AVAILABLE/RESERVED units to EXPIRED.
	ExpireOverdueUnits(ctx context.Context, actorID string) ([]domain.BloodUnit, error)
}

// BloodUnitSvcFacade combines all inventory service interfaces.
type BloodUnitSvcFacade interface {
	BloodUnitReaderSvc
	BloodUnitWriterSvc
}
