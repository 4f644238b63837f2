package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/core/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

type BloodUnitServiceTestSuite struct {
	suite.Suite
	unitRepo *MockBloodUnitRepository
	userRepo *MockUserRepository
	service  portssvc.BloodUnitSvcFacade
	ctx      context.Context
}

func (s *BloodUnitServiceTestSuite) SetupTest() {
	s.unitRepo = new(MockBloodUnitRepository)
	s.userRepo = new(MockUserRepository)
	s.service = services.NewBloodUnitService(s.unitRepo, s.userRepo, noopNotifier{})
	s.ctx = context.Background()
}

func TestBloodUnitServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BloodUnitServiceTestSuite))
}

func (s *BloodUnitServiceTestSuite) expectTx() {
	s.unitRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.unitRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.unitRepo.On("Commit", mock.Anything, mock.Anything).Return(nil)
}

func aPlus() domain.BloodType {
	return domain.BloodType{Group: domain.GroupA, Rh: domain.RhPositive}
}

func (s *BloodUnitServiceTestSuite) TestCreateWholeBloodUnitEstablishesDonorType() {
	s.expectTx()
	donor := &domain.User{UserID: "donor-1", Role: domain.RoleMember, IsActive: true}
	s.userRepo.On("FindUserByID", mock.Anything, "donor-1").Return(donor, nil)
	s.unitRepo.On("FindDonorBloodType", mock.Anything, "donor-1").Return(nil, nil)
	s.unitRepo.On("SaveUnitsInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.userRepo.On("SetUserBloodTypeInTx", mock.Anything, mock.Anything, "donor-1", aPlus(), "staff-1", mock.Anything).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionCreated && a.ActorID == "staff-1"
	})).Return(nil)

	req := dto.CreateBloodUnitRequest{
		DonorID:    "donor-1",
		BloodGroup: "A",
		RhFactor:   "+",
		VolumeMl:   decimal.NewFromInt(450),
		ExpiryDate: time.Now().Add(35 * 24 * time.Hour),
	}
	unit, err := s.service.CreateWholeBloodUnit(s.ctx, req, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.WholeBlood, unit.ComponentType)
	s.Equal(domain.UnitAvailable, unit.Status)
	s.True(unit.RemainingVolumeMl.Equal(decimal.NewFromInt(450)))
	s.userRepo.AssertCalled(s.T(), "SetUserBloodTypeInTx", mock.Anything, mock.Anything, "donor-1", aPlus(), "staff-1", mock.Anything)
}

func (s *BloodUnitServiceTestSuite) TestCreateWholeBloodUnitRejectsMismatchedType() {
	established := aPlus()
	donor := &domain.User{UserID: "donor-1", Role: domain.RoleMember, BloodType: &established}
	s.userRepo.On("FindUserByID", mock.Anything, "donor-1").Return(donor, nil)

	req := dto.CreateBloodUnitRequest{
		DonorID:    "donor-1",
		BloodGroup: "O",
		RhFactor:   "-",
		VolumeMl:   decimal.NewFromInt(450),
		ExpiryDate: time.Now().Add(24 * time.Hour),
	}
	_, err := s.service.CreateWholeBloodUnit(s.ctx, req, "staff-1")

	s.Require().Error(err)
	s.ErrorIs(err, services.ErrBloodTypeMismatch)
	s.unitRepo.AssertNotCalled(s.T(), "SaveUnitsInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BloodUnitServiceTestSuite) TestCreateWholeBloodUnitValidation() {
	req := dto.CreateBloodUnitRequest{
		DonorID:    "donor-1",
		BloodGroup: "A",
		RhFactor:   "+",
		VolumeMl:   decimal.Zero,
		ExpiryDate: time.Now().Add(24 * time.Hour),
	}
	_, err := s.service.CreateWholeBloodUnit(s.ctx, req, "staff-1")
	s.ErrorIs(err, services.ErrInvalidVolume)

	req.VolumeMl = decimal.NewFromInt(450)
	req.ExpiryDate = time.Now().Add(-time.Hour)
	_, err = s.service.CreateWholeBloodUnit(s.ctx, req, "staff-1")
	s.ErrorIs(err, services.ErrInvalidExpiry)
}

func (s *BloodUnitServiceTestSuite) separableUnit() *domain.BloodUnit {
	return &domain.BloodUnit{
		UnitID:            "unit-1",
		DonorID:           "donor-1",
		BloodType:         aPlus(),
		ComponentType:     domain.WholeBlood,
		TotalVolumeMl:     decimal.NewFromInt(450),
		RemainingVolumeMl: decimal.NewFromInt(450),
		ExpiryDate:        time.Now().Add(30 * 24 * time.Hour),
		Status:            domain.UnitAvailable,
	}
}

func separationRequest() dto.SeparateComponentsRequest {
	future := time.Now().Add(30 * 24 * time.Hour)
	return dto.SeparateComponentsRequest{
		RedCellsMl:      decimal.NewFromInt(200),
		PlasmaMl:        decimal.NewFromInt(150),
		PlateletsMl:     decimal.NewFromInt(90),
		RedCellsExpiry:  future,
		PlasmaExpiry:    future,
		PlateletsExpiry: future,
	}
}

func (s *BloodUnitServiceTestSuite) TestSeparateComponents() {
	s.expectTx()
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(s.separableUnit(), nil)
	s.unitRepo.On("UpdateUnitInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u domain.BloodUnit) bool {
		return u.IsSeparated && u.Status == domain.UnitUsed && u.RemainingVolumeMl.IsZero()
	})).Return(nil)
	s.unitRepo.On("SaveUnitsInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(children []domain.BloodUnit) bool {
		if len(children) != 3 {
			return false
		}
		for _, c := range children {
			if c.ParentUnitID == nil || *c.ParentUnitID != "unit-1" || !c.BloodType.Equal(aPlus()) {
				return false
			}
		}
		return children[0].ComponentType == domain.RedCells &&
			children[1].ComponentType == domain.Plasma &&
			children[2].ComponentType == domain.Platelets
	})).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionComponentsSeparated && a.UnitID == "unit-1"
	})).Return(nil)

	resp, err := s.service.SeparateComponents(s.ctx, "unit-1", separationRequest(), "staff-1")

	s.Require().NoError(err)
	s.Equal("USED", resp.Parent.Status)
	s.True(resp.Parent.RemainingVolumeMl.IsZero())
	s.True(resp.RedCells.TotalVolumeMl.Equal(decimal.NewFromInt(200)))
	s.True(resp.Plasma.TotalVolumeMl.Equal(decimal.NewFromInt(150)))
	s.True(resp.Platelets.TotalVolumeMl.Equal(decimal.NewFromInt(90)))
}

func (s *BloodUnitServiceTestSuite) TestSeparateComponentsVolumeExceeded() {
	s.unitRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.unitRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(s.separableUnit(), nil)

	req := separationRequest()
	req.RedCellsMl = decimal.NewFromInt(300) // 300+150+90 > 450
	_, err := s.service.SeparateComponents(s.ctx, "unit-1", req, "staff-1")

	s.ErrorIs(err, apperrors.ErrVolumeExceeded)
	s.unitRepo.AssertNotCalled(s.T(), "Commit", mock.Anything, mock.Anything)
}

func (s *BloodUnitServiceTestSuite) TestSeparateComponentsAlreadySeparated() {
	s.unitRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.unitRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	unit := s.separableUnit()
	unit.IsSeparated = true
	unit.Status = domain.UnitUsed
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.SeparateComponents(s.ctx, "unit-1", separationRequest(), "staff-1")
	s.ErrorIs(err, services.ErrNotSeparable)
}

func (s *BloodUnitServiceTestSuite) TestDeductVolumeDrainsToUsed() {
	s.expectTx()
	unit := s.separableUnit()
	unit.RemainingVolumeMl = decimal.NewFromInt(100)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)
	s.unitRepo.On("UpdateUnitInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u domain.BloodUnit) bool {
		return u.RemainingVolumeMl.IsZero() && u.Status == domain.UnitUsed
	})).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionVolumeChange &&
			a.PreviousValue == "remaining 100 ml" && a.NewValue == "remaining 0 ml"
	})).Return(nil)

	got, err := s.service.DeductVolume(s.ctx, "unit-1", decimal.NewFromInt(100), "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.UnitUsed, got.Status)
	s.True(got.RemainingVolumeMl.IsZero())
}

func (s *BloodUnitServiceTestSuite) TestDeductVolumeInsufficient() {
	s.unitRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.unitRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	unit := s.separableUnit()
	unit.RemainingVolumeMl = decimal.NewFromInt(50)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.DeductVolume(s.ctx, "unit-1", decimal.NewFromInt(51), "staff-1")

	s.ErrorIs(err, apperrors.ErrInsufficientVolume)
	s.unitRepo.AssertNotCalled(s.T(), "UpdateUnitInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BloodUnitServiceTestSuite) TestDeductVolumeSerializedDeductionsCannotOverdraw() {
	s.expectTx()
	// Both deductions lock the same row; the second reads the state the first
	// committed, so 300+300 against 450 ml cannot both succeed.
	unit := s.separableUnit()
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)
	s.unitRepo.On("UpdateUnitInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := s.service.DeductVolume(s.ctx, "unit-1", decimal.NewFromInt(300), "staff-1")
	s.Require().NoError(err)
	s.True(first.RemainingVolumeMl.Equal(decimal.NewFromInt(150)))

	_, err = s.service.DeductVolume(s.ctx, "unit-1", decimal.NewFromInt(300), "staff-2")
	s.ErrorIs(err, apperrors.ErrInsufficientVolume)

	s.unitRepo.AssertNumberOfCalls(s.T(), "UpdateUnitInTx", 1)
	s.unitRepo.AssertNumberOfCalls(s.T(), "SaveActionInTx", 1)
}

func (s *BloodUnitServiceTestSuite) TestUpdateStatusReadsRowUnderLock() {
	s.expectTx()
	// The row was drained and marked USED by a deduction that committed first.
	// The status update must write volume state from the locked read, not from
	// any earlier snapshot.
	unit := s.separableUnit()
	unit.RemainingVolumeMl = decimal.Zero
	unit.Status = domain.UnitUsed
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)
	s.unitRepo.On("UpdateUnitInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u domain.BloodUnit) bool {
		return u.Status == domain.UnitDamaged && u.RemainingVolumeMl.IsZero()
	})).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionStatusUpdate && a.PreviousValue == "USED" && a.NewValue == "DAMAGED"
	})).Return(nil)

	got, err := s.service.UpdateStatus(s.ctx, "unit-1", domain.UnitDamaged, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.UnitDamaged, got.Status)
	s.True(got.RemainingVolumeMl.IsZero())
	s.unitRepo.AssertNotCalled(s.T(), "FindUnitByID", mock.Anything, mock.Anything)
	s.unitRepo.AssertNotCalled(s.T(), "UpdateUnit", mock.Anything, mock.Anything)
}

func (s *BloodUnitServiceTestSuite) TestExpireOverdueUnitsWritesAuditTrail() {
	expired := []portsrepo.ExpiredUnit{
		{Unit: domain.BloodUnit{UnitID: "unit-1", Status: domain.UnitExpired}, PreviousStatus: domain.UnitAvailable},
		{Unit: domain.BloodUnit{UnitID: "unit-2", Status: domain.UnitExpired}, PreviousStatus: domain.UnitReserved},
	}
	s.unitRepo.On("ExpireUnits", mock.Anything, mock.Anything, "system-sweeper").Return(expired, nil)
	s.unitRepo.On("SaveAction", mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionStatusUpdate && a.NewValue == "EXPIRED"
	})).Return(nil)

	got, err := s.service.ExpireOverdueUnits(s.ctx, "system-sweeper")

	s.Require().NoError(err)
	s.Len(got, 2)
	s.unitRepo.AssertNumberOfCalls(s.T(), "SaveAction", 2)
	// A swept RESERVED unit records RESERVED as the prior value, not AVAILABLE.
	s.unitRepo.AssertCalled(s.T(), "SaveAction", mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.UnitID == "unit-2" && a.PreviousValue == "RESERVED"
	}))
}

func (s *BloodUnitServiceTestSuite) TestFindCompatibleUnitsUsesCompatibilityRules() {
	var captured portsrepo.ListUnitsFilter
	s.unitRepo.On("ListUnits", mock.Anything, mock.MatchedBy(func(f portsrepo.ListUnitsFilter) bool {
		captured = f
		return true
	}), 50, (*string)(nil)).Return([]domain.BloodUnit{}, nil, nil)

	params := dto.FindCompatibleParams{BloodGroup: "O", RhFactor: "-", ComponentType: "WHOLE_BLOOD"}
	_, err := s.service.FindCompatibleUnits(s.ctx, params)

	s.Require().NoError(err)
	// O- recipients only accept O- whole blood, and unset status defaults to AVAILABLE.
	s.Equal([]domain.BloodType{{Group: domain.GroupO, Rh: domain.RhNegative}}, captured.BloodTypes)
	s.Require().NotNil(captured.Status)
	s.Equal(domain.UnitAvailable, *captured.Status)
}
