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
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/core/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

type EmergencyServiceTestSuite struct {
	suite.Suite
	emergencyRepo *MockEmergencyRepository
	unitRepo      *MockBloodUnitRepository
	userRepo      *MockUserRepository
	service       portssvc.EmergencySvcFacade
	ctx           context.Context
}

func (s *EmergencyServiceTestSuite) SetupTest() {
	s.emergencyRepo = new(MockEmergencyRepository)
	s.unitRepo = new(MockBloodUnitRepository)
	s.userRepo = new(MockUserRepository)
	s.service = services.NewEmergencyService(s.emergencyRepo, s.unitRepo, s.userRepo, noopNotifier{})
	s.ctx = context.Background()
}

func TestEmergencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EmergencyServiceTestSuite))
}

func (s *EmergencyServiceTestSuite) expectTx() {
	s.emergencyRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.emergencyRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.emergencyRepo.On("Commit", mock.Anything, mock.Anything).Return(nil)
}

func (s *EmergencyServiceTestSuite) expectTxNoCommit() {
	s.emergencyRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.emergencyRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
}

func hospitalUser() *domain.User {
	return &domain.User{UserID: "hosp-1", Role: domain.RoleHospital, IsActive: true}
}

func memberUser() *domain.User {
	return &domain.User{UserID: "member-1", Role: domain.RoleMember, IsActive: true}
}

func pendingRequest(requesterID string) *domain.EmergencyRequest {
	return &domain.EmergencyRequest{
		RequestID:        "req-1",
		RequesterID:      requesterID,
		BloodType:        domain.BloodType{Group: domain.GroupO, Rh: domain.RhPositive},
		RequiredVolumeMl: decimal.NewFromInt(500),
		Status:           domain.EmergencyPending,
		StartDate:        time.Now(),
		EndDate:          time.Now().Add(24 * time.Hour),
	}
}

func allocatableUnit() *domain.BloodUnit {
	return &domain.BloodUnit{
		UnitID:            "unit-1",
		DonorID:           "donor-1",
		BloodType:         domain.BloodType{Group: domain.GroupO, Rh: domain.RhNegative},
		ComponentType:     domain.WholeBlood,
		TotalVolumeMl:     decimal.NewFromInt(450),
		RemainingVolumeMl: decimal.NewFromInt(300),
		ExpiryDate:        time.Now().Add(30 * 24 * time.Hour),
		Status:            domain.UnitAvailable,
	}
}

func (s *EmergencyServiceTestSuite) TestCreateRequestSetsValidityWindow() {
	s.expectTx()
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	s.emergencyRepo.On("SaveRequestInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.EmergencyRequest) bool {
		return r.Status == domain.EmergencyPending && r.EndDate.Equal(start.Add(24*time.Hour))
	})).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(l domain.EmergencyRequestLog) bool {
		return l.ToStatus == domain.EmergencyPending
	})).Return(nil)

	request, err := s.service.CreateRequest(s.ctx, "hosp-1", dto.CreateEmergencyRequest{
		BloodGroup:       "O",
		RhFactor:         "+",
		RequiredVolumeMl: decimal.NewFromInt(500),
		StartDate:        &start,
	})

	s.Require().NoError(err)
	s.Equal(domain.EmergencyPending, request.Status)
	s.True(request.EndDate.Equal(start.Add(24 * time.Hour)))
	s.Equal(domain.WholeBlood, request.Component())
}

func (s *EmergencyServiceTestSuite) TestCreateRequestForbiddenRole() {
	staff := &domain.User{UserID: "staff-1", Role: domain.RoleStaff, IsActive: true}
	s.userRepo.On("FindUserByID", mock.Anything, "staff-1").Return(staff, nil)

	_, err := s.service.CreateRequest(s.ctx, "staff-1", dto.CreateEmergencyRequest{
		BloodGroup:       "O",
		RhFactor:         "+",
		RequiredVolumeMl: decimal.NewFromInt(500),
	})

	s.ErrorIs(err, apperrors.ErrForbidden)
	s.emergencyRepo.AssertNotCalled(s.T(), "SaveRequestInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestCreateRequestNonPositiveVolume() {
	_, err := s.service.CreateRequest(s.ctx, "hosp-1", dto.CreateEmergencyRequest{
		BloodGroup:       "O",
		RhFactor:         "+",
		RequiredVolumeMl: decimal.Zero,
	})

	s.ErrorIs(err, services.ErrInvalidVolume)
}

func (s *EmergencyServiceTestSuite) TestApproveAllocatesUnit() {
	s.expectTx()
	request := pendingRequest("hosp-1")
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(request, nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(allocatableUnit(), nil)
	s.unitRepo.On("UpdateUnitInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u domain.BloodUnit) bool {
		return u.RemainingVolumeMl.IsZero() && u.Status == domain.UnitUsed
	})).Return(nil)
	s.unitRepo.On("SaveActionInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.BloodUnitAction) bool {
		return a.Kind == domain.ActionVolumeChange && a.UnitID == "unit-1"
	})).Return(nil)
	s.emergencyRepo.On("UpdateRequestInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.EmergencyRequest) bool {
		return r.Status == domain.EmergencyApproved
	})).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(l domain.EmergencyRequestLog) bool {
		return l.FromStatus == domain.EmergencyPending && l.ToStatus == domain.EmergencyApproved
	})).Return(nil)

	got, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.EmergencyApproved, got.Status)
	s.True(got.UsedVolumeMl.Equal(decimal.NewFromInt(300)))
	s.Require().NotNil(got.AssignedUnitID)
	s.Equal("unit-1", *got.AssignedUnitID)
}

func (s *EmergencyServiceTestSuite) TestApproveSettledRequest() {
	s.expectTxNoCommit()
	request := pendingRequest("hosp-1")
	request.Status = domain.EmergencyApproved
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(request, nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, services.ErrRequestNotPending)
	s.unitRepo.AssertNotCalled(s.T(), "FindUnitByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestApproveIndividualRequest() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("member-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "member-1").Return(memberUser(), nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, services.ErrRequesterNotHospital)
}

func (s *EmergencyServiceTestSuite) TestApproveUsedExceedsRequired() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(600),
	}, "staff-1")

	s.ErrorIs(err, apperrors.ErrVolumeExceeded)
	s.unitRepo.AssertNotCalled(s.T(), "FindUnitByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestApproveIncompatibleBloodType() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	unit := allocatableUnit()
	unit.BloodType = domain.BloodType{Group: domain.GroupA, Rh: domain.RhPositive}
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, services.ErrIncompatibleUnit)
	s.unitRepo.AssertNotCalled(s.T(), "UpdateUnitInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestApproveComponentMismatch() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	unit := allocatableUnit()
	unit.ComponentType = domain.Plasma
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, services.ErrIncompatibleUnit)
}

func (s *EmergencyServiceTestSuite) TestApproveExpiredUnit() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	unit := allocatableUnit()
	unit.ExpiryDate = time.Now().Add(-time.Hour)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *EmergencyServiceTestSuite) TestApproveInsufficientUnitVolume() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	unit := allocatableUnit()
	unit.RemainingVolumeMl = decimal.NewFromInt(100)
	s.unitRepo.On("FindUnitByIDForUpdate", mock.Anything, mock.Anything, "unit-1").Return(unit, nil)

	_, err := s.service.Approve(s.ctx, "req-1", dto.ApproveEmergencyRequest{
		BloodUnitID:  "unit-1",
		UsedVolumeMl: decimal.NewFromInt(300),
	}, "staff-1")

	s.ErrorIs(err, apperrors.ErrInsufficientVolume)
	s.unitRepo.AssertNotCalled(s.T(), "UpdateUnitInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestRejectRecordsReason() {
	s.expectTx()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)
	s.emergencyRepo.On("UpdateRequestInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.EmergencyRequest) bool {
		return r.Status == domain.EmergencyRejected && r.RejectionReason != nil && *r.RejectionReason == "stock reserved for surgery"
	})).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := s.service.Reject(s.ctx, "req-1", dto.RejectEmergencyRequest{Reason: "stock reserved for surgery"}, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.EmergencyRejected, got.Status)
	s.Require().NotNil(got.RejectionReason)
	s.Equal("stock reserved for surgery", *got.RejectionReason)
}

func (s *EmergencyServiceTestSuite) TestRejectByBloodTypeSkipsSettledRequests() {
	s.expectTx()
	first := pendingRequest("hosp-1")
	second := pendingRequest("hosp-2")
	second.RequestID = "req-2"
	s.emergencyRepo.On("FindPendingByBloodType", mock.Anything, mock.Anything, domain.WholeBlood, domain.RoleHospital).
		Return([]domain.EmergencyRequest{*first, *second}, nil)
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(first, nil)
	// Approved between the listing and the per-request lock.
	settled := pendingRequest("hosp-2")
	settled.RequestID = "req-2"
	settled.Status = domain.EmergencyApproved
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-2").Return(settled, nil)
	s.emergencyRepo.On("UpdateRequestInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := s.service.RejectByBloodType(s.ctx, dto.RejectByBloodTypeRequest{
		BloodGroup: "O",
		RhFactor:   "+",
		Reason:     "shortage resolved",
	}, "staff-1")

	s.Require().NoError(err)
	s.Equal(1, resp.Count)
	s.Equal([]string{"req-1"}, resp.RequestIDs)
	s.emergencyRepo.AssertNumberOfCalls(s.T(), "UpdateRequestInTx", 1)
}

func (s *EmergencyServiceTestSuite) TestRejectByBloodTypeNoMatches() {
	s.emergencyRepo.On("FindPendingByBloodType", mock.Anything, mock.Anything, domain.WholeBlood, domain.RoleHospital).
		Return([]domain.EmergencyRequest{}, nil)

	_, err := s.service.RejectByBloodType(s.ctx, dto.RejectByBloodTypeRequest{
		BloodGroup: "AB",
		RhFactor:   "-",
		Reason:     "shortage resolved",
	}, "staff-1")

	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EmergencyServiceTestSuite) TestProvideContactsWithExplicitDonors() {
	s.expectTx()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("member-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "member-1").Return(memberUser(), nil)
	s.emergencyRepo.On("UpdateRequestInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.EmergencyRequest) bool {
		return r.Status == domain.EmergencyContactsProvided && len(r.SuggestedDonors) == 2
	})).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := s.service.ProvideContacts(s.ctx, "req-1", dto.ProvideContactsRequest{
		DonorIDs: []string{"donor-1", "donor-2"},
	}, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.EmergencyContactsProvided, got.Status)
	s.Equal([]string{"donor-1", "donor-2"}, got.SuggestedDonors)
	s.userRepo.AssertNotCalled(s.T(), "FindDonorsByBloodTypes", mock.Anything, mock.Anything)
}

func (s *EmergencyServiceTestSuite) TestProvideContactsAutoMatch() {
	s.expectTx()
	request := pendingRequest("member-1")
	request.BloodType = domain.BloodType{Group: domain.GroupO, Rh: domain.RhNegative}
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(request, nil)
	s.userRepo.On("FindUserByID", mock.Anything, "member-1").Return(memberUser(), nil)
	// An O- whole blood recipient can only receive from O- donors.
	s.userRepo.On("FindDonorsByBloodTypes", mock.Anything, mock.MatchedBy(func(types []domain.BloodType) bool {
		return len(types) == 1 && types[0].Group == domain.GroupO && types[0].Rh == domain.RhNegative
	})).Return([]domain.User{{UserID: "donor-9"}, {UserID: "donor-10"}}, nil)
	s.emergencyRepo.On("UpdateRequestInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.emergencyRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := s.service.ProvideContacts(s.ctx, "req-1", dto.ProvideContactsRequest{}, "staff-1")

	s.Require().NoError(err)
	s.Equal([]string{"donor-9", "donor-10"}, got.SuggestedDonors)
}

func (s *EmergencyServiceTestSuite) TestProvideContactsHospitalRequest() {
	s.expectTxNoCommit()
	s.emergencyRepo.On("FindRequestByIDForUpdate", mock.Anything, mock.Anything, "req-1").Return(pendingRequest("hosp-1"), nil)
	s.userRepo.On("FindUserByID", mock.Anything, "hosp-1").Return(hospitalUser(), nil)

	_, err := s.service.ProvideContacts(s.ctx, "req-1", dto.ProvideContactsRequest{}, "staff-1")

	s.ErrorIs(err, services.ErrRequesterNotMember)
	s.emergencyRepo.AssertNotCalled(s.T(), "UpdateRequestInTx", mock.Anything, mock.Anything, mock.Anything)
}
