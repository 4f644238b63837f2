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

type DonationServiceTestSuite struct {
	suite.Suite
	donationRepo *MockDonationRepository
	campaignRepo *MockCampaignRepository
	service      portssvc.DonationSvcFacade
	ctx          context.Context
}

func (s *DonationServiceTestSuite) SetupTest() {
	s.donationRepo = new(MockDonationRepository)
	s.campaignRepo = new(MockCampaignRepository)
	s.service = services.NewDonationService(s.donationRepo, s.campaignRepo, noopNotifier{})
	s.ctx = context.Background()
}

func TestDonationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceTestSuite))
}

func (s *DonationServiceTestSuite) expectTx() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("Commit", mock.Anything, mock.Anything).Return(nil)
}

func activeCampaign() *domain.Campaign {
	return &domain.Campaign{CampaignID: "camp-1", Name: "Summer Drive", IsActive: true}
}

func donationAt(status domain.DonationStatus) *domain.CampaignDonation {
	return &domain.CampaignDonation{
		DonationID: "don-1",
		DonorID:    "donor-1",
		CampaignID: "camp-1",
		Status:     status,
	}
}

func (s *DonationServiceTestSuite) TestRequestDonation() {
	s.expectTx()
	s.campaignRepo.On("FindCampaignByID", mock.Anything, "camp-1").Return(activeCampaign(), nil)
	s.donationRepo.On("SaveDonationInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(d domain.CampaignDonation) bool {
		return d.Status == domain.DonationPending && d.DonorID == "donor-1"
	})).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(l domain.CampaignDonationLog) bool {
		return l.ToStatus == domain.DonationPending && l.FromStatus == domain.DonationStatus("")
	})).Return(nil)

	donation, err := s.service.RequestDonation(s.ctx, "donor-1", dto.CreateDonationRequest{CampaignID: "camp-1"})

	s.Require().NoError(err)
	s.Equal(domain.DonationPending, donation.Status)
}

func (s *DonationServiceTestSuite) TestRequestDonationInactiveCampaign() {
	campaign := activeCampaign()
	campaign.IsActive = false
	s.campaignRepo.On("FindCampaignByID", mock.Anything, "camp-1").Return(campaign, nil)

	_, err := s.service.RequestDonation(s.ctx, "donor-1", dto.CreateDonationRequest{CampaignID: "camp-1"})

	s.ErrorIs(err, services.ErrCampaignInactive)
	s.donationRepo.AssertNotCalled(s.T(), "SaveDonationInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DonationServiceTestSuite) TestRequestDonationAppointmentOffCollectionDay() {
	collection := time.Date(2025, 7, 10, 8, 0, 0, 0, time.UTC)
	campaign := activeCampaign()
	campaign.CollectionDate = &collection
	s.campaignRepo.On("FindCampaignByID", mock.Anything, "camp-1").Return(campaign, nil)

	appointment := collection.Add(48 * time.Hour)
	_, err := s.service.RequestDonation(s.ctx, "donor-1", dto.CreateDonationRequest{
		CampaignID:      "camp-1",
		AppointmentDate: &appointment,
	})

	s.ErrorIs(err, services.ErrAppointmentDateMismatch)
}

func (s *DonationServiceTestSuite) TestUpdateStatusValidTransition() {
	s.expectTx()
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationPending), nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(d domain.CampaignDonation) bool {
		return d.Status == domain.DonationAppointmentConfirmed
	})).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(l domain.CampaignDonationLog) bool {
		return l.FromStatus == domain.DonationPending && l.ToStatus == domain.DonationAppointmentConfirmed
	})).Return(nil)

	donation, err := s.service.UpdateStatus(s.ctx, "don-1", dto.UpdateDonationStatusRequest{Status: domain.DonationAppointmentConfirmed}, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.DonationAppointmentConfirmed, donation.Status)
}

func (s *DonationServiceTestSuite) TestUpdateStatusInvalidTransition() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationPending), nil)

	_, err := s.service.UpdateStatus(s.ctx, "don-1", dto.UpdateDonationStatusRequest{Status: domain.DonationCompleted}, "staff-1")

	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	s.donationRepo.AssertNotCalled(s.T(), "UpdateDonationInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DonationServiceTestSuite) TestUpdateStatusSelfTransition() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationPending), nil)

	_, err := s.service.UpdateStatus(s.ctx, "don-1", dto.UpdateDonationStatusRequest{Status: domain.DonationPending}, "staff-1")

	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *DonationServiceTestSuite) TestUpdateStatusToCompletedKeepsExistingResult() {
	s.expectTx()
	donation := donationAt(domain.DonationCheckedIn)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donation, nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	existing := &domain.DonationResult{ResultID: "res-1", DonationID: "don-1", Status: domain.ResultCompleted}
	s.donationRepo.On("FindResultByDonationIDInTx", mock.Anything, mock.Anything, "don-1").Return(existing, nil)

	_, err := s.service.UpdateStatus(s.ctx, "don-1", dto.UpdateDonationStatusRequest{Status: domain.DonationCompleted}, "staff-1")

	s.Require().NoError(err)
	s.donationRepo.AssertNotCalled(s.T(), "SaveResultInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DonationServiceTestSuite) TestCustomerCancelPending() {
	s.expectTx()
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationPending), nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(d domain.CampaignDonation) bool {
		return d.Status == domain.DonationCustomerCancelled
	})).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	donation, err := s.service.CustomerCancel(s.ctx, "don-1", "donor-1", "cannot make it")

	s.Require().NoError(err)
	s.Equal(domain.DonationCustomerCancelled, donation.Status)
}

func (s *DonationServiceTestSuite) TestCustomerCancelConfirmedWithEnoughNotice() {
	s.expectTx()
	donation := donationAt(domain.DonationAppointmentConfirmed)
	appointment := time.Now().Add(30 * time.Hour)
	donation.AppointmentDate = &appointment
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donation, nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := s.service.CustomerCancel(s.ctx, "don-1", "donor-1", "")

	s.Require().NoError(err)
	s.Equal(domain.DonationCustomerCancelled, got.Status)
}

func (s *DonationServiceTestSuite) TestCustomerCancelConfirmedTooLate() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	donation := donationAt(domain.DonationAppointmentConfirmed)
	appointment := time.Now().Add(10 * time.Hour)
	donation.AppointmentDate = &appointment
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donation, nil)

	_, err := s.service.CustomerCancel(s.ctx, "don-1", "donor-1", "")

	s.ErrorIs(err, services.ErrCancellationWindowExpired)
	s.donationRepo.AssertNotCalled(s.T(), "UpdateDonationInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DonationServiceTestSuite) TestCustomerCancelNotOwner() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationPending), nil)

	_, err := s.service.CustomerCancel(s.ctx, "don-1", "someone-else", "")

	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *DonationServiceTestSuite) TestCompleteRecordsResult() {
	s.expectTx()
	donation := donationAt(domain.DonationCheckedIn)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donation, nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(d domain.CampaignDonation) bool {
		return d.Status == domain.DonationCompleted && d.VolumeMl.Equal(decimal.NewFromInt(350))
	})).Return(nil)
	s.donationRepo.On("SaveLogInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindResultByDonationIDInTx", mock.Anything, mock.Anything, "don-1").Return(nil, apperrors.ErrNotFound)
	s.donationRepo.On("SaveResultInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(r domain.DonationResult) bool {
		return r.DonationID == "don-1" && r.Status == domain.ResultCompleted && r.VolumeMl.Equal(decimal.NewFromInt(350))
	})).Return(nil)

	group := "A"
	rh := "+"
	result, err := s.service.Complete(s.ctx, "don-1", dto.CompleteDonationRequest{
		VolumeMl:     decimal.NewFromInt(350),
		BloodGroup:   &group,
		RhFactor:     &rh,
		ResultStatus: domain.ResultCompleted,
	}, "staff-1")

	s.Require().NoError(err)
	s.Equal(domain.ResultCompleted, result.Status)
	s.Require().NotNil(result.BloodType)
	s.Equal("A+", result.BloodType.String())
}

func (s *DonationServiceTestSuite) TestCompleteFromTerminalStatus() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationCompleted), nil)

	_, err := s.service.Complete(s.ctx, "don-1", dto.CompleteDonationRequest{
		VolumeMl:     decimal.NewFromInt(350),
		ResultStatus: domain.ResultCompleted,
	}, "staff-1")

	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	s.donationRepo.AssertNotCalled(s.T(), "SaveResultInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DonationServiceTestSuite) TestRescheduleRejectsLateStatus() {
	s.donationRepo.On("Begin", mock.Anything).Return(nil, nil)
	s.donationRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donationAt(domain.DonationCheckedIn), nil)

	_, err := s.service.Reschedule(s.ctx, "don-1", dto.RescheduleDonationRequest{AppointmentDate: time.Now().Add(48 * time.Hour)}, "staff-1")

	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *DonationServiceTestSuite) TestRescheduleOnCollectionDay() {
	s.expectTx()
	collection := time.Date(2025, 7, 10, 8, 0, 0, 0, time.UTC)
	campaign := activeCampaign()
	campaign.CollectionDate = &collection
	donation := donationAt(domain.DonationAppointmentConfirmed)
	s.donationRepo.On("FindDonationByIDForUpdate", mock.Anything, mock.Anything, "don-1").Return(donation, nil)
	s.campaignRepo.On("FindCampaignByID", mock.Anything, "camp-1").Return(campaign, nil)
	s.donationRepo.On("UpdateDonationInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(d domain.CampaignDonation) bool {
		return d.AppointmentDate != nil && d.AppointmentDate.UTC().Day() == 10
	})).Return(nil)

	newTime := time.Date(2025, 7, 10, 14, 30, 0, 0, time.UTC)
	got, err := s.service.Reschedule(s.ctx, "don-1", dto.RescheduleDonationRequest{AppointmentDate: newTime}, "staff-1")

	s.Require().NoError(err)
	s.Require().NotNil(got.AppointmentDate)
	s.True(got.AppointmentDate.Equal(newTime))
	// No transition happened, so no log entry is written.
	s.donationRepo.AssertNotCalled(s.T(), "SaveLogInTx", mock.Anything, mock.Anything, mock.Anything)
}
