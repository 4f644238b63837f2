package services_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
)

// --- Mock BloodUnitRepository (based on BloodUnitRepositoryWithTx usage) ---

type MockBloodUnitRepository struct {
	mock.Mock
}

func (m *MockBloodUnitRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (m *MockBloodUnitRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockBloodUnitRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockBloodUnitRepository) FindUnitByID(ctx context.Context, unitID string) (*domain.BloodUnit, error) {
	args := m.Called(ctx, unitID)
	unit, _ := args.Get(0).(*domain.BloodUnit)
	return unit, args.Error(1)
}

func (m *MockBloodUnitRepository) FindUnitsByDonor(ctx context.Context, donorID string) ([]domain.BloodUnit, error) {
	args := m.Called(ctx, donorID)
	units, _ := args.Get(0).([]domain.BloodUnit)
	return units, args.Error(1)
}

func (m *MockBloodUnitRepository) FindDonorBloodType(ctx context.Context, donorID string) (*domain.BloodType, error) {
	args := m.Called(ctx, donorID)
	bt, _ := args.Get(0).(*domain.BloodType)
	return bt, args.Error(1)
}

func (m *MockBloodUnitRepository) ListUnits(ctx context.Context, filter portsrepo.ListUnitsFilter, limit int, nextToken *string) ([]domain.BloodUnit, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	units, _ := args.Get(0).([]domain.BloodUnit)
	token, _ := args.Get(1).(*string)
	return units, token, args.Error(2)
}

func (m *MockBloodUnitRepository) ListActionsByUnit(ctx context.Context, unitID string) ([]domain.BloodUnitAction, error) {
	args := m.Called(ctx, unitID)
	actions, _ := args.Get(0).([]domain.BloodUnitAction)
	return actions, args.Error(1)
}

func (m *MockBloodUnitRepository) SaveUnit(ctx context.Context, unit domain.BloodUnit) error {
	return m.Called(ctx, unit).Error(0)
}

func (m *MockBloodUnitRepository) UpdateUnit(ctx context.Context, unit domain.BloodUnit) error {
	return m.Called(ctx, unit).Error(0)
}

func (m *MockBloodUnitRepository) SaveAction(ctx context.Context, action domain.BloodUnitAction) error {
	return m.Called(ctx, action).Error(0)
}

func (m *MockBloodUnitRepository) ExpireUnits(ctx context.Context, now time.Time, actorID string) ([]portsrepo.ExpiredUnit, error) {
	args := m.Called(ctx, now, actorID)
	expired, _ := args.Get(0).([]portsrepo.ExpiredUnit)
	return expired, args.Error(1)
}

func (m *MockBloodUnitRepository) FindUnitByIDForUpdate(ctx context.Context, tx pgx.Tx, unitID string) (*domain.BloodUnit, error) {
	args := m.Called(ctx, tx, unitID)
	unit, _ := args.Get(0).(*domain.BloodUnit)
	return unit, args.Error(1)
}

func (m *MockBloodUnitRepository) UpdateUnitInTx(ctx context.Context, tx pgx.Tx, unit domain.BloodUnit) error {
	return m.Called(ctx, tx, unit).Error(0)
}

func (m *MockBloodUnitRepository) SaveUnitsInTx(ctx context.Context, tx pgx.Tx, units []domain.BloodUnit) error {
	return m.Called(ctx, tx, units).Error(0)
}

func (m *MockBloodUnitRepository) SaveActionInTx(ctx context.Context, tx pgx.Tx, action domain.BloodUnitAction) error {
	return m.Called(ctx, tx, action).Error(0)
}

// --- Mock UserRepository (based on UserRepositoryFacade usage) ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) FindDonorsByBloodTypes(ctx context.Context, bloodTypes []domain.BloodType) ([]domain.User, error) {
	args := m.Called(ctx, bloodTypes)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) DeactivateUser(ctx context.Context, userID string, actorID string, now time.Time) error {
	return m.Called(ctx, userID, actorID, now).Error(0)
}

func (m *MockUserRepository) SetUserBloodTypeInTx(ctx context.Context, tx pgx.Tx, userID string, bloodType domain.BloodType, actorID string, now time.Time) error {
	return m.Called(ctx, tx, userID, bloodType, actorID, now).Error(0)
}

// --- Mock DonationRepository (based on DonationRepositoryWithTx usage) ---

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (m *MockDonationRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockDonationRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockDonationRepository) FindDonationByID(ctx context.Context, donationID string) (*domain.CampaignDonation, error) {
	args := m.Called(ctx, donationID)
	donation, _ := args.Get(0).(*domain.CampaignDonation)
	return donation, args.Error(1)
}

func (m *MockDonationRepository) ListDonationsByCampaign(ctx context.Context, campaignID string, limit int, nextToken *string) ([]domain.CampaignDonation, *string, error) {
	args := m.Called(ctx, campaignID, limit, nextToken)
	donations, _ := args.Get(0).([]domain.CampaignDonation)
	token, _ := args.Get(1).(*string)
	return donations, token, args.Error(2)
}

func (m *MockDonationRepository) ListDonationsByDonor(ctx context.Context, donorID string) ([]domain.CampaignDonation, error) {
	args := m.Called(ctx, donorID)
	donations, _ := args.Get(0).([]domain.CampaignDonation)
	return donations, args.Error(1)
}

func (m *MockDonationRepository) FindResultByDonationID(ctx context.Context, donationID string) (*domain.DonationResult, error) {
	args := m.Called(ctx, donationID)
	result, _ := args.Get(0).(*domain.DonationResult)
	return result, args.Error(1)
}

func (m *MockDonationRepository) ListLogsByDonation(ctx context.Context, donationID string) ([]domain.CampaignDonationLog, error) {
	args := m.Called(ctx, donationID)
	logs, _ := args.Get(0).([]domain.CampaignDonationLog)
	return logs, args.Error(1)
}

func (m *MockDonationRepository) SaveDonation(ctx context.Context, donation domain.CampaignDonation) error {
	return m.Called(ctx, donation).Error(0)
}

func (m *MockDonationRepository) SaveLog(ctx context.Context, log domain.CampaignDonationLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockDonationRepository) FindDonationByIDForUpdate(ctx context.Context, tx pgx.Tx, donationID string) (*domain.CampaignDonation, error) {
	args := m.Called(ctx, tx, donationID)
	donation, _ := args.Get(0).(*domain.CampaignDonation)
	return donation, args.Error(1)
}

func (m *MockDonationRepository) SaveDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error {
	return m.Called(ctx, tx, donation).Error(0)
}

func (m *MockDonationRepository) UpdateDonationInTx(ctx context.Context, tx pgx.Tx, donation domain.CampaignDonation) error {
	return m.Called(ctx, tx, donation).Error(0)
}

func (m *MockDonationRepository) FindResultByDonationIDInTx(ctx context.Context, tx pgx.Tx, donationID string) (*domain.DonationResult, error) {
	args := m.Called(ctx, tx, donationID)
	result, _ := args.Get(0).(*domain.DonationResult)
	return result, args.Error(1)
}

func (m *MockDonationRepository) SaveResultInTx(ctx context.Context, tx pgx.Tx, result domain.DonationResult) error {
	return m.Called(ctx, tx, result).Error(0)
}

func (m *MockDonationRepository) SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.CampaignDonationLog) error {
	return m.Called(ctx, tx, log).Error(0)
}

// --- Mock CampaignRepository (based on CampaignRepositoryFacade usage) ---

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) FindCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	args := m.Called(ctx, campaignID)
	campaign, _ := args.Get(0).(*domain.Campaign)
	return campaign, args.Error(1)
}

func (m *MockCampaignRepository) ListCampaigns(ctx context.Context, limit int, offset int) ([]domain.Campaign, error) {
	args := m.Called(ctx, limit, offset)
	campaigns, _ := args.Get(0).([]domain.Campaign)
	return campaigns, args.Error(1)
}

func (m *MockCampaignRepository) SaveCampaign(ctx context.Context, campaign domain.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}

func (m *MockCampaignRepository) UpdateCampaign(ctx context.Context, campaign domain.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}

// --- Mock EmergencyRepository (based on EmergencyRepositoryWithTx usage) ---

type MockEmergencyRepository struct {
	mock.Mock
}

func (m *MockEmergencyRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (m *MockEmergencyRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockEmergencyRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockEmergencyRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.EmergencyRequest, error) {
	args := m.Called(ctx, requestID)
	request, _ := args.Get(0).(*domain.EmergencyRequest)
	return request, args.Error(1)
}

func (m *MockEmergencyRepository) ListRequests(ctx context.Context, filter portsrepo.ListRequestsFilter, limit int, nextToken *string) ([]domain.EmergencyRequest, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	requests, _ := args.Get(0).([]domain.EmergencyRequest)
	token, _ := args.Get(1).(*string)
	return requests, token, args.Error(2)
}

func (m *MockEmergencyRepository) FindPendingByBloodType(ctx context.Context, bloodType domain.BloodType, component domain.ComponentType, requesterRole domain.UserRole) ([]domain.EmergencyRequest, error) {
	args := m.Called(ctx, bloodType, component, requesterRole)
	requests, _ := args.Get(0).([]domain.EmergencyRequest)
	return requests, args.Error(1)
}

func (m *MockEmergencyRepository) ListLogsByRequest(ctx context.Context, requestID string) ([]domain.EmergencyRequestLog, error) {
	args := m.Called(ctx, requestID)
	logs, _ := args.Get(0).([]domain.EmergencyRequestLog)
	return logs, args.Error(1)
}

func (m *MockEmergencyRepository) SaveRequest(ctx context.Context, request domain.EmergencyRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockEmergencyRepository) UpdateRequest(ctx context.Context, request domain.EmergencyRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockEmergencyRepository) SaveLog(ctx context.Context, log domain.EmergencyRequestLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockEmergencyRepository) FindRequestByIDForUpdate(ctx context.Context, tx pgx.Tx, requestID string) (*domain.EmergencyRequest, error) {
	args := m.Called(ctx, tx, requestID)
	request, _ := args.Get(0).(*domain.EmergencyRequest)
	return request, args.Error(1)
}

func (m *MockEmergencyRepository) SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error {
	return m.Called(ctx, tx, request).Error(0)
}

func (m *MockEmergencyRepository) UpdateRequestInTx(ctx context.Context, tx pgx.Tx, request domain.EmergencyRequest) error {
	return m.Called(ctx, tx, request).Error(0)
}

func (m *MockEmergencyRepository) SaveLogInTx(ctx context.Context, tx pgx.Tx, log domain.EmergencyRequestLog) error {
	return m.Called(ctx, tx, log).Error(0)
}

// --- Mock Notifier ---

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStatusChanged(ctx context.Context, event domain.StatusChangedEvent) {
	m.Called(ctx, event)
}

// noopNotifier is used where a test does not assert on notifications.
type noopNotifier struct{}

func (noopNotifier) NotifyStatusChanged(context.Context, domain.StatusChangedEvent) {}
