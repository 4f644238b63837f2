package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/core/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/utils"
)

type UserServiceTestSuite struct {
	suite.Suite
	userRepo *MockUserRepository
	service  portssvc.UserSvcFacade
	ctx      context.Context
}

func (s *UserServiceTestSuite) SetupTest() {
	s.userRepo = new(MockUserRepository)
	s.service = services.NewUserService(s.userRepo)
	s.ctx = context.Background()
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) TestRegisterUserHashesPassword() {
	s.userRepo.On("SaveUser", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.PasswordHash != "s3cret-pass" && utils.CheckPasswordHash("s3cret-pass", u.PasswordHash)
	})).Return(nil)

	user, err := s.service.RegisterUser(s.ctx, dto.RegisterUserRequest{
		Name:     "An Nguyen",
		Email:    "an@example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleMember,
	})

	s.Require().NoError(err)
	s.Equal(domain.RoleMember, user.Role)
	s.True(user.IsActive)
}

func (s *UserServiceTestSuite) TestRegisterUserDuplicateEmail() {
	s.userRepo.On("SaveUser", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicate)

	_, err := s.service.RegisterUser(s.ctx, dto.RegisterUserRequest{
		Name:     "An Nguyen",
		Email:    "an@example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleMember,
	})

	s.ErrorIs(err, apperrors.ErrDuplicate)
}

func (s *UserServiceTestSuite) TestAuthenticateUser() {
	hash, err := utils.HashPassword("s3cret-pass")
	s.Require().NoError(err)
	stored := &domain.User{UserID: "user-1", Email: "an@example.com", PasswordHash: hash, IsActive: true}
	s.userRepo.On("FindUserByEmail", mock.Anything, "an@example.com").Return(stored, nil)

	user, err := s.service.AuthenticateUser(s.ctx, "an@example.com", "s3cret-pass")

	s.Require().NoError(err)
	s.Equal("user-1", user.UserID)
}

func (s *UserServiceTestSuite) TestAuthenticateUserWrongPassword() {
	hash, err := utils.HashPassword("s3cret-pass")
	s.Require().NoError(err)
	stored := &domain.User{UserID: "user-1", PasswordHash: hash, IsActive: true}
	s.userRepo.On("FindUserByEmail", mock.Anything, "an@example.com").Return(stored, nil)

	_, err = s.service.AuthenticateUser(s.ctx, "an@example.com", "wrong-pass")

	s.ErrorIs(err, services.ErrInvalidCredentials)
}

func (s *UserServiceTestSuite) TestAuthenticateUserUnknownEmail() {
	s.userRepo.On("FindUserByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.ErrNotFound)

	_, err := s.service.AuthenticateUser(s.ctx, "nobody@example.com", "whatever-pass")

	// Unknown email and wrong password must be indistinguishable.
	s.ErrorIs(err, services.ErrInvalidCredentials)
}

func (s *UserServiceTestSuite) TestAuthenticateUserDeactivated() {
	hash, err := utils.HashPassword("s3cret-pass")
	s.Require().NoError(err)
	stored := &domain.User{UserID: "user-1", PasswordHash: hash, IsActive: false}
	s.userRepo.On("FindUserByEmail", mock.Anything, "an@example.com").Return(stored, nil)

	_, err = s.service.AuthenticateUser(s.ctx, "an@example.com", "s3cret-pass")

	s.ErrorIs(err, services.ErrInvalidCredentials)
}

func (s *UserServiceTestSuite) TestUpdateUserSelfOnly() {
	_, err := s.service.UpdateUser(s.ctx, "user-1", dto.UpdateUserRequest{}, "user-2")

	s.ErrorIs(err, apperrors.ErrForbidden)
	s.userRepo.AssertNotCalled(s.T(), "UpdateUser", mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestDeactivateUserRequiresAdminForOthers() {
	staff := &domain.User{UserID: "staff-1", Role: domain.RoleStaff, IsActive: true}
	s.userRepo.On("FindUserByID", mock.Anything, "staff-1").Return(staff, nil)

	err := s.service.DeactivateUser(s.ctx, "user-1", "staff-1")

	s.ErrorIs(err, apperrors.ErrForbidden)
	s.userRepo.AssertNotCalled(s.T(), "DeactivateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestDeactivateUserAsAdmin() {
	admin := &domain.User{UserID: "admin-1", Role: domain.RoleAdmin, IsActive: true}
	s.userRepo.On("FindUserByID", mock.Anything, "admin-1").Return(admin, nil)
	s.userRepo.On("DeactivateUser", mock.Anything, "user-1", "admin-1", mock.Anything).Return(nil)

	err := s.service.DeactivateUser(s.ctx, "user-1", "admin-1")

	s.Require().NoError(err)
}
