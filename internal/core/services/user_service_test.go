package services_test

import (
	"context"
	"testing"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/core/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  portssvc.UserSvcFacade
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewUserService(suite.mockRepo)
}

func (suite *UserServiceTestSuite) TestRegisterUser_Success() {
	ctx := context.Background()
	req := dto.RegisterUserRequest{
		Name:     "Ada",
		Email:    "Ada@Example.COM",
		Password: "correct-horse-battery",
	}

	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveUser", ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "ada@example.com" && u.Name == "Ada" && u.PasswordHash != "" && u.PasswordHash != req.Password
	})).Return(nil).Once()

	user, err := suite.service.RegisterUser(ctx, req)

	suite.Require().NoError(err)
	suite.Equal("ada@example.com", user.Email)
	suite.True(utils.CheckPasswordHash(req.Password, user.PasswordHash))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestRegisterUser_DuplicateEmail() {
	ctx := context.Background()
	existing := &domain.User{UserID: uuid.NewString(), Email: "ada@example.com"}

	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(existing, nil).Once()

	_, err := suite.service.RegisterUser(ctx, dto.RegisterUserRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "irrelevant-password",
	})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveUser")
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_Success() {
	ctx := context.Background()
	hash, err := utils.HashPassword("secret-password")
	suite.Require().NoError(err)
	user := &domain.User{UserID: uuid.NewString(), Email: "ada@example.com", PasswordHash: hash}

	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(user, nil).Once()

	got, err := suite.service.AuthenticateUser(ctx, "ada@example.com", "secret-password")

	suite.Require().NoError(err)
	suite.Equal(user.UserID, got.UserID)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_WrongPassword() {
	ctx := context.Background()
	hash, err := utils.HashPassword("secret-password")
	suite.Require().NoError(err)
	user := &domain.User{UserID: uuid.NewString(), Email: "ada@example.com", PasswordHash: hash}

	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(user, nil).Once()

	_, err = suite.service.AuthenticateUser(ctx, "ada@example.com", "wrong-password")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrInvalidCredentials)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_UnknownEmailSameError() {
	ctx := context.Background()

	suite.mockRepo.On("FindUserByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.AuthenticateUser(ctx, "ghost@example.com", "anything")

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrInvalidCredentials)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
