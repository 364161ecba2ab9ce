package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// --- Mock MemberService ---
type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) OnboardMember(ctx context.Context, req dto.OnboardMemberRequest, creatorUserID string) (*domain.Member, *domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Member), args.Get(1).(*domain.Account), args.Error(2)
}

func (m *MockMemberService) GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

var _ portssvc.MemberSvcFacade = (*MockMemberService)(nil)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccountsByMember(ctx context.Context, memberID string) ([]domain.Account, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) CloseAccount(ctx context.Context, accountID string, userID string) error {
	args := m.Called(ctx, accountID, userID)
	return args.Error(0)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Test Suite ---
type MemberHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockMemberService  *MockMemberService
	mockAccountService *MockAccountService
	jwtSecret          string
}

// generateTestToken creates a dummy JWT for testing.
func (suite *MemberHandlerTestSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "coopcore-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signedString
}

func (suite *MemberHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockMemberService = new(MockMemberService)
	suite.mockAccountService = new(MockAccountService)

	v1 := suite.router.Group("/api/v1")
	registerMemberRoutes(v1, suite.mockMemberService, suite.mockAccountService)
}

// --- Test Cases ---

func (suite *MemberHandlerTestSuite) TestOnboardMember_Success() {
	requestingUserID := uuid.NewString()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	now := time.Now().UTC()

	reqBody := dto.OnboardMemberRequest{
		Name:         "Amina Otieno",
		Email:        "amina@example.com",
		CurrencyCode: "KES",
	}
	member := &domain.Member{
		MemberID:    memberID,
		Name:        reqBody.Name,
		Email:       reqBody.Email,
		Status:      domain.MemberStatusActive,
		AuditFields: domain.NewAuditFields(requestingUserID, now),
	}
	account := &domain.Account{
		AccountID:        accountID,
		MemberID:         memberID,
		AccountType:      domain.AccountTypeSavings,
		CurrencyCode:     "KES",
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           domain.AccountStatusActive,
		AuditFields:      domain.NewAuditFields(requestingUserID, now),
	}

	suite.mockMemberService.On("OnboardMember",
		mock.AnythingOfType("*context.valueCtx"),
		reqBody,
		requestingUserID, // Expect the user ID from the token
	).Return(member, account, nil).Once()

	body, _ := json.Marshal(reqBody)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/members", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(requestingUserID))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)

	var responseBody dto.OnboardMemberResponse
	err := json.Unmarshal(w.Body.Bytes(), &responseBody)
	suite.NoError(err, "Failed to unmarshal response body")
	suite.Equal(memberID, responseBody.Member.MemberID)
	suite.Equal(accountID, responseBody.Account.AccountID)
	suite.Equal(memberID, responseBody.Account.MemberID)

	suite.mockMemberService.AssertExpectations(suite.T())
	suite.mockAccountService.AssertNotCalled(suite.T(), "ListAccountsByMember", mock.Anything, mock.Anything)
}

func (suite *MemberHandlerTestSuite) TestOnboardMember_DuplicateEmailReturnsConflict() {
	requestingUserID := uuid.NewString()
	reqBody := dto.OnboardMemberRequest{
		Name:         "Amina Otieno",
		Email:        "amina@example.com",
		CurrencyCode: "KES",
	}

	suite.mockMemberService.On("OnboardMember",
		mock.AnythingOfType("*context.valueCtx"),
		reqBody,
		requestingUserID,
	).Return(nil, nil, apperrors.NewConflictError("email already registered")).Once()

	body, _ := json.Marshal(reqBody)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/members", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(requestingUserID))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusConflict, w.Code)
	suite.mockMemberService.AssertExpectations(suite.T())
}

func (suite *MemberHandlerTestSuite) TestOnboardMember_MissingTokenIsUnauthorized() {
	body, _ := json.Marshal(dto.OnboardMemberRequest{
		Name:         "Amina Otieno",
		Email:        "amina@example.com",
		CurrencyCode: "KES",
	})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/members", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockMemberService.AssertNotCalled(suite.T(), "OnboardMember", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MemberHandlerTestSuite) TestGetMember_NotFound() {
	memberID := uuid.NewString()

	suite.mockMemberService.On("GetMemberByID",
		mock.AnythingOfType("*context.valueCtx"),
		memberID,
	).Return(nil, apperrors.NewNotFoundError("member not found")).Once()

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/members/%s", memberID), nil)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(uuid.NewString()))

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mockMemberService.AssertExpectations(suite.T())
}

func (suite *MemberHandlerTestSuite) TestListMemberAccounts_Success() {
	memberID := uuid.NewString()
	now := time.Now().UTC()

	suite.mockMemberService.On("GetMemberByID",
		mock.AnythingOfType("*context.valueCtx"),
		memberID,
	).Return(&domain.Member{
		MemberID: memberID,
		Status:   domain.MemberStatusActive,
	}, nil).Once()
	suite.mockAccountService.On("ListAccountsByMember",
		mock.AnythingOfType("*context.valueCtx"),
		memberID,
	).Return([]domain.Account{
		{
			AccountID:        uuid.NewString(),
			MemberID:         memberID,
			AccountType:      domain.AccountTypeSavings,
			CurrencyCode:     "KES",
			CurrentBalance:   decimal.NewFromInt(500),
			AvailableBalance: decimal.NewFromInt(500),
			Status:           domain.AccountStatusActive,
			AuditFields:      domain.NewAuditFields(memberID, now),
		},
		{
			AccountID:        uuid.NewString(),
			MemberID:         memberID,
			AccountType:      domain.AccountTypeLoan,
			CurrencyCode:     "KES",
			CurrentBalance:   decimal.NewFromInt(1200),
			AvailableBalance: decimal.NewFromInt(1200),
			Status:           domain.AccountStatusActive,
			AuditFields:      domain.NewAuditFields(memberID, now),
		},
	}, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/members/%s/accounts", memberID), nil)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(uuid.NewString()))

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var responseBody dto.ListAccountsResponse
	err := json.Unmarshal(w.Body.Bytes(), &responseBody)
	suite.NoError(err, "Failed to unmarshal response body")
	suite.Len(responseBody.Accounts, 2)

	suite.mockMemberService.AssertExpectations(suite.T())
	suite.mockAccountService.AssertExpectations(suite.T())
}

// --- Run Test Suite ---
func TestMemberHandler(t *testing.T) {
	suite.Run(t, new(MemberHandlerTestSuite))
}
