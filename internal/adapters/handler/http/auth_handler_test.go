package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, query, excludingUserID string, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, query, excludingUserID, limit)
	return args.Get(0).([]*domain.User), args.Error(1)
}

func setupHandler() (*gin.Engine, *MockUserRepository) {
	gin.SetMode(gin.TestMode)

	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo)
	tokenService := services.NewTokenService("auth-handler-secret-key", "kanso-test", time.Hour, mockRepo)
	authHandler := NewAuthHandler(authService, tokenService)

	router := gin.New()
	authHandler.RegisterRoutes(router.Group(""))

	return router, mockRepo
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success: Should return 201 and created user (No Password)", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "api_test@kanso.app",
			"username": "api_test",
			"password": "PasswordSuperSegreta1!",
		}
		body, _ := json.Marshal(payload)

		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response userResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, payload["email"], response.Email)
		assert.Equal(t, payload["username"], response.Username)
		assert.NotEmpty(t, response.ID)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Fail: Invalid username", func(t *testing.T) {
		router, mockRepo := setupHandler()

		body, _ := json.Marshal(map[string]string{
			"email":    "x@kanso.app",
			"username": "no spaces allowed",
			"password": "PasswordSuperSegreta1!",
		})

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Fail: Username taken", func(t *testing.T) {
		router, mockRepo := setupHandler()

		body, _ := json.Marshal(map[string]string{
			"email":    "taken@kanso.app",
			"username": "taken",
			"password": "PasswordSuperSegreta1!",
		})
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrUsernameTaken)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Fail: Storage error is hidden", func(t *testing.T) {
		router, mockRepo := setupHandler()

		body, _ := json.Marshal(map[string]string{
			"email":    "db@kanso.app",
			"username": "dbdown",
			"password": "PasswordSuperSegreta1!",
		})
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("Unknown email is 401", func(t *testing.T) {
		router, mockRepo := setupHandler()
		mockRepo.On("GetByEmail", mock.Anything, "ghost@kanso.app").Return(nil, domain.ErrUserNotFound)

		body, _ := json.Marshal(map[string]string{"email": "ghost@kanso.app", "password": "whatever1"})
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid credentials return a token", func(t *testing.T) {
		router, mockRepo := setupHandler()

		user, _ := domain.NewUser("user-1", "ok@kanso.app", "okuser", "")
		_ = user.SetPassword("PasswordSuperSegreta1!")
		mockRepo.On("GetByEmail", mock.Anything, "ok@kanso.app").Return(user, nil)

		body, _ := json.Marshal(map[string]string{"email": "ok@kanso.app", "password": "PasswordSuperSegreta1!"})
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response loginResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "user-1", response.User.ID)
		assert.True(t, response.ExpiresAt.After(time.Now()))
	})
}
