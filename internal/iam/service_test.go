package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Mock implementations for testing

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *types.User, passwordHash string) error {
	args := m.Called(user, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*types.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*types.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetPasswordHash(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(id string, updates *types.ProfileUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) SetAvailableOnCall(id string, available bool) error {
	args := m.Called(id, available)
	return args.Error(0)
}

func (m *MockUserRepository) ListByRole(role types.UserRole) ([]*types.User, error) {
	args := m.Called(role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

func (m *MockUserRepository) SearchDoctors(criteria *types.UserSearchCriteria) ([]*types.User, error) {
	args := m.Called(criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

func (m *MockUserRepository) CountByRole(role types.UserRole) (int, error) {
	args := m.Called(role)
	return args.Int(0), args.Error(1)
}

// Test setup helper
func setupTestService() (*Service, *MockUserRepository) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret-key",
			AccessTokenTTL:  3600,
			RefreshTokenTTL: 86400,
			Issuer:          "test-issuer",
			Audience:        "test-audience",
		},
	}

	log := logger.New("debug")
	mockUserRepo := &MockUserRepository{}

	service := NewService(cfg, log, mockUserRepo, NewPasswordManager(), monitoring.NewMetricsCollector("iam-test"))
	return service, mockUserRepo
}

func TestService_RegisterUser(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:     "pat@example.com",
			Password:  "password123",
			Role:      types.RolePatient,
			FirstName: "Pat",
			LastName:  "Cruz",
		}

		mockUserRepo.On("GetByEmail", "pat@example.com").Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found"))
		mockUserRepo.On("Create", mock.AnythingOfType("*types.User"), mock.AnythingOfType("string")).Return(nil)

		user, err := service.RegisterUser(req)

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "pat@example.com", user.Email)
		assert.Equal(t, types.RolePatient, user.Role)
		assert.True(t, user.IsActive)
		assert.NotEmpty(t, user.ID)

		mockUserRepo.AssertExpectations(t)
	})

	t.Run("email already exists", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:    "taken@example.com",
			Password: "password123",
			Role:     types.RolePatient,
		}

		existingUser := &types.User{ID: "existing-id", Email: "taken@example.com"}
		mockUserRepo.On("GetByEmail", "taken@example.com").Return(existingUser, nil)

		user, err := service.RegisterUser(req)

		assert.Error(t, err)
		assert.Nil(t, user)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeConflict, clinicErr.Type)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		service, _ := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:    "pat@example.com",
			Password: "short",
			Role:     types.RolePatient,
		}

		user, err := service.RegisterUser(req)

		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("admin self-registration rejected", func(t *testing.T) {
		service, _ := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:    "admin@example.com",
			Password: "password123",
			Role:     types.RoleAdmin,
		}

		user, err := service.RegisterUser(req)

		assert.Error(t, err)
		assert.Nil(t, user)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})

	t.Run("role defaults to patient", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:    "norole@example.com",
			Password: "password123",
		}

		mockUserRepo.On("GetByEmail", "norole@example.com").Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found"))
		mockUserRepo.On("Create", mock.AnythingOfType("*types.User"), mock.AnythingOfType("string")).Return(nil)

		user, err := service.RegisterUser(req)

		assert.NoError(t, err)
		assert.Equal(t, types.RolePatient, user.Role)
	})
}

func TestService_AuthenticateUser(t *testing.T) {
	t.Run("successful authentication", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		pm := NewPasswordManager()
		hash, err := pm.HashPassword("password123")
		assert.NoError(t, err)

		user := &types.User{
			ID:       "user-id",
			Email:    "doc@example.com",
			Role:     types.RoleDoctor,
			IsActive: true,
		}

		mockUserRepo.On("GetByEmail", "doc@example.com").Return(user, nil)
		mockUserRepo.On("GetPasswordHash", "doc@example.com").Return(hash, nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "doc@example.com",
			Password: "password123",
		})

		assert.NoError(t, err)
		assert.NotNil(t, token)
		assert.NotEmpty(t, token.AccessToken)
		assert.NotEmpty(t, token.RefreshToken)
		assert.Equal(t, "Bearer", token.TokenType)

		mockUserRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		pm := NewPasswordManager()
		hash, _ := pm.HashPassword("correct-password1")

		user := &types.User{ID: "user-id", Email: "doc@example.com", IsActive: true}
		mockUserRepo.On("GetByEmail", "doc@example.com").Return(user, nil)
		mockUserRepo.On("GetPasswordHash", "doc@example.com").Return(hash, nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "doc@example.com",
			Password: "wrong-password1",
		})

		assert.Error(t, err)
		assert.Nil(t, token)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthentication, clinicErr.Type)
	})

	t.Run("unknown email", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		mockUserRepo.On("GetByEmail", "ghost@example.com").Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found"))

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "ghost@example.com",
			Password: "password123",
		})

		assert.Error(t, err)
		assert.Nil(t, token)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthentication, clinicErr.Type)
	})

	t.Run("inactive account", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		user := &types.User{ID: "user-id", Email: "gone@example.com", IsActive: false}
		mockUserRepo.On("GetByEmail", "gone@example.com").Return(user, nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "gone@example.com",
			Password: "password123",
		})

		assert.Error(t, err)
		assert.Nil(t, token)
	})
}

func TestService_TokenLifecycle(t *testing.T) {
	t.Run("access token validates and carries claims", func(t *testing.T) {
		service, _ := setupTestService()

		user := &types.User{
			ID:    "user-id",
			Email: "doc@example.com",
			Role:  types.RoleDoctor,
		}

		accessToken, err := service.generateAccessToken(user)
		assert.NoError(t, err)

		claims, err := service.ValidateToken(accessToken)
		assert.NoError(t, err)
		assert.Equal(t, "user-id", claims.UserID)
		assert.Equal(t, "doc@example.com", claims.Email)
		assert.Equal(t, types.RoleDoctor, claims.Role)
	})

	t.Run("refresh token rejected as access token", func(t *testing.T) {
		service, _ := setupTestService()

		user := &types.User{ID: "user-id", Email: "doc@example.com", Role: types.RoleDoctor}
		refreshToken, err := service.generateRefreshToken(user)
		assert.NoError(t, err)

		claims, err := service.ValidateToken(refreshToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("refresh issues new access token", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		user := &types.User{
			ID:       "user-id",
			Email:    "doc@example.com",
			Role:     types.RoleDoctor,
			IsActive: true,
		}

		refreshToken, err := service.generateRefreshToken(user)
		assert.NoError(t, err)

		mockUserRepo.On("GetByID", "user-id").Return(user, nil)

		token, err := service.RefreshToken(refreshToken)
		assert.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		assert.Empty(t, token.RefreshToken)
	})

	t.Run("access token rejected for refresh", func(t *testing.T) {
		service, _ := setupTestService()

		user := &types.User{ID: "user-id", Email: "doc@example.com", Role: types.RoleDoctor}
		accessToken, err := service.generateAccessToken(user)
		assert.NoError(t, err)

		token, err := service.RefreshToken(accessToken)
		assert.Error(t, err)
		assert.Nil(t, token)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		service, _ := setupTestService()

		claims, err := service.ValidateToken("not-a-token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestService_ListUsersByRole(t *testing.T) {
	t.Run("staff can list patients", func(t *testing.T) {
		service, mockUserRepo := setupTestService()

		patients := []*types.User{
			{ID: "p1", Email: "a@example.com", Role: types.RolePatient},
			{ID: "p2", Email: "b@example.com", Role: types.RolePatient},
		}
		mockUserRepo.On("ListByRole", types.RolePatient).Return(patients, nil)

		users, err := service.ListUsersByRole(types.RolePatient, types.RoleStaff)

		assert.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("patient cannot list users", func(t *testing.T) {
		service, _ := setupTestService()

		users, err := service.ListUsersByRole(types.RolePatient, types.RolePatient)

		assert.Error(t, err)
		assert.Nil(t, users)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		service, _ := setupTestService()

		users, err := service.ListUsersByRole(types.UserRole("wizard"), types.RoleStaff)

		assert.Error(t, err)
		assert.Nil(t, users)
	})
}

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManager()

	t.Run("hash then verify", func(t *testing.T) {
		hash, err := pm.HashPassword("sekret-pass1")
		assert.NoError(t, err)
		assert.NotEqual(t, "sekret-pass1", hash)

		assert.NoError(t, pm.VerifyPassword("sekret-pass1", hash))
		assert.Error(t, pm.VerifyPassword("wrong-pass1", hash))
	})

	t.Run("strength rules", func(t *testing.T) {
		assert.Error(t, pm.ValidatePasswordStrength("short"))
		assert.Error(t, pm.ValidatePasswordStrength("onlyletters"))
		assert.Error(t, pm.ValidatePasswordStrength("12345678"))
		assert.NoError(t, pm.ValidatePasswordStrength("letters123"))
	})
}
