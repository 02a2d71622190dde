package iam

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Service implements the IAM service
type Service struct {
	config          *config.Config
	logger          *logger.Logger
	userRepo        interfaces.UserRepository
	passwordManager interfaces.PasswordManager
	metrics         *monitoring.MetricsCollector
}

// NewService creates a new IAM service instance
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	userRepo interfaces.UserRepository,
	passwordManager interfaces.PasswordManager,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		config:          cfg,
		logger:          log,
		userRepo:        userRepo,
		passwordManager: passwordManager,
		metrics:         metrics,
	}
}

// RegisterUser registers a new user account
func (s *Service) RegisterUser(req *types.UserRegistrationRequest) (*types.User, error) {
	s.logger.WithFields(map[string]interface{}{
		"email": req.Email,
		"role":  req.Role,
	}).Info("Registering new user")

	if err := s.validateRegistrationRequest(req); err != nil {
		return nil, err
	}

	if existingUser, _ := s.userRepo.GetByEmail(req.Email); existingUser != nil {
		return nil, types.NewConflictError(types.ErrCodeEmailExists, "An account with this email already exists")
	}

	passwordHash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.userRepo.Create(user, passwordHash); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered successfully")
	return user, nil
}

// AuthenticateUser authenticates a user and returns JWT tokens
func (s *Service) AuthenticateUser(credentials *types.Credentials) (*types.AuthToken, error) {
	user, err := s.userRepo.GetByEmail(credentials.Email)
	if err != nil {
		s.metrics.RecordAuthAttempt("password", "failure")
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidCredential, "Invalid email or password")
	}

	if !user.IsActive {
		s.metrics.RecordAuthAttempt("password", "failure")
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidCredential, "Account is inactive")
	}

	hash, err := s.userRepo.GetPasswordHash(credentials.Email)
	if err != nil {
		s.metrics.RecordAuthAttempt("password", "failure")
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidCredential, "Invalid email or password")
	}

	if err := s.passwordManager.VerifyPassword(credentials.Password, hash); err != nil {
		s.metrics.RecordAuthAttempt("password", "failure")
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidCredential, "Invalid email or password")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.metrics.RecordAuthAttempt("password", "success")
	s.logger.WithUserID(user.ID).Info("User authenticated successfully")

	return &types.AuthToken{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.JWT.AccessTokenTTL),
		IssuedAt:     time.Now(),
	}, nil
}

// RefreshToken refreshes an access token using a refresh token
func (s *Service) RefreshToken(refreshToken string) (*types.AuthToken, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.SecretKey), nil
	})

	if err != nil || !token.Valid {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType != "refresh" {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Not a refresh token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid user ID in token")
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "User not found")
	}

	if !user.IsActive {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Account is inactive")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &types.AuthToken{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.JWT.AccessTokenTTL),
		IssuedAt:    time.Now(),
	}, nil
}

// ValidateToken parses and validates an access token, returning its claims
func (s *Service) ValidateToken(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.SecretKey), nil
	})

	if err != nil || !token.Valid {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType == "refresh" {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Refresh token cannot be used for access")
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || role == "" {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims")
	}

	return &types.UserClaims{
		UserID: userID,
		Email:  email,
		Role:   types.UserRole(role),
	}, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(userID string) (*types.User, error) {
	return s.userRepo.GetByID(userID)
}

// WhoAmI resolves the identity behind an authenticated user ID
func (s *Service) WhoAmI(userID string) (*types.Identity, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	return &types.Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// ListUsersByRole lists users by role, restricted to staff and admin callers
func (s *Service) ListUsersByRole(role types.UserRole, requesterRole types.UserRole) ([]*types.User, error) {
	if requesterRole != types.RoleStaff && requesterRole != types.RoleAdmin {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only staff can list users")
	}

	if !types.ValidRole(role) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Unknown role", map[string]interface{}{
			"role": string(role),
		})
	}

	return s.userRepo.ListByRole(role)
}

// Helper methods

func (s *Service) validateRegistrationRequest(req *types.UserRegistrationRequest) error {
	if req.Email == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Email is required", nil)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid email address", nil)
	}
	if err := s.passwordManager.ValidatePasswordStrength(req.Password); err != nil {
		return err
	}
	if req.Role == "" {
		req.Role = types.RolePatient
	}
	if !types.ValidRole(req.Role) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Unknown role", map[string]interface{}{
			"role": string(req.Role),
		})
	}
	// Admin accounts are provisioned out of band, never self-registered
	if req.Role == types.RoleAdmin {
		return types.NewAuthorizationError(types.ErrCodeForbidden, "Cannot self-register an admin account")
	}
	return nil
}

func (s *Service) generateAccessToken(user *types.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"iss":     s.config.JWT.Issuer,
		"aud":     s.config.JWT.Audience,
		"exp":     time.Now().Add(time.Duration(s.config.JWT.AccessTokenTTL) * time.Second).Unix(),
		"iat":     time.Now().Unix(),
		"nbf":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWT.SecretKey))
}

func (s *Service) generateRefreshToken(user *types.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"type":    "refresh",
		"iss":     s.config.JWT.Issuer,
		"aud":     s.config.JWT.Audience,
		"exp":     time.Now().Add(time.Duration(s.config.JWT.RefreshTokenTTL) * time.Second).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWT.SecretKey))
}
