package interfaces

import (
	"github.com/KentSpendy/BukCare/pkg/types"
)

// IAMService defines the interface for identity and access management
type IAMService interface {
	// User management
	RegisterUser(req *types.UserRegistrationRequest) (*types.User, error)
	GetUser(userID string) (*types.User, error)
	ListUsersByRole(role types.UserRole, requesterRole types.UserRole) ([]*types.User, error)

	// Authentication
	AuthenticateUser(credentials *types.Credentials) (*types.AuthToken, error)
	RefreshToken(token string) (*types.AuthToken, error)
	ValidateToken(token string) (*types.UserClaims, error)

	// WhoAmI resolves the identity behind an access token
	WhoAmI(userID string) (*types.Identity, error)
}

// UserRepository defines the interface for user data persistence
type UserRepository interface {
	Create(user *types.User, passwordHash string) error
	GetByID(id string) (*types.User, error)
	GetByEmail(email string) (*types.User, error)
	GetPasswordHash(email string) (string, error)
	UpdateProfile(id string, updates *types.ProfileUpdates) error
	SetAvailableOnCall(id string, available bool) error
	ListByRole(role types.UserRole) ([]*types.User, error)
	SearchDoctors(criteria *types.UserSearchCriteria) ([]*types.User, error)
	CountByRole(role types.UserRole) (int, error)
}

// PasswordManager defines the interface for password operations
type PasswordManager interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) error
	ValidatePasswordStrength(password string) error
}
