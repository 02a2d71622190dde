package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleDoctor  UserRole = "doctor"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r UserRole) bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User represents a system user. Doctor-specific fields (specialization,
// profile photo, on-call flag) are zero-valued for other roles.
type User struct {
	ID                     string    `json:"id" db:"id"`
	Email                  string    `json:"email" db:"email"`
	Role                   UserRole  `json:"role" db:"role"`
	FirstName              string    `json:"first_name" db:"first_name"`
	LastName               string    `json:"last_name" db:"last_name"`
	ContactNumber          string    `json:"contact_number" db:"contact_number"`
	Specialization         string    `json:"specialization,omitempty" db:"specialization"`
	SpecializationVerified bool      `json:"specialization_verified" db:"specialization_verified"`
	ProfilePhoto           string    `json:"profile_photo,omitempty" db:"profile_photo"`
	IsAvailableOnCall      bool      `json:"is_available_on_call" db:"is_available_on_call"`
	IsActive               bool      `json:"is_active" db:"is_active"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's display name, falling back to the email
// address when no name has been set.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PublicDoctor is the doctor shape exposed on unauthenticated endpoints.
type PublicDoctor struct {
	ID                     string `json:"id"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	Specialization         string `json:"specialization"`
	SpecializationVerified bool   `json:"specialization_verified"`
	ProfilePhoto           string `json:"profile_photo,omitempty"`
	IsAvailableOnCall      bool   `json:"is_available_on_call"`
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// UserRegistrationRequest represents user registration data
type UserRegistrationRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      UserRole `json:"role"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
}

// Credentials represents user login credentials
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Identity is the whoami response shape.
type Identity struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// ProfileUpdates represents a partial update to a doctor profile.
// Nil fields are left untouched.
type ProfileUpdates struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	ContactNumber  *string `json:"contact_number,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	ProfilePhoto   *string `json:"profile_photo,omitempty"`
}

// UserSearchCriteria represents search criteria for users. Query matches
// names and specializations case-insensitively.
type UserSearchCriteria struct {
	Query    string   `json:"q,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     UserRole `json:"role,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}
