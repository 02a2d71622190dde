package interfaces

import (
	"context"
	"io"

	"github.com/KentSpendy/BukCare/pkg/types"
)

// DoctorService defines the interface for the doctor portal surface
type DoctorService interface {
	// Profile
	GetProfile(doctorID string) (*types.User, error)
	UpdateProfile(doctorID string, updates *types.ProfileUpdates) (*types.User, error)
	UploadProfilePhoto(ctx context.Context, doctorID, filename string, photo io.Reader) (*types.User, error)

	// Public directory
	GetPublicProfile(doctorID string) (*types.PublicDoctor, error)
	SearchPublicDoctors(query string) ([]*types.PublicDoctor, error)

	// On-call presence
	ToggleAvailableOnCall(doctorID string) (bool, error)
	Logout(ctx context.Context, doctorID string) error

	// Dashboard and reporting
	GetDashboardOverview(doctorID string) (*types.DashboardOverview, error)
	GetPatientSummaries(doctorID string) ([]*types.PatientSummary, error)
}

// MediaUploader defines the interface for pushing images to the external media host
type MediaUploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// PresenceStore defines the interface for the on-call presence backend
type PresenceStore interface {
	SetOnline(ctx context.Context, doctorID string) error
	SetOffline(ctx context.Context, doctorID string) error
	IsOnline(ctx context.Context, doctorID string) (bool, error)
}
