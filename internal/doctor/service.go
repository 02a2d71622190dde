package doctor

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

const dateLayout = "2006-01-02"

// Service implements the doctor portal: profile management, the public
// directory, on-call presence and the dashboard summary.
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	users      interfaces.UserRepository
	scheduling interfaces.SchedulingRepository
	media      interfaces.MediaUploader
	presence   interfaces.PresenceStore
	metrics    *monitoring.MetricsCollector
	now        func() time.Time
}

// NewService creates a new doctor service
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	users interfaces.UserRepository,
	scheduling interfaces.SchedulingRepository,
	media interfaces.MediaUploader,
	presence interfaces.PresenceStore,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		config:     cfg,
		logger:     log,
		users:      users,
		scheduling: scheduling,
		media:      media,
		presence:   presence,
		metrics:    metrics,
		now:        time.Now,
	}
}

// GetProfile retrieves a doctor's own profile
func (s *Service) GetProfile(doctorID string) (*types.User, error) {
	return s.requireDoctor(doctorID)
}

// UpdateProfile applies a partial profile update. A changed specialization
// drops its verified flag until staff re-verify it.
func (s *Service) UpdateProfile(doctorID string, updates *types.ProfileUpdates) (*types.User, error) {
	if _, err := s.requireDoctor(doctorID); err != nil {
		return nil, err
	}

	if updates.Specialization != nil && len(*updates.Specialization) > 120 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Specialization is too long", nil)
	}

	if err := s.users.UpdateProfile(doctorID, updates); err != nil {
		return nil, err
	}

	return s.users.GetByID(doctorID)
}

// UploadProfilePhoto pushes the image to the external media host and stores
// the returned URL. The profile is only touched once the upload succeeded.
func (s *Service) UploadProfilePhoto(ctx context.Context, doctorID, filename string, photo io.Reader) (*types.User, error) {
	if _, err := s.requireDoctor(doctorID); err != nil {
		return nil, err
	}

	url, err := s.media.Upload(ctx, filename, photo)
	if err != nil {
		s.logger.WithError(err).WithField("doctor_id", doctorID).Error("Profile photo upload failed")
		return nil, err
	}

	if err := s.users.UpdateProfile(doctorID, &types.ProfileUpdates{ProfilePhoto: &url}); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"doctor_id": doctorID,
		"photo_url": url,
	}).Info("Profile photo updated")

	return s.users.GetByID(doctorID)
}

// GetPublicProfile returns the public shape of one doctor, with the on-call
// flag taken from the live presence store.
func (s *Service) GetPublicProfile(doctorID string) (*types.PublicDoctor, error) {
	user, err := s.requireDoctor(doctorID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doc := publicDoctor(user)
	doc.IsAvailableOnCall = s.liveOnCall(ctx, user.ID, user.IsAvailableOnCall)
	return doc, nil
}

// SearchPublicDoctors searches the public directory by name or specialization
func (s *Service) SearchPublicDoctors(query string) ([]*types.PublicDoctor, error) {
	users, err := s.users.SearchDoctors(&types.UserSearchCriteria{
		Query: query,
		Role:  types.RoleDoctor,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doctors := make([]*types.PublicDoctor, 0, len(users))
	for _, user := range users {
		doc := publicDoctor(user)
		doc.IsAvailableOnCall = s.liveOnCall(ctx, user.ID, user.IsAvailableOnCall)
		doctors = append(doctors, doc)
	}
	return doctors, nil
}

// liveOnCall reads the presence store; a store failure falls back to the
// database flag so the directory keeps working when Redis is down.
func (s *Service) liveOnCall(ctx context.Context, doctorID string, fallback bool) bool {
	online, err := s.presence.IsOnline(ctx, doctorID)
	if err != nil {
		s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Presence lookup failed")
		return fallback
	}
	return online
}

// ToggleAvailableOnCall flips the doctor's on-call flag and mirrors it in
// the presence store. Returns the new state.
func (s *Service) ToggleAvailableOnCall(doctorID string) (bool, error) {
	user, err := s.requireDoctor(doctorID)
	if err != nil {
		return false, err
	}

	available := !user.IsAvailableOnCall
	if err := s.users.SetAvailableOnCall(doctorID, available); err != nil {
		return false, err
	}

	// Presence is best-effort; the database flag is authoritative
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var presenceErr error
	if available {
		presenceErr = s.presence.SetOnline(ctx, doctorID)
	} else {
		presenceErr = s.presence.SetOffline(ctx, doctorID)
	}
	if presenceErr != nil {
		s.logger.WithError(presenceErr).WithField("doctor_id", doctorID).Warn("Failed to update presence store")
	}

	return available, nil
}

// Logout clears the doctor's on-call state so a doctor who signs off never
// lingers as available. Presence store failures do not block the logout.
func (s *Service) Logout(ctx context.Context, doctorID string) error {
	if err := s.users.SetAvailableOnCall(doctorID, false); err != nil {
		return err
	}

	if err := s.presence.SetOffline(ctx, doctorID); err != nil {
		s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Failed to clear presence on logout")
	}

	s.logger.Audit(doctorID, "logout", "presence", true, nil)
	return nil
}

// GetPatientSummaries groups the doctor's appointments by patient, one
// roll-up per distinct patient the doctor has seen.
func (s *Service) GetPatientSummaries(doctorID string) ([]*types.PatientSummary, error) {
	if _, err := s.requireDoctor(doctorID); err != nil {
		return nil, err
	}

	appointments, err := s.scheduling.GetAppointments(&types.AppointmentFilters{DoctorID: doctorID})
	if err != nil {
		return nil, err
	}

	byPatient := make(map[string]*types.PatientSummary)
	var summaries []*types.PatientSummary
	for _, apt := range appointments {
		summary, ok := byPatient[apt.PatientID]
		if !ok {
			summary = &types.PatientSummary{
				PatientID:    apt.PatientID,
				PatientEmail: apt.PatientEmail,
			}
			byPatient[apt.PatientID] = summary
			summaries = append(summaries, summary)
		}
		summary.Appointments = append(summary.Appointments, apt)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PatientEmail < summaries[j].PatientEmail
	})
	return summaries, nil
}

// GetDashboardOverview assembles the doctor dashboard counters
func (s *Service) GetDashboardOverview(doctorID string) (*types.DashboardOverview, error) {
	if _, err := s.requireDoctor(doctorID); err != nil {
		return nil, err
	}

	today := s.now().Format(dateLayout)
	todays, err := s.scheduling.CountAppointmentsOnDate(doctorID, today,
		[]types.AppointmentStatus{types.StatusApproved})
	if err != nil {
		return nil, err
	}

	pending, err := s.scheduling.CountAppointmentsByStatus(doctorID, types.StatusPending)
	if err != nil {
		return nil, err
	}

	unread, err := s.scheduling.CountUnreadNotifications(doctorID)
	if err != nil {
		return nil, err
	}

	patients, err := s.users.CountByRole(types.RolePatient)
	if err != nil {
		return nil, err
	}

	return &types.DashboardOverview{
		TodaysAppointments:  todays,
		PendingRequests:     pending,
		UnreadNotifications: unread,
		TotalPatients:       patients,
	}, nil
}

// requireDoctor loads the user and checks it is an active doctor
func (s *Service) requireDoctor(doctorID string) (*types.User, error) {
	user, err := s.users.GetByID(doctorID)
	if err != nil {
		return nil, err
	}
	if user.Role != types.RoleDoctor || !user.IsActive {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found")
	}
	return user, nil
}

func publicDoctor(user *types.User) *types.PublicDoctor {
	return &types.PublicDoctor{
		ID:                     user.ID,
		FirstName:              user.FirstName,
		LastName:               user.LastName,
		Specialization:         user.Specialization,
		SpecializationVerified: user.SpecializationVerified,
		ProfilePhoto:           user.ProfilePhoto,
		IsAvailableOnCall:      user.IsAvailableOnCall,
	}
}
