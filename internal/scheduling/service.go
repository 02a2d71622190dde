package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// Recurring slot creation is bounded so a typo in repeat_until cannot
	// flood the calendar.
	maxSeriesLength = 52
)

// Service implements the scheduling service
type Service struct {
	config  *config.Config
	logger  *logger.Logger
	repo    interfaces.SchedulingRepository
	metrics *monitoring.MetricsCollector
	now     func() time.Time
}

// NewService creates a new scheduling service
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo interfaces.SchedulingRepository,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		config:  cfg,
		logger:  log,
		repo:    repo,
		metrics: metrics,
		now:     time.Now,
	}
}

// CreateAvailability creates one slot, or a recurring series when a repeat
// cadence is given. The series is stored atomically.
func (s *Service) CreateAvailability(req *types.AvailabilityRequest, actor *types.UserClaims) ([]*types.Availability, error) {
	if actor.Role != types.RoleDoctor {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors can manage availability")
	}

	if err := validateSlotTimes(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	dates, err := expandRecurrence(req.Date, req.Repeat, req.RepeatUntil)
	if err != nil {
		return nil, err
	}

	slots := make([]*types.Availability, 0, len(dates))
	for _, date := range dates {
		slots = append(slots, &types.Availability{
			ID:        uuid.New().String(),
			DoctorID:  actor.UserID,
			Date:      date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			CreatedAt: s.now(),
		})
	}

	if err := s.repo.CreateAvailabilities(slots); err != nil {
		return nil, err
	}

	return slots, nil
}

// GetAvailabilities lists open slots. Doctors default to their own schedule;
// patients and staff see every doctor's slots unless they filter by doctor.
func (s *Service) GetAvailabilities(doctorID string, actor *types.UserClaims) ([]*types.Availability, error) {
	if doctorID == "" && actor.Role == types.RoleDoctor {
		doctorID = actor.UserID
	}

	return s.repo.GetAvailabilitiesByDoctor(doctorID)
}

// UpdateAvailability moves a slot; booked appointments follow it and a
// reschedule record is written for each.
func (s *Service) UpdateAvailability(slotID string, req *types.AvailabilityRequest, actor *types.UserClaims) (*types.Availability, error) {
	slot, err := s.repo.GetAvailabilityByID(slotID)
	if err != nil {
		return nil, err
	}

	if err := s.requireSlotOwner(slot, actor); err != nil {
		return nil, err
	}

	if err := validateSlotTimes(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	slot.Date = req.Date
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime

	if err := s.repo.UpdateAvailability(slotID, slot); err != nil {
		return nil, err
	}

	return slot, nil
}

// DeleteAvailability removes an unbooked slot
func (s *Service) DeleteAvailability(slotID string, actor *types.UserClaims) error {
	slot, err := s.repo.GetAvailabilityByID(slotID)
	if err != nil {
		return err
	}

	if err := s.requireSlotOwner(slot, actor); err != nil {
		return err
	}

	return s.repo.DeleteAvailability(slotID)
}

// BookAppointment books a slot for the calling patient. The booking starts
// pending and untriaged; the doctor is notified.
func (s *Service) BookAppointment(req *types.BookingRequest, actor *types.UserClaims) (*types.Appointment, error) {
	if actor.Role != types.RolePatient {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only patients can book appointments")
	}

	if req.AvailabilityID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "An availability slot is required", nil)
	}

	slot, err := s.repo.GetAvailabilityByID(req.AvailabilityID)
	if err != nil {
		return nil, err
	}

	if taken, err := s.repo.SlotHasActiveAppointment(slot.ID); err != nil {
		return nil, err
	} else if taken {
		s.metrics.RecordBooking("conflict")
		return nil, types.NewConflictError(types.ErrCodeSlotTaken, "This slot has already been booked")
	}

	apt := &types.Appointment{
		ID:             uuid.New().String(),
		PatientID:      actor.UserID,
		DoctorID:       slot.DoctorID,
		AvailabilityID: slot.ID,
		Date:           slot.Date,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Status:         types.StatusPending,
		TriageStatus:   types.TriageNone,
		Reason:         req.Reason,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}

	if err := s.repo.CreateAppointment(apt); err != nil {
		s.metrics.RecordBooking("failure")
		return nil, err
	}

	s.metrics.RecordBooking("success")
	s.notifyDoctor(slot.DoctorID, fmt.Sprintf("New appointment request from %s for %s at %s",
		actor.Email, slot.Date, slot.StartTime))

	return s.repo.GetAppointmentByID(apt.ID)
}

// GetAppointments lists appointments scoped to the caller's role. Patients
// see their own, doctors see their own schedule, staff see everything.
func (s *Service) GetAppointments(filters *types.AppointmentFilters, actor *types.UserClaims) ([]*types.Appointment, error) {
	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	switch actor.Role {
	case types.RolePatient:
		filters.PatientID = actor.UserID
	case types.RoleDoctor:
		filters.DoctorID = actor.UserID
	case types.RoleStaff, types.RoleAdmin:
		// staff may filter freely
	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Unknown role")
	}

	return s.repo.GetAppointments(filters)
}

// GetAppointmentDetail retrieves an appointment with its reschedule history.
// Only the appointed doctor may read it.
func (s *Service) GetAppointmentDetail(aptID string, actor *types.UserClaims) (*types.AppointmentDetail, error) {
	apt, err := s.repo.GetAppointmentByID(aptID)
	if err != nil {
		return nil, err
	}

	if actor.Role != types.RoleDoctor || apt.DoctorID != actor.UserID {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to view this appointment")
	}

	records, err := s.repo.GetRescheduleRecords(aptID)
	if err != nil {
		return nil, err
	}

	return &types.AppointmentDetail{
		Appointment: *apt,
		Reschedules: records,
	}, nil
}

// UpdateAppointment applies a status or triage change, enforcing the
// appointment lifecycle and the caller's role.
func (s *Service) UpdateAppointment(aptID string, updates *types.AppointmentUpdates, actor *types.UserClaims) (*types.Appointment, error) {
	apt, err := s.repo.GetAppointmentByID(aptID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeUpdate(apt, updates, actor); err != nil {
		return nil, err
	}

	newStatus := apt.Status
	if updates.Status != nil {
		if err := validateStatusTransition(apt.Status, *updates.Status); err != nil {
			return nil, err
		}
		newStatus = *updates.Status
	}

	if updates.TriageStatus != nil {
		if newStatus != types.StatusApproved {
			return nil, types.NewValidationError(types.ErrCodeBadTransition,
				"Triage applies only to approved appointments", nil)
		}
		if err := validateTriageTransition(apt.TriageStatus, *updates.TriageStatus); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateAppointment(aptID, updates); err != nil {
		return nil, err
	}

	if updates.Status != nil && *updates.Status != apt.Status {
		s.metrics.RecordAppointmentTransition(string(apt.Status), string(*updates.Status))

		if *updates.Status == types.StatusCancelled && actor.Role == types.RolePatient {
			s.notifyDoctor(apt.DoctorID, fmt.Sprintf("Appointment on %s at %s was cancelled by the patient",
				apt.Date, apt.StartTime))
		}
	}

	return s.repo.GetAppointmentByID(aptID)
}

// RescheduleAppointment moves a live appointment onto another of the same
// doctor's slots.
func (s *Service) RescheduleAppointment(aptID, availabilityID string, actor *types.UserClaims) (*types.Appointment, error) {
	apt, err := s.repo.GetAppointmentByID(aptID)
	if err != nil {
		return nil, err
	}

	if actor.Role == types.RolePatient ||
		(actor.Role == types.RoleDoctor && apt.DoctorID != actor.UserID) {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to reschedule this appointment")
	}

	if apt.Status != types.StatusPending && apt.Status != types.StatusApproved {
		return nil, types.NewValidationError(types.ErrCodeBadTransition,
			"Only pending or approved appointments can be rescheduled", nil)
	}

	slot, err := s.repo.GetAvailabilityByID(availabilityID)
	if err != nil {
		return nil, err
	}

	if slot.DoctorID != apt.DoctorID {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			"The new slot belongs to a different doctor", nil)
	}

	record := &types.RescheduleRecord{
		ID:                uuid.New().String(),
		AppointmentID:     apt.ID,
		PreviousDate:      apt.Date,
		PreviousStartTime: apt.StartTime,
		PreviousEndTime:   apt.EndTime,
		ChangedAt:         s.now(),
	}

	if err := s.repo.RescheduleAppointment(aptID, slot, record); err != nil {
		return nil, err
	}

	return s.repo.GetAppointmentByID(aptID)
}

// GetQueue returns the live consultation queue for a doctor's day. When the
// caller does not name a triage subset, doctors see waiting and in-consultation
// patients while staff see every approved appointment of the day.
func (s *Service) GetQueue(doctorID string, triage []types.TriageStatus, actor *types.UserClaims) ([]*types.QueueEntry, error) {
	switch actor.Role {
	case types.RoleDoctor:
		doctorID = actor.UserID
		if triage == nil {
			triage = DefaultDoctorQueueTriage
		}
	case types.RoleStaff, types.RoleAdmin:
		if doctorID == "" {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "A doctor must be specified", nil)
		}
	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors and staff can view the queue")
	}

	today := s.now().Format(dateLayout)
	appointments, err := s.repo.GetAppointments(&types.AppointmentFilters{
		DoctorID: doctorID,
		Status:   types.StatusApproved,
		Date:     today,
	})
	if err != nil {
		return nil, err
	}

	queue := BuildQueue(appointments, triage)
	s.metrics.SetQueueLength(doctorID, len(queue))
	return queue, nil
}

// GetHistory returns concluded appointments for the caller: cancelled or
// declined bookings plus approved ones whose consultation finished.
func (s *Service) GetHistory(actor *types.UserClaims) ([]*types.Appointment, error) {
	appointments, err := s.GetAppointments(&types.AppointmentFilters{}, actor)
	if err != nil {
		return nil, err
	}

	var history []*types.Appointment
	for _, apt := range appointments {
		if isConcluded(apt) {
			history = append(history, apt)
		}
	}
	return history, nil
}

// ExportHistoryCSV renders a doctor's concluded appointments as CSV
func (s *Service) ExportHistoryCSV(actor *types.UserClaims) ([]byte, error) {
	if actor.Role != types.RoleDoctor {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors can export history")
	}

	history, err := s.GetHistory(actor)
	if err != nil {
		return nil, err
	}

	return renderHistoryCSV(history)
}

// GetNotifications retrieves a doctor's notifications
func (s *Service) GetNotifications(doctorID string) ([]*types.Notification, error) {
	return s.repo.GetNotificationsByDoctor(doctorID)
}

// MarkNotificationRead marks one of the doctor's notifications as read
func (s *Service) MarkNotificationRead(notificationID, doctorID string) error {
	return s.repo.MarkNotificationRead(notificationID, doctorID)
}

// Helper methods

func (s *Service) requireSlotOwner(slot *types.Availability, actor *types.UserClaims) error {
	if actor.Role == types.RoleStaff || actor.Role == types.RoleAdmin {
		return nil
	}
	if actor.Role == types.RoleDoctor && slot.DoctorID == actor.UserID {
		return nil
	}
	return types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to modify this slot")
}

// authorizeUpdate enforces who may touch what: patients can only cancel
// their own booking, doctors manage their own schedule, staff manage all.
func (s *Service) authorizeUpdate(apt *types.Appointment, updates *types.AppointmentUpdates, actor *types.UserClaims) error {
	switch actor.Role {
	case types.RoleStaff, types.RoleAdmin:
		return nil
	case types.RoleDoctor:
		if apt.DoctorID != actor.UserID {
			return types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to modify this appointment")
		}
		return nil
	case types.RolePatient:
		if apt.PatientID != actor.UserID {
			return types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to modify this appointment")
		}
		if updates.TriageStatus != nil {
			return types.NewAuthorizationError(types.ErrCodeForbidden, "Patients cannot set triage status")
		}
		if updates.Status != nil && *updates.Status != types.StatusCancelled {
			return types.NewAuthorizationError(types.ErrCodeForbidden, "Patients can only cancel appointments")
		}
		return nil
	}
	return types.NewAuthorizationError(types.ErrCodeForbidden, "Unknown role")
}

func (s *Service) notifyDoctor(doctorID, message string) {
	n := &types.Notification{
		ID:        uuid.New().String(),
		DoctorID:  doctorID,
		Message:   message,
		IsRead:    false,
		CreatedAt: s.now(),
	}

	// Notification failure never blocks the booking flow
	if err := s.repo.CreateNotification(n); err != nil {
		s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Failed to create notification")
	}
}

// validateSlotTimes checks date and time formats and ordering
func validateSlotTimes(date, startTime, endTime string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Date must be YYYY-MM-DD", nil)
	}

	start, err := time.Parse(timeLayout, startTime)
	if err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Start time must be HH:MM", nil)
	}

	end, err := time.Parse(timeLayout, endTime)
	if err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "End time must be HH:MM", nil)
	}

	if !start.Before(end) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Start time must be before end time", nil)
	}

	return nil
}

// expandRecurrence generates the dates of a slot series, inclusive of
// repeat_until when it lands on a step.
func expandRecurrence(date string, repeat types.RepeatCadence, repeatUntil string) ([]string, error) {
	if repeat == "" {
		repeat = types.RepeatNone
	}

	step := repeat.StepDays()
	if step == 0 {
		if repeat != types.RepeatNone {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Unknown repeat cadence", nil)
		}
		return []string{date}, nil
	}

	if repeatUntil == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "repeat_until is required for recurring slots", nil)
	}

	first, _ := time.Parse(dateLayout, date)
	until, err := time.Parse(dateLayout, repeatUntil)
	if err != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "repeat_until must be YYYY-MM-DD", nil)
	}
	if until.Before(first) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "repeat_until must not precede the first date", nil)
	}

	var dates []string
	for d := first; !d.After(until); d = d.AddDate(0, 0, step) {
		dates = append(dates, d.Format(dateLayout))
		if len(dates) > maxSeriesLength {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput,
				fmt.Sprintf("Recurring series exceeds %d slots", maxSeriesLength), nil)
		}
	}

	return dates, nil
}

// validateStatusTransition enforces the appointment lifecycle:
// pending -> approved | declined | cancelled, approved -> cancelled.
// Declined and cancelled are terminal. Re-asserting the current status
// is a no-op, not an error.
func validateStatusTransition(from, to types.AppointmentStatus) error {
	if from == to {
		return nil
	}

	allowed := map[types.AppointmentStatus][]types.AppointmentStatus{
		types.StatusPending:  {types.StatusApproved, types.StatusDeclined, types.StatusCancelled},
		types.StatusApproved: {types.StatusCancelled},
	}

	for _, next := range allowed[from] {
		if next == to {
			return nil
		}
	}

	return types.NewValidationError(types.ErrCodeBadTransition,
		fmt.Sprintf("Cannot move appointment from %s to %s", from, to), nil)
}

// validateTriageTransition enforces the triage ladder: untriaged bookings
// are classified, classified patients enter consultation, consultations
// conclude. A non-terminal state may be cleared back to untriaged.
func validateTriageTransition(from, to types.TriageStatus) error {
	if !types.ValidTriage(to) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Unknown triage status", nil)
	}
	if from == to {
		return nil
	}
	if from.Terminal() {
		return types.NewValidationError(types.ErrCodeBadTransition,
			fmt.Sprintf("Triage status %s is final", from), nil)
	}
	if to == types.TriageNone {
		return nil
	}

	classified := func(t types.TriageStatus) bool {
		return t == types.TriageUrgent || t == types.TriageNonUrgent || t == types.TriageWaiting
	}

	switch {
	case from == types.TriageNone && classified(to):
		return nil
	case classified(from) && (classified(to) || to == types.TriageInConsultation):
		return nil
	// A classified patient who never shows up skips the consultation step
	case classified(from) && to == types.TriageNoShow:
		return nil
	case from == types.TriageInConsultation && to.Terminal():
		return nil
	}

	return types.NewValidationError(types.ErrCodeBadTransition,
		fmt.Sprintf("Cannot move triage from %q to %q", from, to), nil)
}

// isConcluded reports whether an appointment belongs in the history view
func isConcluded(apt *types.Appointment) bool {
	if apt.Status == types.StatusCancelled || apt.Status == types.StatusDeclined {
		return true
	}
	return apt.TriageStatus.Terminal()
}
