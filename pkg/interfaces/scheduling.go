package interfaces

import (
	"github.com/KentSpendy/BukCare/pkg/types"
)

// SchedulingService defines the interface for availability and appointment management
type SchedulingService interface {
	// Availability management
	CreateAvailability(req *types.AvailabilityRequest, actor *types.UserClaims) ([]*types.Availability, error)
	GetAvailabilities(doctorID string, actor *types.UserClaims) ([]*types.Availability, error)
	UpdateAvailability(slotID string, req *types.AvailabilityRequest, actor *types.UserClaims) (*types.Availability, error)
	DeleteAvailability(slotID string, actor *types.UserClaims) error

	// Appointment lifecycle
	BookAppointment(req *types.BookingRequest, actor *types.UserClaims) (*types.Appointment, error)
	GetAppointments(filters *types.AppointmentFilters, actor *types.UserClaims) ([]*types.Appointment, error)
	GetAppointmentDetail(aptID string, actor *types.UserClaims) (*types.AppointmentDetail, error)
	UpdateAppointment(aptID string, updates *types.AppointmentUpdates, actor *types.UserClaims) (*types.Appointment, error)
	RescheduleAppointment(aptID, availabilityID string, actor *types.UserClaims) (*types.Appointment, error)

	// Views and reporting
	GetQueue(doctorID string, triage []types.TriageStatus, actor *types.UserClaims) ([]*types.QueueEntry, error)
	GetHistory(actor *types.UserClaims) ([]*types.Appointment, error)
	ExportHistoryCSV(actor *types.UserClaims) ([]byte, error)

	// Notifications
	GetNotifications(doctorID string) ([]*types.Notification, error)
	MarkNotificationRead(notificationID, doctorID string) error
}

// SchedulingRepository defines the interface for scheduling data persistence
type SchedulingRepository interface {
	// Availability
	CreateAvailabilities(slots []*types.Availability) error
	GetAvailabilityByID(id string) (*types.Availability, error)
	GetAvailabilitiesByDoctor(doctorID string) ([]*types.Availability, error)
	UpdateAvailability(id string, slot *types.Availability) error
	DeleteAvailability(id string) error

	// Appointments
	CreateAppointment(apt *types.Appointment) error
	GetAppointmentByID(id string) (*types.Appointment, error)
	GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error)
	UpdateAppointment(id string, updates *types.AppointmentUpdates) error
	RescheduleAppointment(id string, slot *types.Availability, record *types.RescheduleRecord) error
	SlotHasActiveAppointment(availabilityID string) (bool, error)
	GetRescheduleRecords(appointmentID string) ([]*types.RescheduleRecord, error)

	// Notifications
	CreateNotification(n *types.Notification) error
	GetNotificationsByDoctor(doctorID string) ([]*types.Notification, error)
	MarkNotificationRead(id, doctorID string) error
	CountUnreadNotifications(doctorID string) (int, error)

	// Dashboard counters
	CountAppointmentsOnDate(doctorID, date string, statuses []types.AppointmentStatus) (int, error)
	CountAppointmentsByStatus(doctorID string, status types.AppointmentStatus) (int, error)
}
