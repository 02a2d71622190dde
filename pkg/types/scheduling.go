package types

import "time"

// Availability represents a doctor-defined time window open for booking.
// Date is YYYY-MM-DD, times are zero-padded HH:MM so string comparison
// orders them chronologically.
type Availability struct {
	ID        string    `json:"id" db:"id"`
	DoctorID  string    `json:"doctor" db:"doctor_id"`
	Date      string    `json:"date" db:"date"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RepeatCadence controls recurring availability creation.
type RepeatCadence string

const (
	RepeatNone     RepeatCadence = "none"
	RepeatWeekly   RepeatCadence = "weekly"
	RepeatBiweekly RepeatCadence = "biweekly"
)

// StepDays returns the day increment between generated slots, or 0 for
// a single slot.
func (r RepeatCadence) StepDays() int {
	switch r {
	case RepeatWeekly:
		return 7
	case RepeatBiweekly:
		return 14
	}
	return 0
}

// AvailabilityRequest is the create-slot payload. Repeat defaults to none.
type AvailabilityRequest struct {
	Date        string        `json:"date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	Repeat      RepeatCadence `json:"repeat,omitempty"`
	RepeatUntil string        `json:"repeat_until,omitempty"`
}

// AppointmentStatus represents booking status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCancelled AppointmentStatus = "cancelled"
)

// NormalizeStatus maps legacy status spellings onto the canonical
// vocabulary. Older page variants of the system sent "rejected" where the
// backend stores "declined".
func NormalizeStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(s) {
	case StatusPending, StatusApproved, StatusDeclined, StatusCancelled:
		return AppointmentStatus(s), true
	}
	if s == "rejected" {
		return StatusDeclined, true
	}
	return "", false
}

// TriageStatus classifies an approved appointment's place in the day's
// queue. The empty string means not yet triaged.
type TriageStatus string

const (
	TriageNone           TriageStatus = ""
	TriageUrgent         TriageStatus = "urgent"
	TriageNonUrgent      TriageStatus = "non_urgent"
	TriageWaiting        TriageStatus = "waiting"
	TriageInConsultation TriageStatus = "in_consultation"
	TriageDone           TriageStatus = "done"
	TriageNoShow         TriageStatus = "no_show"
)

// ValidTriage reports whether t is a known triage value.
func ValidTriage(t TriageStatus) bool {
	switch t {
	case TriageNone, TriageUrgent, TriageNonUrgent, TriageWaiting,
		TriageInConsultation, TriageDone, TriageNoShow:
		return true
	}
	return false
}

// Terminal reports whether the triage state admits no further transition.
func (t TriageStatus) Terminal() bool {
	return t == TriageDone || t == TriageNoShow
}

// Appointment represents a booking of an availability slot. The slot's
// date and times are embedded on reads so list views need no second fetch.
type Appointment struct {
	ID             string            `json:"id" db:"id"`
	PatientID      string            `json:"patient" db:"patient_id"`
	DoctorID       string            `json:"doctor" db:"doctor_id"`
	AvailabilityID string            `json:"availability" db:"availability_id"`
	Status         AppointmentStatus `json:"status" db:"status"`
	TriageStatus   TriageStatus      `json:"triage_status" db:"triage_status"`
	Reason         string            `json:"reason,omitempty" db:"reason"`
	Date           string            `json:"availability_date" db:"date"`
	StartTime      string            `json:"availability_start_time" db:"start_time"`
	EndTime        string            `json:"availability_end_time" db:"end_time"`
	PatientName    string            `json:"patient_name,omitempty" db:"-"`
	DoctorName     string            `json:"doctor_name,omitempty" db:"-"`
	PatientEmail   string            `json:"patient_email,omitempty" db:"-"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// BookingRequest is the patient-side create payload. The doctor is derived
// from the referenced slot, never trusted from the client.
type BookingRequest struct {
	AvailabilityID string `json:"availability"`
	Reason         string `json:"reason,omitempty"`
}

// AppointmentUpdates represents a partial update to an appointment.
// TriageStatus distinguishes "absent" (nil) from "clear" (pointer to "").
type AppointmentUpdates struct {
	Status       *AppointmentStatus `json:"status,omitempty"`
	TriageStatus *TriageStatus      `json:"triage_status,omitempty"`
	Reason       *string            `json:"reason,omitempty"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	PatientID string            `json:"patient,omitempty"`
	DoctorID  string            `json:"doctor,omitempty"`
	Status    AppointmentStatus `json:"status,omitempty"`
	Date      string            `json:"date,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}

// RescheduleRecord captures the slot an appointment previously pointed at.
type RescheduleRecord struct {
	ID                string    `json:"id" db:"id"`
	AppointmentID     string    `json:"appointment" db:"appointment_id"`
	PreviousDate      string    `json:"previous_date" db:"previous_date"`
	PreviousStartTime string    `json:"previous_start_time" db:"previous_start_time"`
	PreviousEndTime   string    `json:"previous_end_time" db:"previous_end_time"`
	ChangedAt         time.Time `json:"changed_at" db:"changed_at"`
}

// AppointmentDetail is an appointment plus its reschedule history.
type AppointmentDetail struct {
	Appointment
	Reschedules []*RescheduleRecord `json:"reschedules"`
}

// QueueEntry is one row of the live patient queue. Next marks the first
// entry in start-time order.
type QueueEntry struct {
	*Appointment
	Position int  `json:"position"`
	Next     bool `json:"next"`
}

// PatientSummary is one patient's appointment roll-up for their doctor.
type PatientSummary struct {
	PatientID    string         `json:"id"`
	PatientEmail string         `json:"email"`
	Appointments []*Appointment `json:"appointments"`
}

// DashboardOverview is the doctor dashboard summary.
type DashboardOverview struct {
	TodaysAppointments  int `json:"todays_appointments"`
	PendingRequests     int `json:"pending_requests"`
	UnreadNotifications int `json:"unread_notifications"`
	TotalPatients       int `json:"total_patients"`
}
