package types

import "time"

// Notification is a message addressed to a doctor, created by the system
// when bookings arrive or change.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	DoctorID  string    `json:"doctor" db:"doctor_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
