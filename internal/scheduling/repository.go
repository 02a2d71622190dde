package scheduling

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/KentSpendy/BukCare/pkg/database"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Repository implements the SchedulingRepository interface
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.SchedulingRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, COALESCE(a.availability_id::text, ''),
		a.status, a.triage_status, a.reason,
		to_char(a.date, 'YYYY-MM-DD'), to_char(a.start_time, 'HH24:MI'), to_char(a.end_time, 'HH24:MI'),
		a.created_at, a.updated_at,
		p.email, p.first_name, p.last_name, d.first_name, d.last_name`

const appointmentJoins = ` FROM appointments a
		JOIN users p ON p.id = a.patient_id
		JOIN users d ON d.id = a.doctor_id`

// CreateAvailabilities inserts a batch of slots in a single transaction.
// Either every slot of a recurring series lands or none of them do.
func (r *Repository) CreateAvailabilities(slots []*types.Availability) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO availabilities (id, doctor_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, slot := range slots {
		if _, err := tx.Exec(query,
			slot.ID,
			slot.DoctorID,
			slot.Date,
			slot.StartTime,
			slot.EndTime,
			slot.CreatedAt,
		); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return types.NewConflictError(types.ErrCodeSlotTaken,
					fmt.Sprintf("A slot already exists on %s at %s", slot.Date, slot.StartTime))
			}
			return fmt.Errorf("failed to create availability: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit availabilities: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"doctor_id": slots[0].DoctorID,
		"count":     len(slots),
	}).Info("Availabilities created")
	return nil
}

// GetAvailabilityByID retrieves a slot by ID
func (r *Repository) GetAvailabilityByID(id string) (*types.Availability, error) {
	query := `
		SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), created_at
		FROM availabilities
		WHERE id = $1`

	slot := &types.Availability{}
	err := r.db.QueryRow(query, id).Scan(
		&slot.ID,
		&slot.DoctorID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Availability slot not found")
		}
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	return slot, nil
}

// GetAvailabilitiesByDoctor retrieves all slots belonging to a doctor.
// An empty doctorID lists every doctor's slots.
func (r *Repository) GetAvailabilitiesByDoctor(doctorID string) ([]*types.Availability, error) {
	query := `
		SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), created_at
		FROM availabilities
		WHERE 1=1`

	var args []interface{}
	if doctorID != "" {
		args = append(args, doctorID)
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	query += " ORDER BY date ASC, start_time ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get availabilities: %w", err)
	}
	defer rows.Close()

	var slots []*types.Availability
	for rows.Next() {
		slot := &types.Availability{}
		if err := rows.Scan(
			&slot.ID,
			&slot.DoctorID,
			&slot.Date,
			&slot.StartTime,
			&slot.EndTime,
			&slot.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan availability row: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability rows: %w", err)
	}

	return slots, nil
}

// UpdateAvailability moves a slot and carries its booked appointments along.
// The previous slot times are recorded per appointment before the move.
func (r *Repository) UpdateAvailability(id string, slot *types.Availability) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE availabilities
		SET date = $1, start_time = $2, end_time = $3
		WHERE id = $4`,
		slot.Date, slot.StartTime, slot.EndTime, id,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return types.NewConflictError(types.ErrCodeSlotTaken,
				fmt.Sprintf("A slot already exists on %s at %s", slot.Date, slot.StartTime))
		}
		return fmt.Errorf("failed to update availability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Availability slot not found")
	}

	// Snapshot previous times for every live appointment on the slot
	rows, err := tx.Query(`
		SELECT id, to_char(date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')
		FROM appointments
		WHERE availability_id = $1 AND status IN ('pending', 'approved')
		FOR UPDATE`, id)
	if err != nil {
		return fmt.Errorf("failed to load affected appointments: %w", err)
	}

	type snapshot struct {
		id, date, start, end string
	}
	var affected []snapshot
	for rows.Next() {
		var s snapshot
		if err := rows.Scan(&s.id, &s.date, &s.start, &s.end); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan appointment snapshot: %w", err)
		}
		affected = append(affected, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating appointment snapshots: %w", err)
	}

	for _, s := range affected {
		if _, err := tx.Exec(`
			INSERT INTO reschedule_records (id, appointment_id, previous_date,
				previous_start_time, previous_end_time, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), s.id, s.date, s.start, s.end, time.Now(),
		); err != nil {
			return fmt.Errorf("failed to record reschedule: %w", err)
		}
	}

	if len(affected) > 0 {
		if _, err := tx.Exec(`
			UPDATE appointments
			SET date = $1, start_time = $2, end_time = $3, updated_at = $4
			WHERE availability_id = $5 AND status IN ('pending', 'approved')`,
			slot.Date, slot.StartTime, slot.EndTime, time.Now(), id,
		); err != nil {
			return fmt.Errorf("failed to move appointments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit availability update: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"slot_id":              id,
		"rescheduled_bookings": len(affected),
	}).Info("Availability updated")
	return nil
}

// DeleteAvailability removes an unbooked slot
func (r *Repository) DeleteAvailability(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE availability_id = $1 AND status IN ('pending', 'approved')`, id,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check slot bookings: %w", err)
	}
	if active > 0 {
		return types.NewConflictError(types.ErrCodeConflict, "Slot has active bookings and cannot be deleted")
	}

	result, err := tx.Exec(`DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Availability slot not found")
	}

	return tx.Commit()
}

// CreateAppointment books a slot. The slot row is locked for the duration of
// the transaction so two patients cannot book it at once.
func (r *Repository) CreateAppointment(apt *types.Appointment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var slotID string
	err = tx.QueryRow(`SELECT id FROM availabilities WHERE id = $1 FOR UPDATE`, apt.AvailabilityID).Scan(&slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.NewNotFoundError(types.ErrCodeNotFound, "Availability slot not found")
		}
		return fmt.Errorf("failed to lock slot: %w", err)
	}

	var active int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE availability_id = $1 AND status IN ('pending', 'approved')`, apt.AvailabilityID,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check slot bookings: %w", err)
	}
	if active > 0 {
		return types.NewConflictError(types.ErrCodeSlotTaken, "This slot has already been booked")
	}

	_, err = tx.Exec(`
		INSERT INTO appointments (id, patient_id, doctor_id, availability_id,
			date, start_time, end_time, status, triage_status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.AvailabilityID,
		apt.Date,
		apt.StartTime,
		apt.EndTime,
		apt.Status,
		apt.TriageStatus,
		apt.Reason,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointment: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"patient_id":     apt.PatientID,
		"doctor_id":      apt.DoctorID,
	}).Info("Appointment created")
	return nil
}

// GetAppointmentByID retrieves an appointment by ID with display fields
func (r *Repository) GetAppointmentByID(id string) (*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentJoins + ` WHERE a.id = $1`

	apt, err := scanAppointment(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return apt, nil
}

// GetAppointments retrieves appointments with filtering
func (r *Repository) GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentJoins + ` WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters.PatientID != "" {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argIndex)
		args = append(args, filters.PatientID)
		argIndex++
	}
	if filters.DoctorID != "" {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argIndex)
		args = append(args, filters.DoctorID)
		argIndex++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", argIndex)
		args = append(args, filters.Status)
		argIndex++
	}
	if filters.Date != "" {
		query += fmt.Sprintf(" AND a.date = $%d", argIndex)
		args = append(args, filters.Date)
		argIndex++
	}

	query += " ORDER BY a.date ASC, a.start_time ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*types.Appointment
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}
		appointments = append(appointments, apt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointment rows: %w", err)
	}

	return appointments, nil
}

// UpdateAppointment applies a partial update to an appointment
func (r *Repository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *updates.Status)
		argIndex++
	}
	if updates.TriageStatus != nil {
		setParts = append(setParts, fmt.Sprintf("triage_status = $%d", argIndex))
		args = append(args, *updates.TriageStatus)
		argIndex++
	}
	if updates.Reason != nil {
		setParts = append(setParts, fmt.Sprintf("reason = $%d", argIndex))
		args = append(args, *updates.Reason)
		argIndex++
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id)
	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found")
	}

	return nil
}

// RescheduleAppointment points an appointment at a new slot, recording where
// it used to be. The new slot is locked and checked for existing bookings.
func (r *Repository) RescheduleAppointment(id string, slot *types.Availability, record *types.RescheduleRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var slotID string
	err = tx.QueryRow(`SELECT id FROM availabilities WHERE id = $1 FOR UPDATE`, slot.ID).Scan(&slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.NewNotFoundError(types.ErrCodeNotFound, "Availability slot not found")
		}
		return fmt.Errorf("failed to lock slot: %w", err)
	}

	var active int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE availability_id = $1 AND status IN ('pending', 'approved') AND id <> $2`,
		slot.ID, id,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check slot bookings: %w", err)
	}
	if active > 0 {
		return types.NewConflictError(types.ErrCodeSlotTaken, "This slot has already been booked")
	}

	if _, err := tx.Exec(`
		INSERT INTO reschedule_records (id, appointment_id, previous_date,
			previous_start_time, previous_end_time, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID,
		record.AppointmentID,
		record.PreviousDate,
		record.PreviousStartTime,
		record.PreviousEndTime,
		record.ChangedAt,
	); err != nil {
		return fmt.Errorf("failed to record reschedule: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE appointments
		SET availability_id = $1, date = $2, start_time = $3, end_time = $4, updated_at = $5
		WHERE id = $6`,
		slot.ID, slot.Date, slot.StartTime, slot.EndTime, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found")
	}

	return tx.Commit()
}

// SlotHasActiveAppointment reports whether a slot carries a live booking
func (r *Repository) SlotHasActiveAppointment(availabilityID string) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE availability_id = $1 AND status IN ('pending', 'approved')`, availabilityID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check slot bookings: %w", err)
	}
	return count > 0, nil
}

// GetRescheduleRecords retrieves an appointment's reschedule history
func (r *Repository) GetRescheduleRecords(appointmentID string) ([]*types.RescheduleRecord, error) {
	query := `
		SELECT id, appointment_id, to_char(previous_date, 'YYYY-MM-DD'),
			to_char(previous_start_time, 'HH24:MI'), to_char(previous_end_time, 'HH24:MI'), changed_at
		FROM reschedule_records
		WHERE appointment_id = $1
		ORDER BY changed_at DESC`

	rows, err := r.db.Query(query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reschedule records: %w", err)
	}
	defer rows.Close()

	var records []*types.RescheduleRecord
	for rows.Next() {
		record := &types.RescheduleRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.AppointmentID,
			&record.PreviousDate,
			&record.PreviousStartTime,
			&record.PreviousEndTime,
			&record.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reschedule row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reschedule rows: %w", err)
	}

	return records, nil
}

// CreateNotification inserts a doctor notification
func (r *Repository) CreateNotification(n *types.Notification) error {
	_, err := r.db.Exec(`
		INSERT INTO notifications (id, doctor_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.DoctorID, n.Message, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotificationsByDoctor retrieves a doctor's notifications, newest first
func (r *Repository) GetNotificationsByDoctor(doctorID string) ([]*types.Notification, error) {
	query := `
		SELECT id, doctor_id, message, is_read, created_at
		FROM notifications
		WHERE doctor_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*types.Notification
	for rows.Next() {
		n := &types.Notification{}
		if err := rows.Scan(&n.ID, &n.DoctorID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead marks a doctor's notification as read
func (r *Repository) MarkNotificationRead(id, doctorID string) error {
	result, err := r.db.Exec(`
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Notification not found")
	}
	return nil
}

// CountUnreadNotifications counts a doctor's unread notifications
func (r *Repository) CountUnreadNotifications(doctorID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE doctor_id = $1 AND is_read = FALSE`, doctorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// CountAppointmentsOnDate counts a doctor's appointments on a date by status
func (r *Repository) CountAppointmentsOnDate(doctorID, date string, statuses []types.AppointmentStatus) (int, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status = ANY($3)`,
		doctorID, date, pq.Array(strs),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// CountAppointmentsByStatus counts a doctor's appointments in a status
func (r *Repository) CountAppointmentsByStatus(doctorID string, status types.AppointmentStatus) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND status = $2`, doctorID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{}
	var patientEmail, patientFirst, patientLast, doctorFirst, doctorLast string

	err := row.Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&apt.AvailabilityID,
		&apt.Status,
		&apt.TriageStatus,
		&apt.Reason,
		&apt.Date,
		&apt.StartTime,
		&apt.EndTime,
		&apt.CreatedAt,
		&apt.UpdatedAt,
		&patientEmail,
		&patientFirst,
		&patientLast,
		&doctorFirst,
		&doctorLast,
	)
	if err != nil {
		return nil, err
	}

	apt.PatientEmail = patientEmail
	apt.PatientName = displayName(patientFirst, patientLast, patientEmail)
	apt.DoctorName = displayName(doctorFirst, doctorLast, "")
	return apt, nil
}

func displayName(first, last, fallback string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return fallback
	}
	return name
}
