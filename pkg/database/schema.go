package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the clinic
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createUsersTable,
		createAvailabilitiesTable,
		createAppointmentsTable,
		createRescheduleRecordsTable,
		createNotificationsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createAvailabilitiesIndexes,
		createAppointmentsIndexes,
		createNotificationsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			contact_number VARCHAR(30) NOT NULL DEFAULT '',
			specialization VARCHAR(100) NOT NULL DEFAULT '',
			specialization_verified BOOLEAN NOT NULL DEFAULT FALSE,
			profile_photo TEXT NOT NULL DEFAULT '',
			is_available_on_call BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAvailabilitiesTable = `
		CREATE TABLE IF NOT EXISTS availabilities (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			doctor_id UUID NOT NULL REFERENCES users(id),
			date DATE NOT NULL,
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (doctor_id, date, start_time)
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES users(id),
			doctor_id UUID NOT NULL REFERENCES users(id),
			availability_id UUID REFERENCES availabilities(id) ON DELETE SET NULL,
			date DATE NOT NULL,
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			triage_status VARCHAR(20) NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createRescheduleRecordsTable = `
		CREATE TABLE IF NOT EXISTS reschedule_records (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			appointment_id UUID NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
			previous_date DATE NOT NULL,
			previous_start_time TIME NOT NULL,
			previous_end_time TIME NOT NULL,
			changed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createNotificationsTable = `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			doctor_id UUID NOT NULL REFERENCES users(id),
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createUsersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

	createAvailabilitiesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_availabilities_doctor_id ON availabilities(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_availabilities_date ON availabilities(date);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_id ON appointments(patient_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor_id ON appointments(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);
		CREATE INDEX IF NOT EXISTS idx_appointments_availability_id ON appointments(availability_id);`

	createNotificationsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_notifications_doctor_id ON notifications(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_is_read ON notifications(is_read);`
)
