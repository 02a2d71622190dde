package iam

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/KentSpendy/BukCare/pkg/database"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

const userColumns = `id, email, role, first_name, last_name, contact_number,
		specialization, specialization_verified, profile_photo,
		is_available_on_call, is_active, created_at, updated_at`

// UserRepository implements user data persistence
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

// Create creates a new user in the database
func (r *UserRepository) Create(user *types.User, passwordHash string) error {
	query := `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name,
			contact_number, specialization, specialization_verified, profile_photo,
			is_available_on_call, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		user.ID,
		user.Email,
		passwordHash,
		user.Role,
		user.FirstName,
		user.LastName,
		user.ContactNumber,
		user.Specialization,
		user.SpecializationVerified,
		user.ProfilePhoto,
		user.IsAvailableOnCall,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return types.NewConflictError(types.ErrCodeEmailExists, "An account with this email already exists")
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User created successfully")
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(query, email))
}

// GetPasswordHash retrieves the stored password hash for an email
func (r *UserRepository) GetPasswordHash(email string) (string, error) {
	var hash string
	err := r.db.QueryRow(`SELECT password_hash FROM users WHERE email = $1`, email).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	return hash, nil
}

// UpdateProfile applies a partial update to a user's profile fields
func (r *UserRepository) UpdateProfile(id string, updates *types.ProfileUpdates) error {
	setParts := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	argIndex := 1

	appendSet := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.FirstName != nil {
		appendSet("first_name", *updates.FirstName)
	}
	if updates.LastName != nil {
		appendSet("last_name", *updates.LastName)
	}
	if updates.ContactNumber != nil {
		appendSet("contact_number", *updates.ContactNumber)
	}
	if updates.Specialization != nil {
		appendSet("specialization", *updates.Specialization)
		// A changed specialization must be re-verified by staff
		appendSet("specialization_verified", false)
	}
	if updates.ProfilePhoto != nil {
		appendSet("profile_photo", *updates.ProfilePhoto)
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	appendSet("updated_at", time.Now())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
	}

	r.logger.WithField("user_id", id).Info("User profile updated")
	return nil
}

// SetAvailableOnCall sets the doctor's on-call flag
func (r *UserRepository) SetAvailableOnCall(id string, available bool) error {
	result, err := r.db.Exec(
		`UPDATE users SET is_available_on_call = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update on-call flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
	}
	return nil
}

// ListByRole retrieves all active users with the given role
func (r *UserRepository) ListByRole(role types.UserRole) ([]*types.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND is_active = TRUE
		ORDER BY last_name ASC, first_name ASC`

	rows, err := r.db.Query(query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return r.collectUsers(rows)
}

// SearchDoctors retrieves active doctors matching the criteria. An empty
// query returns all doctors.
func (r *UserRepository) SearchDoctors(criteria *types.UserSearchCriteria) ([]*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND is_active = TRUE`
	args := []interface{}{types.RoleDoctor}
	argIndex := 2

	if criteria.Query != "" {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR specialization ILIKE $%d)`,
			argIndex, argIndex, argIndex)
		args = append(args, "%"+criteria.Query+"%")
		argIndex++
	}

	query += " ORDER BY last_name ASC, first_name ASC"

	if criteria.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, criteria.Limit)
		argIndex++
	}
	if criteria.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, criteria.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	defer rows.Close()

	return r.collectUsers(rows)
}

// CountByRole counts active users with the given role
func (r *UserRepository) CountByRole(role types.UserRole) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE role = $1 AND is_active = TRUE`, role,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*types.User, error) {
	var user types.User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.ContactNumber,
		&user.Specialization,
		&user.SpecializationVerified,
		&user.ProfilePhoto,
		&user.IsAvailableOnCall,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) collectUsers(rows *sql.Rows) ([]*types.User, error) {
	var users []*types.User
	for rows.Next() {
		var user types.User

		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Role,
			&user.FirstName,
			&user.LastName,
			&user.ContactNumber,
			&user.Specialization,
			&user.SpecializationVerified,
			&user.ProfilePhoto,
			&user.IsAvailableOnCall,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}

		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}
