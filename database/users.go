package database

import (
	"database/sql"
	"errors"
	"formtable/models"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when a unique column already holds the value
var ErrConflict = errors.New("already exists")

// ==================== USER OPERATIONS ====================

const userColumns = `id, username, email, password_hash, display_name, language, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	var displayName, language sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&displayName, &language, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	user.DisplayName = displayName.String
	user.Language = language.String
	return &user, nil
}

// CreateUser inserts a new account. Duplicate username or email yields ErrConflict.
func (r *Repository) CreateUser(user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	_, err := r.db.Exec(`
		INSERT INTO users (id, username, email, password_hash, display_name, language,
			created_at, last_login_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID, user.Username, strings.ToLower(user.Email), user.PasswordHash,
		user.DisplayName, user.Language, user.CreatedAt, user.LastLoginAt, now,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetUser retrieves a user by ID, nil when absent
func (r *Repository) GetUser(userID string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// GetUserByLogin looks a user up by email or username, case-insensitively
func (r *Repository) GetUserByLogin(login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	user, err := scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = ? OR username = ? LIMIT 1`,
		strings.ToLower(login), login,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (r *Repository) UpdateUserProfile(userID, displayName, language string) error {
	_, err := r.db.Exec(`
		UPDATE users SET
			display_name = ?,
			language = ?,
			updated_at = ?
		WHERE id = ?
	`, displayName, language, time.Now(), userID)
	return err
}

func (r *Repository) UpdateUserPassword(userID, passwordHash string) error {
	_, err := r.db.Exec(`
		UPDATE users SET
			password_hash = ?,
			updated_at = ?
		WHERE id = ?
	`, passwordHash, time.Now(), userID)
	return err
}

func (r *Repository) TouchLastLogin(userID string) error {
	_, err := r.db.Exec(`UPDATE users SET last_login_at = ? WHERE id = ?`, time.Now(), userID)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
