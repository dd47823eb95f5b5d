package session

import (
	"context"
	"database/sql"
	"formtable/models"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Lifetime is how long a login session stays valid
const Lifetime = 30 * 24 * time.Hour

// Store keeps sessions in the sessions table; profile fields are joined from users
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create opens a new session for user
func (s *Store) Create(user *models.User) (*models.Session, error) {
	now := time.Now()
	sess := &models.Session{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Language:    user.Language,
		ExpiresAt:   now.Add(Lifetime),
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	// Reuse Drive tokens from an existing session of the same user
	if existing, err := s.GetByUserID(user.ID); err == nil && existing != nil {
		sess.AccessToken = existing.AccessToken
		sess.RefreshToken = existing.RefreshToken
		sess.TokenExpiry = existing.TokenExpiry
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, user_id, access_token, refresh_token, token_expiry,
			expires_at, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.AccessToken, sess.RefreshToken, nullTime(sess.TokenExpiry),
		sess.ExpiresAt, sess.CreatedAt, sess.LastUsedAt)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

const selectSession = `
	SELECT s.id, s.user_id, u.username, u.email, u.display_name, u.language,
	       s.access_token, s.refresh_token, s.token_expiry,
	       s.expires_at, s.created_at, s.last_used_at
	FROM sessions s
	JOIN users u ON u.id = s.user_id`

func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var displayName, language, accessToken, refreshToken sql.NullString
	var tokenExpiry sql.NullTime

	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.Username, &sess.Email, &displayName, &language,
		&accessToken, &refreshToken, &tokenExpiry,
		&sess.ExpiresAt, &sess.CreatedAt, &sess.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.DisplayName = displayName.String
	sess.Language = language.String
	sess.AccessToken = accessToken.String
	sess.RefreshToken = refreshToken.String
	if tokenExpiry.Valid {
		sess.TokenExpiry = tokenExpiry.Time
	}
	return &sess, nil
}

// Get returns a live session, nil when unknown or expired
func (s *Store) Get(sessionID string) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRow(selectSession+` WHERE s.id = ?`, sessionID))
	if err != nil || sess == nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, nil
	}
	return sess, nil
}

// GetByUserID returns the most recently used live session of a user
func (s *Store) GetByUserID(userID string) (*models.Session, error) {
	return scanSession(s.db.QueryRow(
		selectSession+` WHERE s.user_id = ? AND s.expires_at > ? ORDER BY s.last_used_at DESC LIMIT 1`,
		userID, time.Now(),
	))
}

// Update persists the token fields of a session and touches it
func (s *Store) Update(sess *models.Session) error {
	sess.LastUsedAt = time.Now()
	_, err := s.db.Exec(`
		UPDATE sessions SET
			access_token = ?,
			refresh_token = ?,
			token_expiry = ?,
			last_used_at = ?
		WHERE id = ?
	`, sess.AccessToken, sess.RefreshToken, nullTime(sess.TokenExpiry), sess.LastUsedAt, sess.ID)
	return err
}

// UpdateUserToken stores a refreshed Drive token on every session of a user
func (s *Store) UpdateUserToken(userID, accessToken, refreshToken string, expiry time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET
			access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			token_expiry = ?
		WHERE user_id = ?
	`, accessToken, refreshToken, refreshToken, nullTime(expiry), userID)
	return err
}

func (s *Store) Delete(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// CleanupExpired removes expired sessions and reports how many went away
func (s *Store) CleanupExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanupRoutine purges expired sessions every interval until ctx is done
func (s *Store) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.CleanupExpired()
				if err != nil {
					slog.Error("session cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
