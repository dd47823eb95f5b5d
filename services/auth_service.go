package services

import (
	"context"
	"errors"
	"formtable/auth"
	"formtable/database"
	"formtable/i18n"
	"formtable/models"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// dummyHash is compared against when the login is unknown so that both
// failure paths cost one bcrypt comparison
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("formtable-no-such-user"), bcrypt.DefaultCost)

// AuthService handles authentication business logic
type AuthService struct {
	repo         UserRepository
	sessionStore SessionStore
	syncWorker   SyncWorker
	tokens       *auth.TokenIssuer
	oauth        OAuthClient
	hashCost     int
}

// NewAuthService creates a new auth service. oauth may be nil when Drive is not configured.
func NewAuthService(repo UserRepository, sessionStore SessionStore, syncWorker SyncWorker, tokens *auth.TokenIssuer, oauth OAuthClient) *AuthService {
	return &AuthService{
		repo:         repo,
		sessionStore: sessionStore,
		syncWorker:   syncWorker,
		tokens:       tokens,
		oauth:        oauth,
		hashCost:     bcrypt.DefaultCost,
	}
}

// LoginResponse contains the session and the bearer token issued for it
type LoginResponse struct {
	Session   *models.Session
	Token     string
	ExpiresAt time.Time
}

// Register creates an account and signs it in. language is the negotiated UI
// language, used when the account has no preference yet.
func (as *AuthService) Register(req models.RegisterRequest, language string) (*LoginResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), as.hashCost)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	if !i18n.IsSupported(language) {
		language = i18n.DefaultLanguage
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Language:     language,
	}
	if err := as.repo.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return as.startSession(user)
}

// Login checks the credentials (email or username) and opens a session
func (as *AuthService) Login(req models.LoginRequest) (*LoginResponse, error) {
	user, err := as.repo.GetUserByLogin(req.Login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := as.repo.TouchLastLogin(user.ID); err != nil {
		slog.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	return as.startSession(user)
}

func (as *AuthService) startSession(user *models.User) (*LoginResponse, error) {
	sess, err := as.sessionStore.Create(user)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := as.tokens.Generate(user.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Session: sess, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout handles user logout
func (as *AuthService) Logout(sessionID string) error {
	return as.sessionStore.Delete(sessionID)
}

// GetSessionInfo returns current session information
func (as *AuthService) GetSessionInfo(sessionID string) (*models.Session, error) {
	sess, err := as.sessionStore.Get(sessionID)
	if err != nil || sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// UpdateProfile changes the display name and, when given, the UI language
func (as *AuthService) UpdateProfile(userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := as.repo.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = user.DisplayName
	}
	language := req.Language
	if language == "" {
		language = user.Language
	}

	if err := as.repo.UpdateUserProfile(userID, displayName, language); err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.Language = language
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (as *AuthService) ChangePassword(userID string, req models.ChangePasswordRequest) error {
	user, err := as.repo.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), as.hashCost)
	if err != nil {
		return err
	}
	return as.repo.UpdateUserPassword(userID, string(hash))
}

// ==================== GOOGLE DRIVE ====================

// DriveEnabled reports whether Drive linking is configured
func (as *AuthService) DriveEnabled() bool {
	return as.oauth != nil
}

// DriveAuthURL returns the Google consent page URL for linking Drive
func (as *AuthService) DriveAuthURL(state string) (string, error) {
	if as.oauth == nil {
		return "", ErrDriveDisabled
	}
	// Force consent so Google returns a refresh token every time
	return as.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// LinkDrive exchanges the OAuth code, stores the tokens on every session of
// the user and starts the initial import or upload in the background
func (as *AuthService) LinkDrive(ctx context.Context, sess *models.Session, code string) error {
	if as.oauth == nil {
		return ErrDriveDisabled
	}

	token, err := as.oauth.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return ErrInvalidAuthCode
	}

	sess.AccessToken = token.AccessToken
	sess.RefreshToken = token.RefreshToken
	sess.TokenExpiry = token.Expiry
	if err := as.sessionStore.Update(sess); err != nil {
		return err
	}
	if err := as.sessionStore.UpdateUserToken(sess.UserID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		return err
	}

	if as.syncWorker != nil {
		userID := sess.UserID
		go func() {
			if err := as.syncWorker.OnDriveLinked(context.Background(), userID, token); err != nil {
				slog.Error("drive link follow-up failed", "user_id", userID, "error", err)
			}
		}()
	}

	return nil
}

// RefreshTokenIfNeeded refreshes the Drive token when it expires within five minutes.
// Returns the current or refreshed token.
func (as *AuthService) RefreshTokenIfNeeded(ctx context.Context, sess *models.Session) (*oauth2.Token, error) {
	current := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.TokenExpiry,
	}
	if time.Until(sess.TokenExpiry) > 5*time.Minute {
		return current, nil
	}

	if sess.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	if as.oauth == nil {
		return nil, ErrDriveDisabled
	}

	newToken, err := as.oauth.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, ErrTokenRefreshFailed
	}

	if err := as.sessionStore.UpdateUserToken(sess.UserID, newToken.AccessToken, newToken.RefreshToken, newToken.Expiry); err != nil {
		// The token is still usable even if it could not be saved
		slog.Warn("failed to persist refreshed token", "user_id", sess.UserID, "error", err)
	}

	sess.AccessToken = newToken.AccessToken
	if newToken.RefreshToken != "" {
		sess.RefreshToken = newToken.RefreshToken
	}
	sess.TokenExpiry = newToken.Expiry

	return newToken, nil
}
