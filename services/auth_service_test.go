package services

import (
	"context"
	"errors"
	"formtable/auth"
	"formtable/database"
	"formtable/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// ==================== MOCKS ====================

// MockUserRepository is a mock implementation of UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

var _ UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) CreateUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepository) GetUser(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByLogin(login string) (*models.User, error) {
	args := m.Called(login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUserProfile(userID, displayName, language string) error {
	return m.Called(userID, displayName, language).Error(0)
}

func (m *MockUserRepository) UpdateUserPassword(userID, passwordHash string) error {
	return m.Called(userID, passwordHash).Error(0)
}

func (m *MockUserRepository) TouchLastLogin(userID string) error {
	return m.Called(userID).Error(0)
}

// MockSessionStore is a mock implementation of SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

var _ SessionStore = (*MockSessionStore)(nil)

func (m *MockSessionStore) Create(user *models.User) (*models.Session, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) Get(sessionID string) (*models.Session, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) Update(sess *models.Session) error {
	return m.Called(sess).Error(0)
}

func (m *MockSessionStore) UpdateUserToken(userID, accessToken, refreshToken string, expiry time.Time) error {
	return m.Called(userID, accessToken, refreshToken, expiry).Error(0)
}

func (m *MockSessionStore) Delete(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

// MockSyncWorker is a mock implementation of SyncWorker interface
type MockSyncWorker struct {
	mock.Mock
}

var _ SyncWorker = (*MockSyncWorker)(nil)

func (m *MockSyncWorker) SyncRecordImmediate(userID, recordID string) {
	m.Called(userID, recordID)
}

func (m *MockSyncWorker) SyncUserImmediate(userID string) {
	m.Called(userID)
}

func (m *MockSyncWorker) OnDriveLinked(ctx context.Context, userID string, token *oauth2.Token) error {
	return m.Called(userID, token).Error(0)
}

// fakeOAuth stands in for *oauth2.Config
type fakeOAuth struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeOAuth) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (f *fakeOAuth) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

func (f *fakeOAuth) TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource {
	if f.err != nil {
		return errTokenSource{f.err}
	}
	return oauth2.StaticTokenSource(f.token)
}

type errTokenSource struct{ err error }

func (s errTokenSource) Token() (*oauth2.Token, error) { return nil, s.err }

// ==================== HELPERS ====================

var testIssuer = auth.NewTokenIssuer([]byte("test-secret"), time.Hour)

func newTestAuthService(repo UserRepository, store SessionStore, worker SyncWorker, oauth OAuthClient) *AuthService {
	as := NewAuthService(repo, store, worker, testIssuer, oauth)
	as.hashCost = bcrypt.MinCost
	return as
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user123",
		Username:     "olena",
		Email:        "olena@example.com",
		PasswordHash: string(hash),
		DisplayName:  "Olena",
		Language:     "uk",
	}
}

// ==================== TESTS ====================

func TestAuthService_Register(t *testing.T) {
	t.Run("Success - Creates user and session", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockSessionStore)

		var created *models.User
		repo.On("CreateUser", mock.AnythingOfType("*models.User")).
			Run(func(args mock.Arguments) { created = args.Get(0).(*models.User) }).
			Return(nil)
		store.On("Create", mock.AnythingOfType("*models.User")).
			Return(&models.Session{ID: "sess-1", UserID: "new-user"}, nil)

		service := newTestAuthService(repo, store, nil, nil)
		resp, err := service.Register(models.RegisterRequest{
			Username: " olena ",
			Email:    "Olena@Example.COM",
			Password: "secret123",
		}, "uk")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "olena", created.Username)
		assert.Equal(t, "olena@example.com", created.Email)
		assert.Equal(t, "olena", created.DisplayName)
		assert.Equal(t, "uk", created.Language)
		assert.NotEmpty(t, created.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")))

		claims, err := testIssuer.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "sess-1", claims.SessionID)
		assert.Equal(t, created.ID, claims.UserID)

		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("Unsupported language falls back to English", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockSessionStore)

		repo.On("CreateUser", mock.MatchedBy(func(u *models.User) bool { return u.Language == "en" })).Return(nil)
		store.On("Create", mock.Anything).Return(&models.Session{ID: "sess-2"}, nil)

		service := newTestAuthService(repo, store, nil, nil)
		_, err := service.Register(models.RegisterRequest{Username: "adam", Email: "adam@example.com", Password: "secret123"}, "xx")

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Error - Duplicate account", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockSessionStore)
		repo.On("CreateUser", mock.Anything).Return(database.ErrConflict)

		service := newTestAuthService(repo, store, nil, nil)
		resp, err := service.Register(models.RegisterRequest{Username: "adam", Email: "adam@example.com", Password: "secret123"}, "en")

		assert.ErrorIs(t, err, ErrUserExists)
		assert.Nil(t, resp)
		store.AssertNotCalled(t, "Create", mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	user := testUser(t, "secret123")

	tests := []struct {
		name          string
		request       models.LoginRequest
		mockSetup     func(*MockUserRepository, *MockSessionStore)
		expectedError error
	}{
		{
			name:    "Success - Login with username",
			request: models.LoginRequest{Login: "olena", Password: "secret123"},
			mockSetup: func(repo *MockUserRepository, store *MockSessionStore) {
				repo.On("GetUserByLogin", "olena").Return(user, nil)
				repo.On("TouchLastLogin", "user123").Return(nil)
				store.On("Create", user).Return(&models.Session{ID: "sess-1", UserID: "user123"}, nil)
			},
		},
		{
			name:    "Success - Last login failure does not block",
			request: models.LoginRequest{Login: "olena@example.com", Password: "secret123"},
			mockSetup: func(repo *MockUserRepository, store *MockSessionStore) {
				repo.On("GetUserByLogin", "olena@example.com").Return(user, nil)
				repo.On("TouchLastLogin", "user123").Return(errors.New("database locked"))
				store.On("Create", user).Return(&models.Session{ID: "sess-1", UserID: "user123"}, nil)
			},
		},
		{
			name:    "Error - Wrong password",
			request: models.LoginRequest{Login: "olena", Password: "wrong"},
			mockSetup: func(repo *MockUserRepository, store *MockSessionStore) {
				repo.On("GetUserByLogin", "olena").Return(user, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:    "Error - Unknown user",
			request: models.LoginRequest{Login: "nobody", Password: "secret123"},
			mockSetup: func(repo *MockUserRepository, store *MockSessionStore) {
				repo.On("GetUserByLogin", "nobody").Return(nil, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:    "Error - Session store fails",
			request: models.LoginRequest{Login: "olena", Password: "secret123"},
			mockSetup: func(repo *MockUserRepository, store *MockSessionStore) {
				repo.On("GetUserByLogin", "olena").Return(user, nil)
				repo.On("TouchLastLogin", "user123").Return(nil)
				store.On("Create", user).Return(nil, errors.New("disk full"))
			},
			expectedError: errors.New("disk full"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			store := new(MockSessionStore)
			tt.mockSetup(repo, store)

			service := newTestAuthService(repo, store, nil, nil)
			resp, err := service.Login(tt.request)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "sess-1", resp.Session.ID)
				assert.NotEmpty(t, resp.Token)
				assert.True(t, resp.ExpiresAt.After(time.Now()))
			}

			repo.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	tests := []struct {
		name          string
		sessionID     string
		mockSetup     func(*MockSessionStore)
		expectedError error
	}{
		{
			name:      "Success - Logout successfully",
			sessionID: "session123",
			mockSetup: func(store *MockSessionStore) {
				store.On("Delete", "session123").Return(nil)
			},
		},
		{
			name:      "Error - Session store delete fails",
			sessionID: "session123",
			mockSetup: func(store *MockSessionStore) {
				store.On("Delete", "session123").Return(errors.New("session error"))
			},
			expectedError: errors.New("session error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockSessionStore)
			tt.mockSetup(store)

			service := &AuthService{sessionStore: store}
			err := service.Logout(tt.sessionID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
			}

			store.AssertExpectations(t)
		})
	}
}

func TestAuthService_GetSessionInfo(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		mockSetup     func(*MockSessionStore)
		expectedError error
	}{
		{
			name: "Success - Get session info",
			mockSetup: func(store *MockSessionStore) {
				store.On("Get", "session123").Return(&models.Session{
					ID:        "session123",
					UserID:    "user123",
					Email:     "test@example.com",
					ExpiresAt: now.Add(24 * time.Hour),
				}, nil)
			},
		},
		{
			name: "Error - Session not found (returns nil)",
			mockSetup: func(store *MockSessionStore) {
				store.On("Get", "session123").Return(nil, nil)
			},
			expectedError: ErrSessionNotFound,
		},
		{
			name: "Error - Session store error",
			mockSetup: func(store *MockSessionStore) {
				store.On("Get", "session123").Return(nil, errors.New("database error"))
			},
			expectedError: ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockSessionStore)
			tt.mockSetup(store)

			service := &AuthService{sessionStore: store}
			sess, err := service.GetSessionInfo("session123")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, sess)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "user123", sess.UserID)
			}

			store.AssertExpectations(t)
		})
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	user := testUser(t, "secret123")

	t.Run("Empty language keeps the saved one", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetUser", "user123").Return(user, nil)
		repo.On("UpdateUserProfile", "user123", "Olena K.", "uk").Return(nil)

		service := newTestAuthService(repo, nil, nil, nil)
		updated, err := service.UpdateProfile("user123", models.UpdateProfileRequest{DisplayName: " Olena K. "})

		require.NoError(t, err)
		assert.Equal(t, "Olena K.", updated.DisplayName)
		assert.Equal(t, "uk", updated.Language)
		repo.AssertExpectations(t)
	})

	t.Run("Unknown user", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetUser", "ghost").Return(nil, nil)

		service := newTestAuthService(repo, nil, nil, nil)
		_, err := service.UpdateProfile("ghost", models.UpdateProfileRequest{Language: "de"})

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	user := testUser(t, "secret123")

	t.Run("Success - Stores a new hash", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetUser", "user123").Return(user, nil)
		repo.On("UpdateUserPassword", "user123", mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
		})).Return(nil)

		service := newTestAuthService(repo, nil, nil, nil)
		err := service.ChangePassword("user123", models.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newsecret"})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Error - Wrong current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetUser", "user123").Return(user, nil)

		service := newTestAuthService(repo, nil, nil, nil)
		err := service.ChangePassword("user123", models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		repo.AssertNotCalled(t, "UpdateUserPassword", mock.Anything, mock.Anything)
	})
}

func TestAuthService_LinkDrive(t *testing.T) {
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

	t.Run("Error - Drive not configured", func(t *testing.T) {
		service := newTestAuthService(nil, nil, nil, nil)
		assert.False(t, service.DriveEnabled())

		_, err := service.DriveAuthURL("state")
		assert.ErrorIs(t, err, ErrDriveDisabled)
		assert.ErrorIs(t, service.LinkDrive(context.Background(), &models.Session{}, "code"), ErrDriveDisabled)
	})

	t.Run("Error - Bad code", func(t *testing.T) {
		oauth := &fakeOAuth{err: errors.New("bad code")}
		service := newTestAuthService(nil, nil, nil, oauth)

		err := service.LinkDrive(context.Background(), &models.Session{ID: "sess-1"}, "bad")
		assert.ErrorIs(t, err, ErrInvalidAuthCode)
	})

	t.Run("Success - Stores tokens and notifies the worker", func(t *testing.T) {
		oauth := &fakeOAuth{token: token}
		store := new(MockSessionStore)
		worker := new(MockSyncWorker)

		linked := make(chan struct{})
		store.On("Update", mock.AnythingOfType("*models.Session")).Return(nil)
		store.On("UpdateUserToken", "user123", "access", "refresh", token.Expiry).Return(nil)
		worker.On("OnDriveLinked", "user123", token).Run(func(mock.Arguments) { close(linked) }).Return(nil)

		service := newTestAuthService(nil, store, worker, oauth)
		url, err := service.DriveAuthURL("state-1")
		require.NoError(t, err)
		assert.Contains(t, url, "state-1")

		sess := &models.Session{ID: "sess-1", UserID: "user123"}
		require.NoError(t, service.LinkDrive(context.Background(), sess, "good"))

		select {
		case <-linked:
		case <-time.After(2 * time.Second):
			t.Fatal("OnDriveLinked was not called")
		}

		assert.Equal(t, []string{"good"}, oauth.codes)
		assert.True(t, sess.HasDrive())
		store.AssertExpectations(t)
		worker.AssertExpectations(t)
	})
}

func TestAuthService_RefreshTokenIfNeeded(t *testing.T) {
	t.Run("Valid token is returned as is", func(t *testing.T) {
		service := newTestAuthService(nil, nil, nil, nil)
		sess := &models.Session{AccessToken: "access", TokenExpiry: time.Now().Add(time.Hour)}

		tok, err := service.RefreshTokenIfNeeded(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, "access", tok.AccessToken)
	})

	t.Run("Expiring token without refresh token", func(t *testing.T) {
		service := newTestAuthService(nil, nil, nil, &fakeOAuth{})
		sess := &models.Session{AccessToken: "access", TokenExpiry: time.Now().Add(time.Minute)}

		_, err := service.RefreshTokenIfNeeded(context.Background(), sess)
		assert.ErrorIs(t, err, ErrNoRefreshToken)
	})

	t.Run("Refresh failure", func(t *testing.T) {
		service := newTestAuthService(nil, nil, nil, &fakeOAuth{err: errors.New("invalid_grant")})
		sess := &models.Session{AccessToken: "access", RefreshToken: "refresh", TokenExpiry: time.Now()}

		_, err := service.RefreshTokenIfNeeded(context.Background(), sess)
		assert.ErrorIs(t, err, ErrTokenRefreshFailed)
	})

	t.Run("Expiring token is refreshed and saved", func(t *testing.T) {
		fresh := &oauth2.Token{AccessToken: "access-2", Expiry: time.Now().Add(time.Hour)}
		store := new(MockSessionStore)
		store.On("UpdateUserToken", "user123", "access-2", "", fresh.Expiry).Return(nil)

		service := newTestAuthService(nil, store, nil, &fakeOAuth{token: fresh})
		sess := &models.Session{UserID: "user123", AccessToken: "access", RefreshToken: "refresh", TokenExpiry: time.Now()}

		tok, err := service.RefreshTokenIfNeeded(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, "access-2", tok.AccessToken)
		assert.Equal(t, "access-2", sess.AccessToken)
		assert.Equal(t, "refresh", sess.RefreshToken)
		store.AssertExpectations(t)
	})
}
