package services

import (
	"context"
	"formtable/models"
	"formtable/records"
	"time"

	"golang.org/x/oauth2"
)

// RecordRepository defines the interface for record data access
type RecordRepository interface {
	GetRecord(userID, recordID string) (*models.StoredRecord, error)
	UpsertRecord(rec *models.StoredRecord, markForSync bool) error
	DeleteRecord(userID, recordID string) (bool, error)
	DeleteRecords(userID string, recordIDs []string) (int, error)
	DeleteAllRecords(userID string) (int, error)
	ListRecords(userID string) ([]models.StoredRecord, error)
	GetFailedSyncRecords(userID string, limit int) ([]models.StoredRecord, error)
	GetSyncCounts(userID string) (map[models.SyncStatus]int, error)
	RetrySyncRecord(userID, recordID string) (bool, error)
}

// UserRepository defines the interface for account data access
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUser(userID string) (*models.User, error)
	GetUserByLogin(login string) (*models.User, error)
	UpdateUserProfile(userID, displayName, language string) error
	UpdateUserPassword(userID, passwordHash string) error
	TouchLastLogin(userID string) error
}

// SyncWorker defines the interface for background sync operations
type SyncWorker interface {
	SyncRecordImmediate(userID, recordID string)
	SyncUserImmediate(userID string)
	OnDriveLinked(ctx context.Context, userID string, token *oauth2.Token) error
}

// SessionStore defines the interface for session management
type SessionStore interface {
	Create(user *models.User) (*models.Session, error)
	Get(sessionID string) (*models.Session, error)
	Update(sess *models.Session) error
	UpdateUserToken(userID, accessToken, refreshToken string, expiry time.Time) error
	Delete(sessionID string) error
}

// OAuthClient is the part of *oauth2.Config used for Drive linking
type OAuthClient interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// SourceFactory returns the page source backing a user's workspace
type SourceFactory func(userID string) records.Source
