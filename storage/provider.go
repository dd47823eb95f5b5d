package storage

import (
	"context"
	"formtable/models"
	"formtable/records"

	"golang.org/x/oauth2"
)

// Provider is the interface for cloud storage backends holding a user's records.
// Every provider is also a records.Source.
type Provider interface {
	records.Source

	// UpsertRecord writes a record and returns the backend's id for it
	UpsertRecord(rec models.Record, remoteID string) (string, error)

	// DeleteRecord removes a record; a missing remote copy is not an error
	DeleteRecord(recordID, remoteID string) error

	// GetAllRecords retrieves every stored record (for the initial import)
	GetAllRecords(ctx context.Context) ([]models.Record, error)

	// GetCurrentToken returns the current (possibly refreshed) OAuth token
	GetCurrentToken() (*oauth2.Token, error)
}

// Factory is a function that creates a new storage provider instance
type Factory func(ctx context.Context, token *oauth2.Token, userID string) (Provider, error)
