package storage

import (
	"context"
	"formtable/models"
	"formtable/records"
	"formtable/storage/drive"

	"golang.org/x/oauth2"
)

// DriveProvider is an adapter that implements the Provider interface using Google Drive
type DriveProvider struct {
	service *drive.Service
}

var _ Provider = (*DriveProvider)(nil)

// NewDriveProvider creates a new Drive storage provider
func NewDriveProvider(ctx context.Context, token *oauth2.Token, userID string) (Provider, error) {
	service, err := drive.NewService(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	return &DriveProvider{service: service}, nil
}

func (d *DriveProvider) UpsertRecord(rec models.Record, remoteID string) (string, error) {
	return d.service.UpsertRecord(rec, remoteID)
}

func (d *DriveProvider) DeleteRecord(recordID, remoteID string) error {
	return d.service.DeleteRecord(recordID, remoteID)
}

func (d *DriveProvider) FetchPage(ctx context.Context, page, limit int) (records.Page, error) {
	return d.service.FetchPage(ctx, page, limit)
}

func (d *DriveProvider) GetAllRecords(ctx context.Context) ([]models.Record, error) {
	return d.service.GetAllRecords(ctx)
}

func (d *DriveProvider) GetCurrentToken() (*oauth2.Token, error) {
	return d.service.GetCurrentToken()
}
