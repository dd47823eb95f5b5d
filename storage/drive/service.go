package drive

import (
	"context"
	"formtable/models"
	"formtable/records"

	"golang.org/x/oauth2"
)

// Service is the main coordinator for all Drive operations
// It delegates to specialized managers for different concerns
type Service struct {
	client        *Client
	folderManager *FolderManager
	fileManager   *FileManager
	recordManager *RecordManager
}

// NewService creates a new Drive service with all managers initialized
func NewService(ctx context.Context, token *oauth2.Token, userID string) (*Service, error) {
	client, err := NewClient(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	return NewServiceWithClient(client), nil
}

// NewServiceWithClient wires the managers around an existing client
func NewServiceWithClient(client *Client) *Service {
	folderMgr := NewFolderManager(client)
	fileMgr := NewFileManager(client)

	return &Service{
		client:        client,
		folderManager: folderMgr,
		fileManager:   fileMgr,
		recordManager: NewRecordManager(client, folderMgr, fileMgr),
	}
}

// GetCurrentToken returns the current (possibly refreshed) OAuth token
func (s *Service) GetCurrentToken() (*oauth2.Token, error) {
	return s.client.GetCurrentToken()
}

// ==================== RECORD OPERATIONS ====================

func (s *Service) UpsertRecord(rec models.Record, fileID string) (string, error) {
	return s.recordManager.Upsert(rec, fileID)
}

func (s *Service) DeleteRecord(recordID, fileID string) error {
	return s.recordManager.Delete(recordID, fileID)
}

func (s *Service) FetchPage(ctx context.Context, page, limit int) (records.Page, error) {
	return s.recordManager.FetchPage(ctx, page, limit)
}

func (s *Service) GetAllRecords(ctx context.Context) ([]models.Record, error) {
	return s.recordManager.GetAll(ctx)
}
