package drive

import (
	"fmt"
	"sync"

	"google.golang.org/api/drive/v3"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	// RootFolderName is the app folder in the user's Drive
	RootFolderName = "formtable"
	// RecordsFolderName holds one JSON file per record
	RecordsFolderName = "records"
)

// FolderManager handles folder operations in Google Drive
type FolderManager struct {
	client *Client

	mu    sync.Mutex
	cache map[string]string
}

func NewFolderManager(client *Client) *FolderManager {
	return &FolderManager{client: client, cache: make(map[string]string)}
}

// GetOrCreate returns the ID of a folder, creating it if it doesn't exist
func (fm *FolderManager) GetOrCreate(name string, parentID string) (string, error) {
	// If no parent is specified, use "root" for the user's main Drive folder
	if parentID == "" {
		parentID = "root"
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	cacheKey := parentID + "/" + name
	if id, ok := fm.cache[cacheKey]; ok {
		return id, nil
	}

	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false and '%s' in parents",
		escapeQuery(name), folderMimeType, parentID)

	fileList, err := fm.client.Service().Files.List().
		Q(query).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return "", err
	}

	if len(fileList.Files) > 0 {
		fm.cache[cacheKey] = fileList.Files[0].Id
		return fileList.Files[0].Id, nil
	}

	fileMetadata := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}

	file, err := fm.client.Service().Files.Create(fileMetadata).
		Fields("id").
		Do()
	if err != nil {
		return "", err
	}

	fm.cache[cacheKey] = file.Id
	return file.Id, nil
}

// GetRecordsFolder returns the ID of formtable/records, creating it if needed
func (fm *FolderManager) GetRecordsFolder() (string, error) {
	rootID, err := fm.GetOrCreate(RootFolderName, "")
	if err != nil {
		return "", err
	}
	return fm.GetOrCreate(RecordsFolderName, rootID)
}
