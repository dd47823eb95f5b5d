package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
)

const fileFields = "id, name, createdTime, modifiedTime"

// FileManager handles generic file operations in Google Drive
type FileManager struct {
	client *Client
}

func NewFileManager(client *Client) *FileManager {
	return &FileManager{client: client}
}

// Find searches for a file by name in a specific folder, nil when absent
func (fm *FileManager) Find(filename, parentID string) (*drive.File, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escapeQuery(filename), parentID)
	fileList, err := fm.client.Service().Files.List().
		Q(query).
		Fields("files(" + fileFields + ")").
		Do()
	if err != nil {
		return nil, err
	}

	if len(fileList.Files) == 0 {
		return nil, nil
	}

	return fileList.Files[0], nil
}

// Download downloads the content of a file
func (fm *FileManager) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := fm.client.Service().Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Create creates a new file with the given content
func (fm *FileManager) Create(name, parentID, mimeType string, content io.Reader) (*drive.File, error) {
	fileMetadata := &drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: mimeType,
	}

	return fm.client.Service().Files.Create(fileMetadata).
		Media(content).
		Fields(fileFields).
		Do()
}

// Update replaces an existing file's content
func (fm *FileManager) Update(fileID string, content io.Reader) error {
	_, err := fm.client.Service().Files.Update(fileID, &drive.File{}).
		Media(content).
		Do()
	return err
}

func (fm *FileManager) Delete(fileID string) error {
	return fm.client.Service().Files.Delete(fileID).Do()
}

// ListInFolder returns every file in a folder, following page tokens
func (fm *FileManager) ListInFolder(ctx context.Context, parentID, orderBy string) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", parentID)

	call := fm.client.Service().Files.List().
		Q(query).
		Fields("nextPageToken, files(" + fileFields + ")").
		PageSize(1000)
	if orderBy != "" {
		call.OrderBy(orderBy)
	}

	var files []*drive.File
	err := call.Pages(ctx, func(page *drive.FileList) error {
		files = append(files, page.Files...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}
