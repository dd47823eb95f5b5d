package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"formtable/models"
	"formtable/records"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	recordMimeType = "application/json"
	recordSuffix   = ".json"

	// downloadConcurrency bounds parallel downloads of one page
	downloadConcurrency = 4
)

// RecordManager stores each record as formtable/records/<id>.json
type RecordManager struct {
	client        *Client
	folderManager *FolderManager
	fileManager   *FileManager
}

func NewRecordManager(client *Client, folderMgr *FolderManager, fileMgr *FileManager) *RecordManager {
	return &RecordManager{
		client:        client,
		folderManager: folderMgr,
		fileManager:   fileMgr,
	}
}

func recordFilename(recordID string) string {
	return recordID + recordSuffix
}

// Upsert writes a record and returns the Drive file id holding it.
// A known fileID skips the lookup by name.
func (rm *RecordManager) Upsert(rec models.Record, fileID string) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	if fileID != "" {
		err := rm.fileManager.Update(fileID, bytes.NewReader(data))
		if err == nil {
			return fileID, nil
		}
		if !isNotFound(err) {
			return "", err
		}
		// The file was removed on the Drive side; fall through and recreate it
	}

	folderID, err := rm.folderManager.GetRecordsFolder()
	if err != nil {
		return "", err
	}

	existing, err := rm.fileManager.Find(recordFilename(rec.ID), folderID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := rm.fileManager.Update(existing.Id, bytes.NewReader(data)); err != nil {
			return "", err
		}
		return existing.Id, nil
	}

	file, err := rm.fileManager.Create(recordFilename(rec.ID), folderID, recordMimeType, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

// Delete removes a record file. A file that is already gone is not an error.
func (rm *RecordManager) Delete(recordID, fileID string) error {
	if fileID == "" {
		folderID, err := rm.folderManager.GetRecordsFolder()
		if err != nil {
			return err
		}
		file, err := rm.fileManager.Find(recordFilename(recordID), folderID)
		if err != nil {
			return err
		}
		if file == nil {
			return nil
		}
		fileID = file.Id
	}

	if err := rm.fileManager.Delete(fileID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (rm *RecordManager) list(ctx context.Context) ([]*drive.File, error) {
	folderID, err := rm.folderManager.GetRecordsFolder()
	if err != nil {
		return nil, err
	}

	files, err := rm.fileManager.ListInFolder(ctx, folderID, "createdTime")
	if err != nil {
		return nil, err
	}

	out := files[:0]
	for _, f := range files {
		if strings.HasSuffix(f.Name, recordSuffix) {
			out = append(out, f)
		}
	}
	return out, nil
}

// FetchPage lists the record files in creation order and downloads one page of them
func (rm *RecordManager) FetchPage(ctx context.Context, page, limit int) (records.Page, error) {
	files, err := rm.list(ctx)
	if err != nil {
		return records.Page{}, err
	}

	start := (page - 1) * limit
	if page < 1 || limit < 1 || start >= len(files) {
		return records.Page{Records: []models.Record{}, Total: len(files)}, nil
	}
	end := start + limit
	if end > len(files) {
		end = len(files)
	}

	recs, err := rm.download(ctx, files[start:end])
	if err != nil {
		return records.Page{}, err
	}
	return records.Page{Records: recs, Total: len(files)}, nil
}

// GetAll downloads every record, used by the initial import
func (rm *RecordManager) GetAll(ctx context.Context) ([]models.Record, error) {
	files, err := rm.list(ctx)
	if err != nil {
		return nil, err
	}
	return rm.download(ctx, files)
}

func (rm *RecordManager) download(ctx context.Context, files []*drive.File) ([]models.Record, error) {
	recs := make([]models.Record, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)

	for i, f := range files {
		g.Go(func() error {
			data, err := rm.fileManager.Download(gctx, f.Id)
			if err != nil {
				return fmt.Errorf("download %s: %w", f.Name, err)
			}
			var rec models.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", f.Name, err)
			}
			if rec.ID == "" {
				rec.ID = strings.TrimSuffix(f.Name, recordSuffix)
			}
			recs[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
