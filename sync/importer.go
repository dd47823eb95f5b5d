package sync

import (
	"context"
	"formtable/models"
	"log"

	"golang.org/x/oauth2"
)

// ==================== CLOUD STORAGE IMPORT ====================

// ImportFromDrive copies every record stored in the user's Drive folder into
// the local database, marked as already synced. Returns how many were imported.
func (w *Worker) ImportFromDrive(ctx context.Context, userID string, token *oauth2.Token) (int, error) {
	log.Printf("[Sync Worker] Starting storage import for user %s", userID)

	provider, err := w.storageFactory(ctx, token, userID)
	if err != nil {
		return 0, err
	}

	remote, err := provider.GetAllRecords(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, rec := range remote {
		if rec.ID == "" {
			continue
		}
		stored := &models.StoredRecord{Record: rec, UserID: userID}
		if err := w.repo.UpsertRecord(stored, false); err != nil {
			log.Printf("[Sync Worker] Failed to import record %s: %v", rec.ID, err)
			continue
		}
		imported++
	}

	w.updateTokenIfRefreshed(provider, token, userID, "Sync Worker")

	log.Printf("[Sync Worker] Imported %d of %d records from storage", imported, len(remote))
	return imported, nil
}

// OnDriveLinked runs after a user connects Drive. An empty account pulls the
// Drive copy; otherwise the local-only records are queued for upload.
func (w *Worker) OnDriveLinked(ctx context.Context, userID string, token *oauth2.Token) error {
	count, err := w.repo.CountRecords(userID)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err := w.ImportFromDrive(ctx, userID, token)
		return err
	}

	queued, err := w.repo.QueueLocalRecords(userID)
	if err != nil {
		return err
	}
	if queued > 0 {
		log.Printf("[Sync Worker] Queued %d local records of user %s for upload", queued, userID)
		w.SyncUserImmediate(userID)
	}
	return nil
}
