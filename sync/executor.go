package sync

import (
	"context"
	"errors"
	"fmt"
	"formtable/database"
	"formtable/storage"
	"log"
)

// ==================== SYNC EXECUTION ====================

// syncPendingRecords pushes one batch of pending records.
// Returns true if work was found, false otherwise.
func (w *Worker) syncPendingRecords() bool {
	recs, err := w.repo.GetPendingSyncRecords(batchSize)
	if err != nil {
		log.Printf("[Sync Worker] Failed to get pending records: %v", err)
		return false
	}

	if len(recs) == 0 {
		return false
	}

	oldRecs := filterOldRecords(recs, w.minAge)
	if len(oldRecs) == 0 {
		return false
	}

	log.Printf("[Sync Worker] Processing %d pending/failed records", len(oldRecs))

	recsByUser := make(map[string][]database.PendingRecord)
	for _, rec := range oldRecs {
		recsByUser[rec.UserID] = append(recsByUser[rec.UserID], rec)
	}

	for userID, userRecs := range recsByUser {
		w.syncUserRecords(userID, userRecs)
	}

	return true
}

// syncUserRecords syncs a batch of records for a specific user
func (w *Worker) syncUserRecords(userID string, recs []database.PendingRecord) {
	result := w.syncRecordsWithDrive(userID, recs, "Sync Worker")

	if result.syncedCount > 0 || result.failedCount > 0 {
		log.Printf("[Sync Worker] Sync complete for user %s: %d succeeded, %d failed out of %d total",
			userID, result.syncedCount, result.failedCount, len(recs))
	}
}

// syncRecordsWithDrive is the sync logic shared by the batch loop and immediate sync.
// It resolves the token, builds the provider, pushes the records and saves a refreshed token.
func (w *Worker) syncRecordsWithDrive(userID string, recs []database.PendingRecord, logPrefix string) *syncResult {
	result := &syncResult{}

	token, err := w.getUserToken(userID)
	if errors.Is(err, ErrDriveNotLinked) {
		result.localCount = w.keepLocal(recs, logPrefix)
		return result
	}
	if err != nil {
		log.Printf("[%s] Failed to get token for user %s: %v", logPrefix, userID, err)
		w.markRecordsAsFailed(recs, fmt.Sprintf("Failed to get authentication token: %v", err))
		result.failedCount = len(recs)
		return result
	}

	provider, err := w.storageFactory(context.Background(), token, userID)
	if err != nil {
		log.Printf("[%s] Failed to create storage provider for user %s: %v", logPrefix, userID, err)
		w.markRecordsAsFailed(recs, fmt.Sprintf("Failed to connect to cloud storage: %v", err))
		result.failedCount = len(recs)
		return result
	}

	// Deletions go first so a recreated id never races its own tombstone
	ordered := make([]database.PendingRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Deleted {
			ordered = append(ordered, rec)
		}
	}
	for _, rec := range recs {
		if !rec.Deleted {
			ordered = append(ordered, rec)
		}
	}

	for i := range ordered {
		rec := &ordered[i]
		if err := w.repo.MarkRecordSyncing(rec.ID); err != nil {
			log.Printf("[%s] Failed to mark record as syncing: %v", logPrefix, err)
		}

		if err := w.syncRecord(provider, rec); err != nil {
			if isTokenExpiredError(err) {
				log.Printf("[%s] Token expired for user %s, stopping sync", logPrefix, userID)
				result.tokenExpired = true
				w.markRecordsAsFailed(ordered[i:], "Authentication token expired, please sign in again")
				result.failedCount += len(ordered) - i
				break
			}

			action := "Sync"
			if rec.Deleted {
				action = "Delete"
			}
			if err := w.repo.MarkRecordSyncFailed(rec.ID, fmt.Sprintf("%s failed: %v", action, err)); err != nil {
				log.Printf("[%s] Failed to mark record %s as failed: %v", logPrefix, rec.ID, err)
			}
			result.failedCount++
			continue
		}
		result.syncedCount++
	}

	if !result.tokenExpired {
		w.updateTokenIfRefreshed(provider, token, userID, logPrefix)
	}

	return result
}

// syncRecord pushes a single record to cloud storage
func (w *Worker) syncRecord(provider storage.Provider, rec *database.PendingRecord) error {
	if rec.Deleted {
		if err := provider.DeleteRecord(rec.ID, rec.DriveFileID); err != nil {
			return err
		}
		return w.repo.HardDeleteRecord(rec.ID)
	}

	fileID, err := provider.UpsertRecord(rec.Record, rec.DriveFileID)
	if err != nil {
		return err
	}

	return w.repo.MarkRecordSynced(rec.ID, fileID)
}

// keepLocal settles the queue of a user without Drive: tombstones are removed
// for good and live records are parked as local-only
func (w *Worker) keepLocal(recs []database.PendingRecord, logPrefix string) int {
	settled := 0
	for _, rec := range recs {
		var err error
		if rec.Deleted {
			err = w.repo.HardDeleteRecord(rec.ID)
		} else {
			err = w.repo.MarkRecordLocalOnly(rec.ID)
		}
		if err != nil {
			log.Printf("[%s] Failed to keep record %s local: %v", logPrefix, rec.ID, err)
			continue
		}
		settled++
	}
	return settled
}

// SyncRecordImmediate pushes one record in the background right after it changed.
// Records that are no longer pending are skipped.
func (w *Worker) SyncRecordImmediate(userID, recordID string) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()

		rec, err := w.repo.GetPendingSyncRecord(userID, recordID)
		if err != nil {
			log.Printf("[Immediate Sync] Failed to get record %s: %v", recordID, err)
			return
		}
		if rec == nil {
			return
		}

		result := w.syncRecordsWithDrive(userID, []database.PendingRecord{*rec}, "Immediate Sync")

		if result.syncedCount > 0 {
			log.Printf("[Immediate Sync] Successfully synced record %s", recordID)
		} else if result.failedCount > 0 {
			log.Printf("[Immediate Sync] Failed to sync record %s", recordID)
		}
	}()
}

// SyncUserImmediate pushes everything a user has pending, used after batch changes
func (w *Worker) SyncUserImmediate(userID string) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()

		recs, err := w.repo.GetUserPendingSyncRecords(userID, batchSize)
		if err != nil {
			log.Printf("[Immediate Sync] Failed to get pending records for user %s: %v", userID, err)
			return
		}
		if len(recs) == 0 {
			return
		}

		result := w.syncRecordsWithDrive(userID, recs, "Immediate Sync")
		log.Printf("[Immediate Sync] User %s: %d synced, %d failed, %d kept local",
			userID, result.syncedCount, result.failedCount, result.localCount)
	}()
}
