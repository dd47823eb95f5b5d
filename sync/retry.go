package sync

import (
	"errors"
	"formtable/database"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ==================== RETRY LOGIC & BACKOFF ====================

// syncResult holds the result of a sync operation
type syncResult struct {
	syncedCount  int
	failedCount  int
	localCount   int
	tokenExpired bool
}

// filterOldRecords keeps records whose last attempt (or last change, when never
// attempted) is at least minAge ago
func filterOldRecords(recs []database.PendingRecord, minAge time.Duration) []database.PendingRecord {
	var oldRecs []database.PendingRecord
	now := time.Now()

	for _, rec := range recs {
		last := rec.UpdatedAt
		if rec.SyncLastAttemptAt != nil {
			last = *rec.SyncLastAttemptAt
		}
		if now.Sub(last) >= minAge {
			oldRecs = append(oldRecs, rec)
		}
	}

	return oldRecs
}

// isTokenExpiredError checks if an error is related to token expiration
func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "token expired") ||
		strings.Contains(errMsg, "Token has been expired") ||
		strings.Contains(errMsg, "invalid_grant")
}

// markRecordsAsFailed marks a batch of records as failed with an error message
func (w *Worker) markRecordsAsFailed(recs []database.PendingRecord, errorMsg string) {
	for _, rec := range recs {
		if err := w.repo.MarkRecordSyncFailed(rec.ID, errorMsg); err != nil {
			log.Printf("[Sync Worker] Failed to mark record %s as failed: %v", rec.ID, err)
		}
	}
}
