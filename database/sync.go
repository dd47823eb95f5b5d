package database

import (
	"database/sql"
	"formtable/models"
	"time"
)

// ==================== SYNC OPERATIONS ====================

// PendingRecord is a record together with the sync metadata the worker needs
type PendingRecord struct {
	models.StoredRecord
	DriveFileID string
	Deleted     bool
}

const pendingColumns = `id, user_id, first_name, last_name, age, description,
	drive_file_id, deleted, sync_retry_count, sync_last_attempt_at,
	created_at, updated_at`

func scanPendingRecord(row interface{ Scan(...any) error }) (*PendingRecord, error) {
	var rec PendingRecord
	var description, driveFileID sql.NullString
	var syncLastAttemptAt sql.NullTime
	var deleted int
	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FirstName, &rec.LastName, &rec.Age, &description,
		&driveFileID, &deleted, &rec.SyncRetryCount, &syncLastAttemptAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Description = description.String
	rec.DriveFileID = driveFileID.String
	rec.Deleted = deleted == 1
	if syncLastAttemptAt.Valid {
		rec.SyncLastAttemptAt = &syncLastAttemptAt.Time
	}
	return &rec, nil
}

func (r *Repository) queryPending(query string, args ...any) ([]PendingRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingRecord
	for rows.Next() {
		rec, err := scanPendingRecord(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *rec)
	}

	return pending, rows.Err()
}

// GetPendingSyncRecords retrieves records that need to be pushed to Drive,
// oldest change first
func (r *Repository) GetPendingSyncRecords(limit int) ([]PendingRecord, error) {
	return r.queryPending(`
		SELECT `+pendingColumns+`
		FROM records
		WHERE sync_pending = 1
		ORDER BY updated_at ASC
		LIMIT ?
	`, limit)
}

// GetUserPendingSyncRecords is GetPendingSyncRecords narrowed to one user
func (r *Repository) GetUserPendingSyncRecords(userID string, limit int) ([]PendingRecord, error) {
	return r.queryPending(`
		SELECT `+pendingColumns+`
		FROM records
		WHERE user_id = ? AND sync_pending = 1
		ORDER BY updated_at ASC
		LIMIT ?
	`, userID, limit)
}

// GetPendingSyncRecord returns a record awaiting push, tombstones included.
// nil means the record is unknown or already in sync.
func (r *Repository) GetPendingSyncRecord(userID, recordID string) (*PendingRecord, error) {
	rec, err := scanPendingRecord(r.db.QueryRow(`
		SELECT `+pendingColumns+`
		FROM records
		WHERE user_id = ? AND id = ? AND sync_pending = 1
	`, userID, recordID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// GetDriveFileID returns the Drive file holding a record, empty when never pushed
func (r *Repository) GetDriveFileID(recordID string) (string, error) {
	var driveFileID sql.NullString
	err := r.db.QueryRow(`SELECT drive_file_id FROM records WHERE id = ?`, recordID).Scan(&driveFileID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return driveFileID.String, err
}

// MarkRecordSynced marks a record as successfully pushed to Drive
func (r *Repository) MarkRecordSynced(recordID, driveFileID string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE records SET
			drive_file_id = ?,
			sync_pending = 0,
			sync_status = ?,
			sync_retry_count = 0,
			sync_error = NULL,
			sync_last_attempt_at = ?,
			synced_at = ?
		WHERE id = ?
	`, driveFileID, string(models.SyncStatusSynced), now, now, recordID)
	return err
}

// MarkRecordSyncing marks a record as currently being pushed
func (r *Repository) MarkRecordSyncing(recordID string) error {
	_, err := r.db.Exec(`
		UPDATE records SET
			sync_status = ?,
			sync_last_attempt_at = ?
		WHERE id = ?
	`, string(models.SyncStatusSyncing), time.Now(), recordID)
	return err
}

// MarkRecordSyncFailed records a failed push and increments the retry count.
// The record is abandoned once MaxSyncRetries is reached.
func (r *Repository) MarkRecordSyncFailed(recordID string, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE records SET
			sync_status = CASE
				WHEN sync_retry_count + 1 >= ? THEN ?
				ELSE ?
			END,
			sync_retry_count = sync_retry_count + 1,
			sync_error = ?,
			sync_last_attempt_at = ?,
			sync_pending = CASE
				WHEN sync_retry_count + 1 >= ? THEN 0
				ELSE 1
			END
		WHERE id = ?
	`, models.MaxSyncRetries, string(models.SyncStatusAbandoned),
		string(models.SyncStatusFailed), errorMsg, time.Now(),
		models.MaxSyncRetries, recordID)
	return err
}

// MarkRecordAsNotPending stops retrying a record that cannot be pushed at all
func (r *Repository) MarkRecordAsNotPending(recordID string) error {
	_, err := r.db.Exec(`
		UPDATE records SET
			sync_pending = 0,
			sync_status = ?
		WHERE id = ?
	`, string(models.SyncStatusAbandoned), recordID)
	return err
}

// GetFailedSyncRecords returns a user's records whose push failed or was abandoned
func (r *Repository) GetFailedSyncRecords(userID string, limit int) ([]models.StoredRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ? AND deleted = 0 AND sync_status IN (?, ?)
		ORDER BY sync_last_attempt_at DESC
		LIMIT ?
	`, userID, string(models.SyncStatusFailed), string(models.SyncStatusAbandoned), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	failed := make([]models.StoredRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		failed = append(failed, *rec)
	}

	return failed, rows.Err()
}

// GetSyncCounts returns how many live records of a user sit in each sync status
func (r *Repository) GetSyncCounts(userID string) (map[models.SyncStatus]int, error) {
	rows, err := r.db.Query(`
		SELECT sync_status, COUNT(*)
		FROM records
		WHERE user_id = ? AND deleted = 0
		GROUP BY sync_status
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status sql.NullString
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.SyncStatus(status.String)] += n
	}

	return counts, rows.Err()
}

// RetrySyncRecord resets a failed record so the worker picks it up again
func (r *Repository) RetrySyncRecord(userID, recordID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE records SET
			sync_pending = 1,
			sync_status = ?,
			sync_retry_count = 0,
			sync_error = NULL
		WHERE user_id = ? AND id = ? AND sync_status IN (?, ?)
	`, string(models.SyncStatusPending), userID, recordID,
		string(models.SyncStatusFailed), string(models.SyncStatusAbandoned))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkRecordLocalOnly takes a record out of the queue because its owner has no
// Drive linked. QueueLocalRecords puts it back once Drive is linked.
func (r *Repository) MarkRecordLocalOnly(recordID string) error {
	_, err := r.db.Exec(`
		UPDATE records SET
			sync_pending = 0,
			sync_status = ?,
			sync_error = NULL
		WHERE id = ?
	`, string(models.SyncStatusLocal), recordID)
	return err
}

// QueueLocalRecords marks every local-only record of a user as pending again
func (r *Repository) QueueLocalRecords(userID string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE records SET
			sync_pending = 1,
			sync_status = ?,
			sync_retry_count = 0
		WHERE user_id = ? AND sync_status = ?
	`, string(models.SyncStatusPending), userID, string(models.SyncStatusLocal))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
