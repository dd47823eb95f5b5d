package database

import (
	"context"
	"database/sql"
	"formtable/models"
	"formtable/records"
	"strings"
	"time"
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// ==================== RECORDS ====================

const recordColumns = `id, user_id, first_name, last_name, age, description,
	sync_status, sync_retry_count, sync_last_attempt_at, sync_error,
	created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*models.StoredRecord, error) {
	var rec models.StoredRecord
	var description, syncStatus, syncError sql.NullString
	var syncLastAttemptAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FirstName, &rec.LastName, &rec.Age, &description,
		&syncStatus, &rec.SyncRetryCount, &syncLastAttemptAt, &syncError,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Description = description.String
	rec.SyncStatus = models.SyncStatus(syncStatus.String)
	rec.SyncError = syncError.String
	if syncLastAttemptAt.Valid {
		rec.SyncLastAttemptAt = &syncLastAttemptAt.Time
	}
	return &rec, nil
}

// GetRecord returns a live record owned by userID, nil when absent or deleted
func (r *Repository) GetRecord(userID, recordID string) (*models.StoredRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(`
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ? AND id = ? AND deleted = 0
	`, userID, recordID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// UpsertRecord inserts or updates a record. Tombstoned rows are left alone so
// a late edit cannot resurrect a record whose remote copy is being removed.
func (r *Repository) UpsertRecord(rec *models.StoredRecord, markForSync bool) error {
	syncPending := 0
	syncStatus := string(models.SyncStatusSynced)
	if markForSync {
		syncPending = 1
		syncStatus = string(models.SyncStatusPending)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err := r.db.Exec(`
		INSERT INTO records (id, user_id, first_name, last_name, age, description,
			sync_pending, sync_status, sync_retry_count, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			age = excluded.age,
			description = excluded.description,
			sync_pending = excluded.sync_pending,
			sync_status = excluded.sync_status,
			sync_retry_count = 0,
			sync_error = NULL,
			updated_at = excluded.updated_at
		WHERE records.deleted = 0 AND records.user_id = excluded.user_id
	`,
		rec.ID, rec.UserID, rec.FirstName, rec.LastName, rec.Age, rec.Description,
		syncPending, syncStatus, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rec.SyncStatus = models.SyncStatus(syncStatus)
	rec.SyncRetryCount = 0
	rec.SyncError = ""
	return nil
}

// ListRecords returns every live record of a user in creation order
func (r *Repository) ListRecords(userID string) ([]models.StoredRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ? AND deleted = 0
		ORDER BY created_at ASC, rowid ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.StoredRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}

	return list, rows.Err()
}

// CountRecords returns the number of live records of a user
func (r *Repository) CountRecords(userID string) (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM records WHERE user_id = ? AND deleted = 0`, userID).Scan(&total)
	return total, err
}

// FetchPage returns one page of a user's records in creation order along with
// the total number of live records
func (r *Repository) FetchPage(ctx context.Context, userID string, page, limit int) (records.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = records.DefaultPagination.Limit
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE user_id = ? AND deleted = 0`, userID,
	).Scan(&total); err != nil {
		return records.Page{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, age, description
		FROM records
		WHERE user_id = ? AND deleted = 0
		ORDER BY created_at ASC, rowid ASC
		LIMIT ? OFFSET ?
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return records.Page{}, err
	}
	defer rows.Close()

	result := records.Page{Records: make([]models.Record, 0, limit), Total: total}
	for rows.Next() {
		var rec models.Record
		var description sql.NullString
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Age, &description); err != nil {
			return records.Page{}, err
		}
		rec.Description = description.String
		result.Records = append(result.Records, rec)
	}

	return result, rows.Err()
}

// UserSource exposes one user's records as a page source
func (r *Repository) UserSource(userID string) records.Source {
	return records.SourceFunc(func(ctx context.Context, page, limit int) (records.Page, error) {
		return r.FetchPage(ctx, userID, page, limit)
	})
}

// DeleteRecord marks a record as deleted and pending sync instead of removing
// it, so the sync worker can delete the Drive copy first
func (r *Repository) DeleteRecord(userID, recordID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE records
		SET deleted = 1, sync_pending = 1, sync_status = ?, sync_retry_count = 0, updated_at = ?
		WHERE user_id = ? AND id = ? AND deleted = 0
	`, string(models.SyncStatusPending), time.Now(), userID, recordID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteRecords tombstones every listed record and reports how many were live
func (r *Repository) DeleteRecords(userID string, recordIDs []string) (int, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(recordIDs)+3)
	args = append(args, string(models.SyncStatusPending), time.Now(), userID)
	for _, id := range recordIDs {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(recordIDs)), ",")

	res, err := r.db.Exec(`
		UPDATE records
		SET deleted = 1, sync_pending = 1, sync_status = ?, sync_retry_count = 0, updated_at = ?
		WHERE user_id = ? AND deleted = 0 AND id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteAllRecords tombstones every live record of a user
func (r *Repository) DeleteAllRecords(userID string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE records
		SET deleted = 1, sync_pending = 1, sync_status = ?, sync_retry_count = 0, updated_at = ?
		WHERE user_id = ? AND deleted = 0
	`, string(models.SyncStatusPending), time.Now(), userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// HardDeleteRecord actually removes the row.
// Only called once the Drive copy is gone or never existed.
func (r *Repository) HardDeleteRecord(recordID string) error {
	_, err := r.db.Exec(`DELETE FROM records WHERE id = ?`, recordID)
	return err
}
