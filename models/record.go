package models

import "time"

type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusAbandoned SyncStatus = "abandoned"
	// SyncStatusLocal marks records of users without a linked Drive
	SyncStatusLocal SyncStatus = "local"
)

// MaxSyncRetries is the number of failed pushes after which a record is abandoned
const MaxSyncRetries = 5

// Record is one row of the data table, created from the data-entry form
type Record struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Age         int    `json:"age"`
	Description string `json:"description"`
}

// StoredRecord is a record as persisted for a user, with timestamps and sync metadata
type StoredRecord struct {
	Record
	UserID            string     `json:"userId"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	SyncStatus        SyncStatus `json:"syncStatus,omitempty"`
	SyncRetryCount    int        `json:"syncRetryCount,omitempty"`
	SyncLastAttemptAt *time.Time `json:"syncLastAttemptAt,omitempty"`
	SyncError         string     `json:"syncError,omitempty"`
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sortable record fields
const (
	FieldID          = "id"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldAge         = "age"
	FieldDescription = "description"
)

type SortConfig struct {
	Key       string        `json:"key" validate:"required,sortkey"`
	Direction SortDirection `json:"direction" validate:"required,sortdir"`
}

// FilterCriteria narrows the table; nil fields are unconstrained
type FilterCriteria struct {
	AgeMin    *int   `json:"ageMin,omitempty" validate:"omitempty,gte=0"`
	AgeMax    *int   `json:"ageMax,omitempty" validate:"omitempty,gte=0"`
	Substring string `json:"substring,omitempty" validate:"max=200"`
}

// IsEmpty reports whether no constraint is set
func (f FilterCriteria) IsEmpty() bool {
	return f.AgeMin == nil && f.AgeMax == nil && f.Substring == ""
}

type Pagination struct {
	Page  int `json:"page" validate:"gte=1"`
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// ==================== REQUESTS ====================

type RecordRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=1,max=100,personname"`
	LastName    string `json:"lastName" validate:"required,min=1,max=100,personname"`
	Age         int    `json:"age" validate:"gte=1,lte=150"`
	Description string `json:"description" validate:"max=1000"`
}

type DeleteRecordsRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,uuid"`
	All bool     `json:"all"`
}

// RecordQuery is the query string of a stateless record listing.
// Zero page and limit fall back to the defaults.
type RecordQuery struct {
	Page    int    `query:"page" json:"page" validate:"gte=0"`
	Limit   int    `query:"limit" json:"limit" validate:"gte=0,lte=100"`
	SortKey string `query:"sortKey" json:"sortKey" validate:"required_with=SortDir,omitempty,sortkey"`
	SortDir string `query:"sortDir" json:"sortDir" validate:"omitempty,sortdir"`
	AgeMin  *int   `query:"ageMin" json:"ageMin" validate:"omitempty,gte=0"`
	AgeMax  *int   `query:"ageMax" json:"ageMax" validate:"omitempty,gte=0"`
	Q       string `query:"q" json:"q" validate:"max=200"`
}

// Sort returns the requested ordering, or nil when none was asked for.
// A key without a direction sorts ascending.
func (q RecordQuery) Sort() *SortConfig {
	if q.SortKey == "" {
		return nil
	}
	dir := SortDirection(q.SortDir)
	if dir == "" {
		dir = SortAsc
	}
	return &SortConfig{Key: q.SortKey, Direction: dir}
}

// Criteria returns the requested filters, or nil when none were given
func (q RecordQuery) Criteria() *FilterCriteria {
	f := FilterCriteria{AgeMin: q.AgeMin, AgeMax: q.AgeMax, Substring: q.Q}
	if f.IsEmpty() {
		return nil
	}
	return &f
}
