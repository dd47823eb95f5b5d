package services

import (
	"context"
	"formtable/models"
	"formtable/records"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// failedListLimit bounds the failed records returned by SyncStatus
const failedListLimit = 50

// RecordService handles business logic for records. Mutations go to the
// database first and are mirrored into the user's workspace.
type RecordService struct {
	repo       RecordRepository
	syncWorker SyncWorker
	sourceFor  SourceFactory
	pagination models.Pagination
	throttle   time.Duration

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRecordService creates a new record service. syncWorker may be nil.
func NewRecordService(repo RecordRepository, syncWorker SyncWorker, sourceFor SourceFactory, defaultLimit int, throttle time.Duration) *RecordService {
	pagination := records.DefaultPagination
	if defaultLimit > 0 {
		pagination.Limit = defaultLimit
	}
	return &RecordService{
		repo:       repo,
		syncWorker: syncWorker,
		sourceFor:  sourceFor,
		pagination: pagination,
		throttle:   throttle,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the user's workspace, creating it from the stored records on first use
func (rs *RecordService) Workspace(userID string) (*Workspace, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if ws, ok := rs.workspaces[userID]; ok {
		return ws, nil
	}

	stored, err := rs.repo.ListRecords(userID)
	if err != nil {
		return nil, err
	}
	seed := make([]models.Record, len(stored))
	for i, rec := range stored {
		seed[i] = rec.Record
	}

	ws := newWorkspace(rs.sourceFor(userID), rs.pagination, rs.throttle, seed)
	rs.workspaces[userID] = ws
	return ws, nil
}

// Forget drops the in-memory workspace of a user
func (rs *RecordService) Forget(userID string) {
	rs.mu.Lock()
	delete(rs.workspaces, userID)
	rs.mu.Unlock()
}

// ==================== STATELESS QUERY ====================

// QueryResult is one page of a stateless query
type QueryResult struct {
	Records    []models.Record `json:"data"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

// Query runs the filter, sort and paginate pipeline over all stored records
// without touching the workspace. Total counts the filtered rows.
func (rs *RecordService) Query(userID string, criteria *models.FilterCriteria, sortConfig *models.SortConfig, pagination models.Pagination) (*QueryResult, error) {
	stored, err := rs.repo.ListRecords(userID)
	if err != nil {
		return nil, err
	}
	all := make([]models.Record, len(stored))
	for i, rec := range stored {
		all[i] = rec.Record
	}

	if criteria != nil && criteria.IsEmpty() {
		criteria = nil
	}
	total := len(records.Filter(all, criteria))

	return &QueryResult{
		Records:    records.Apply(all, criteria, sortConfig, &pagination),
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		Total:      total,
		TotalPages: records.TotalPages(total, pagination.Limit),
	}, nil
}

// ==================== MUTATIONS ====================

func recordFromRequest(id string, req models.RecordRequest) models.Record {
	return models.Record{
		ID:          id,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Age:         req.Age,
		Description: strings.TrimSpace(req.Description),
	}
}

// Create stores a new record under a fresh id
func (rs *RecordService) Create(userID string, req models.RecordRequest) (*models.Record, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}

	rec := recordFromRequest(uuid.New().String(), req)
	if err := rs.repo.UpsertRecord(&models.StoredRecord{Record: rec, UserID: userID}, true); err != nil {
		return nil, err
	}
	ws.Store.Add(rec)

	if rs.syncWorker != nil {
		rs.syncWorker.SyncRecordImmediate(userID, rec.ID)
	}
	return &rec, nil
}

// Update replaces the fields of an existing record
func (rs *RecordService) Update(userID, recordID string, req models.RecordRequest) (*models.Record, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}

	existing, err := rs.repo.GetRecord(userID, recordID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrRecordNotFound
	}

	rec := recordFromRequest(recordID, req)
	stored := &models.StoredRecord{Record: rec, UserID: userID, CreatedAt: existing.CreatedAt}
	if err := rs.repo.UpsertRecord(stored, true); err != nil {
		return nil, err
	}
	ws.Store.Edit(recordID, rec)

	if rs.syncWorker != nil {
		rs.syncWorker.SyncRecordImmediate(userID, recordID)
	}
	return &rec, nil
}

// Delete removes one record
func (rs *RecordService) Delete(userID, recordID string) error {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return err
	}

	ok, err := rs.repo.DeleteRecord(userID, recordID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecordNotFound
	}
	ws.Store.Delete(recordID)

	if rs.syncWorker != nil {
		rs.syncWorker.SyncRecordImmediate(userID, recordID)
	}
	return nil
}

// DeleteMany removes every listed record and reports how many existed
func (rs *RecordService) DeleteMany(userID string, recordIDs []string) (int, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return 0, err
	}

	n, err := rs.repo.DeleteRecords(userID, recordIDs)
	if err != nil {
		return 0, err
	}
	ws.Store.DeleteMany(recordIDs)

	if n > 0 && rs.syncWorker != nil {
		rs.syncWorker.SyncUserImmediate(userID)
	}
	return n, nil
}

// Clear removes every record of the user
func (rs *RecordService) Clear(userID string) (int, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return 0, err
	}

	n, err := rs.repo.DeleteAllRecords(userID)
	if err != nil {
		return 0, err
	}
	ws.Store.Clear()

	if n > 0 && rs.syncWorker != nil {
		rs.syncWorker.SyncUserImmediate(userID)
	}
	return n, nil
}

// ==================== TABLE CONFIGURATION ====================

func (rs *RecordService) Table(userID string) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	view := ws.Table()
	return &view, nil
}

// SetSort replaces the sort; nil restores insertion order
func (rs *RecordService) SetSort(userID string, cfg *models.SortConfig) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	ws.Store.SetSortConfig(cfg)
	ws.restartPaging()
	view := ws.Table()
	return &view, nil
}

// ToggleSort sorts ascending by key or flips the direction of the active key
func (rs *RecordService) ToggleSort(userID, key string) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	ws.Store.ToggleSort(key)
	ws.restartPaging()
	view := ws.Table()
	return &view, nil
}

// SetFilters replaces the filters and returns to page 1
func (rs *RecordService) SetFilters(userID string, criteria models.FilterCriteria) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	ws.Store.SetFilters(criteria)
	ws.restartPaging()
	view := ws.Table()
	return &view, nil
}

// SetPagination moves page mode. A new limit starts over at page 1.
func (rs *RecordService) SetPagination(userID string, pagination models.Pagination) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	limitChanged := pagination.Limit != ws.Store.Snapshot().Pagination.Limit
	ws.Store.SetPagination(pagination)
	if limitChanged {
		ws.restartPaging()
	}
	view := ws.Table()
	return &view, nil
}

// ==================== REMOTE PAGING ====================

// FetchPage loads one page from the workspace source (page mode). A failed
// fetch is reported in the returned view as well as in the error.
func (rs *RecordService) FetchPage(ctx context.Context, userID string, pagination models.Pagination) (*TableView, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	fetchErr := ws.Feed.Fetch(ctx, pagination.Page, pagination.Limit)
	view := ws.Table()
	return &view, fetchErr
}

// LoadMore appends the next page in scroll mode
func (rs *RecordService) LoadMore(ctx context.Context, userID string) (*ScrollState, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	loadErr := ws.Scroller.LoadMore(ctx)
	state := ws.ScrollState()
	return &state, loadErr
}

// RestartScroll empties scroll mode and loads page 1 again
func (rs *RecordService) RestartScroll(ctx context.Context, userID string) (*ScrollState, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	loadErr := ws.Scroller.Restart(ctx)
	state := ws.ScrollState()
	return &state, loadErr
}

func (rs *RecordService) Scroll(userID string) (*ScrollState, error) {
	ws, err := rs.Workspace(userID)
	if err != nil {
		return nil, err
	}
	state := ws.ScrollState()
	return &state, nil
}

// ==================== SYNC STATUS ====================

// SyncStatusReport summarizes how far a user's records are pushed to Drive
type SyncStatusReport struct {
	Counts       map[models.SyncStatus]int `json:"counts"`
	PendingCount int                       `json:"pending_count"`
	FailedCount  int                       `json:"failed_count"`
	Failed       []models.StoredRecord     `json:"failed_records"`
}

// SyncStatus returns sync status information for the user
func (rs *RecordService) SyncStatus(userID string) (*SyncStatusReport, error) {
	counts, err := rs.repo.GetSyncCounts(userID)
	if err != nil {
		return nil, err
	}

	failed, err := rs.repo.GetFailedSyncRecords(userID, failedListLimit)
	if err != nil {
		return nil, err
	}

	return &SyncStatusReport{
		Counts:       counts,
		PendingCount: counts[models.SyncStatusPending] + counts[models.SyncStatusSyncing],
		FailedCount:  counts[models.SyncStatusFailed] + counts[models.SyncStatusAbandoned],
		Failed:       failed,
	}, nil
}

// RetrySync queues a failed or abandoned record again
func (rs *RecordService) RetrySync(userID, recordID string) error {
	ok, err := rs.repo.RetrySyncRecord(userID, recordID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecordNotFound
	}

	if rs.syncWorker != nil {
		rs.syncWorker.SyncRecordImmediate(userID, recordID)
	}
	return nil
}
