package services

import (
	"formtable/models"
	"formtable/records"
	"time"
)

// Workspace is one user's live table: the record store, the feed that
// fills it and the two projections over the feed
type Workspace struct {
	Store    *records.Store
	Feed     *records.Feed
	Page     *records.PageView
	Scroll   *records.ScrollView
	Scroller *records.Scroller
}

func newWorkspace(source records.Source, pagination models.Pagination, throttle time.Duration, seed []models.Record) *Workspace {
	store := records.NewStore(pagination)
	for _, rec := range seed {
		store.Add(rec)
	}

	feed := records.NewFeed(store, source)
	scroll := records.NewScrollView(store, feed)

	return &Workspace{
		Store:    store,
		Feed:     feed,
		Page:     records.NewPageView(store, feed),
		Scroll:   scroll,
		Scroller: records.NewScroller(store, feed, scroll, throttle),
	}
}

// TableView is what the table shows in page mode
type TableView struct {
	Records    []models.Record        `json:"data"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int                    `json:"total"`
	TotalPages int                    `json:"totalPages"`
	Loading    bool                   `json:"loading"`
	Error      string                 `json:"error,omitempty"`
	Sort       *models.SortConfig     `json:"sortConfig,omitempty"`
	Filters    *models.FilterCriteria `json:"filters,omitempty"`
}

// Table renders page mode. Once a page has been fetched the remote
// total sets the page count.
func (ws *Workspace) Table() TableView {
	st := ws.Store.Snapshot()
	return TableView{
		Records:    ws.Page.Records(),
		Page:       st.Pagination.Page,
		Limit:      st.Pagination.Limit,
		Total:      ws.Page.Total(),
		TotalPages: ws.Page.TotalPages(),
		Loading:    st.Loading,
		Error:      st.Error,
		Sort:       st.Sort,
		Filters:    st.Filters,
	}
}

// restartPaging returns page mode to page 1 and empties scroll mode
func (ws *Workspace) restartPaging() {
	p := ws.Store.Snapshot().Pagination
	ws.Store.SetPagination(models.Pagination{Page: 1, Limit: p.Limit})
	ws.Scroll.Reset()
}

// ScrollState is what the table shows in scroll mode
type ScrollState struct {
	Records  []models.Record `json:"data"`
	LastPage int             `json:"lastPage"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"hasMore"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
}

func (ws *Workspace) ScrollState() ScrollState {
	st := ws.Store.Snapshot()
	return ScrollState{
		Records:  ws.Scroll.Records(),
		LastPage: ws.Scroll.LastPage(),
		Total:    st.Total,
		HasMore:  ws.Scroller.HasMore(),
		Loading:  st.Loading,
		Error:    st.Error,
	}
}
