package records

import (
	"context"
	"fmt"
	"formtable/models"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ==================== FETCH SEQUENCE ====================

// Origin tells which projection asked for a fetch
type Origin int

const (
	OriginPage Origin = iota
	OriginScroll
)

// PageEvent is published once per completed fetch
type PageEvent struct {
	Origin Origin
	Page   int
	Limit  int
	Total  int
	IDs    []string
	Err    error
}

// Feed is the single place remote pages are requested from. Page mode and
// scroll mode are both projections of the events it publishes.
type Feed struct {
	store  *Store
	source Source

	mu          sync.Mutex
	subscribers map[int]func(PageEvent)
	nextID      int
	// pages fetched so far, by limit
	held map[int]map[int]bool
}

// NewFeed creates a feed that reconciles pages from source into store
func NewFeed(store *Store, source Source) *Feed {
	return &Feed{
		store:       store,
		source:      source,
		subscribers: make(map[int]func(PageEvent)),
		held:        make(map[int]map[int]bool),
	}
}

// Subscribe registers fn for every page event and returns an unsubscribe function
func (f *Feed) Subscribe(fn func(PageEvent)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// Fetch requests one page for page mode and reconciles it into the store.
// Earlier pages not yet fetched at this limit are loaded first, so the
// page can be cut from the locally held set.
// On failure the store keeps its records and holds the error message.
// In-flight fetches are not cancelled; a late result simply overwrites state.
func (f *Feed) Fetch(ctx context.Context, page, limit int) error {
	f.store.SetPagination(models.Pagination{Page: page, Limit: limit})
	for _, p := range f.missing(page, limit) {
		if err := f.fetch(ctx, OriginPage, p, limit); err != nil {
			return err
		}
	}
	return f.fetch(ctx, OriginPage, page, limit)
}

// missing lists the pages before page that have not been fetched at limit
func (f *Feed) missing(page, limit int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []int
	for p := 1; p < page; p++ {
		if !f.held[limit][p] {
			out = append(out, p)
		}
	}
	return out
}

func (f *Feed) markHeld(page, limit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[limit] == nil {
		f.held[limit] = make(map[int]bool)
	}
	f.held[limit][page] = true
}

func (f *Feed) fetch(ctx context.Context, origin Origin, page, limit int) error {
	f.store.BeginFetch()

	result, err := f.source.FetchPage(ctx, page, limit)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrFetchFailed, err)
		f.store.FailFetch(wrapped.Error())
		f.publish(PageEvent{Origin: origin, Page: page, Limit: limit, Err: wrapped})
		return wrapped
	}

	ids := make([]string, len(result.Records))
	for i, r := range result.Records {
		ids[i] = r.ID
	}
	f.store.Reconcile(result.Records, result.Total)
	f.markHeld(page, limit)
	f.publish(PageEvent{Origin: origin, Page: page, Limit: limit, Total: result.Total, IDs: ids})
	return nil
}

func (f *Feed) publish(ev PageEvent) {
	f.mu.Lock()
	subs := make([]func(PageEvent), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// ==================== PAGE MODE ====================

// PageView shows one discrete page of the locally held records.
// Fetched pages are merged into the store, so the slice is always
// the query pipeline over the store with the store's pagination.
type PageView struct {
	store *Store

	mu      sync.RWMutex
	fetched bool
}

// NewPageView creates a page-mode projection of feed
func NewPageView(store *Store, feed *Feed) *PageView {
	v := &PageView{store: store}
	feed.Subscribe(v.onPage)
	return v
}

func (v *PageView) onPage(ev PageEvent) {
	if ev.Err != nil || ev.Origin != OriginPage {
		return
	}
	v.mu.Lock()
	v.fetched = true
	v.mu.Unlock()
}

// Page returns the page currently shown
func (v *PageView) Page() (page, limit int) {
	p := v.store.Snapshot().Pagination
	return p.Page, p.Limit
}

// Fetched reports whether a remote page has been shown yet
func (v *PageView) Fetched() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetched
}

// Records returns the visible slice
func (v *PageView) Records() []models.Record {
	return v.store.Visible()
}

// Total counts the rows page mode pages over. Without filters the remote
// total wins once a page has been fetched; with filters only the rows
// held locally can be counted.
func (v *PageView) Total() int {
	st := v.store.Snapshot()
	total := len(Filter(st.Records, st.Filters))
	if v.Fetched() && st.Filters == nil && st.Total > total {
		total = st.Total
	}
	return total
}

// TotalPages is the page count for Total
func (v *PageView) TotalPages() int {
	return TotalPages(v.Total(), v.store.Snapshot().Pagination.Limit)
}

// ==================== SCROLL MODE ====================

// ScrollView accumulates the pages scroll mode asked for. Only the page
// after the last one loaded is appended; page 1 or a new limit starts over.
type ScrollView struct {
	store *Store

	mu       sync.RWMutex
	lastPage int
	limit    int
}

// NewScrollView creates a scroll-mode projection of feed
func NewScrollView(store *Store, feed *Feed) *ScrollView {
	v := &ScrollView{store: store, limit: store.Snapshot().Pagination.Limit}
	feed.Subscribe(v.onPage)
	return v
}

func (v *ScrollView) onPage(ev PageEvent) {
	if ev.Err != nil || ev.Origin != OriginScroll {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case ev.Page == 1 || ev.Limit != v.limit:
		v.lastPage = 0
		v.limit = ev.Limit
		if ev.Page != 1 {
			return
		}
	case ev.Page != v.lastPage+1:
		return
	}
	v.lastPage = ev.Page
}

// Reset empties the accumulator
func (v *ScrollView) Reset() {
	v.mu.Lock()
	v.lastPage = 0
	v.mu.Unlock()
}

// LastPage returns the most recently appended page, or 0 when empty
func (v *ScrollView) LastPage() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastPage
}

// next returns the page to load for limit; a limit change starts over at 1
func (v *ScrollView) next(limit int) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if limit != v.limit {
		return 1
	}
	return v.lastPage + 1
}

// Records returns the first LastPage pages of the filtered and sorted
// store. Rows are read from the store so local edits and deletes show up.
func (v *ScrollView) Records() []models.Record {
	v.mu.RLock()
	last, limit := v.lastPage, v.limit
	v.mu.RUnlock()

	if last == 0 {
		return []models.Record{}
	}
	st := v.store.Snapshot()
	return Apply(st.Records, st.Filters, st.Sort, &models.Pagination{Page: 1, Limit: last * limit})
}

// Scroller drives scroll mode: it decides whether the next page may be fetched
type Scroller struct {
	feed    *Feed
	store   *Store
	view    *ScrollView
	limiter *rate.Limiter
	gate    sync.Mutex
}

// NewScroller allows at most one load-more per interval
func NewScroller(store *Store, feed *Feed, view *ScrollView, interval time.Duration) *Scroller {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Scroller{
		feed:    feed,
		store:   store,
		view:    view,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Restart clears the accumulator and fetches page 1 again
func (s *Scroller) Restart(ctx context.Context) error {
	if !s.gate.TryLock() {
		return ErrFetchInFlight
	}
	defer s.gate.Unlock()

	s.view.Reset()
	return s.feed.fetch(ctx, OriginScroll, 1, s.store.Snapshot().Pagination.Limit)
}

// HasMore reports whether the remote total leaves pages to load.
// Nothing loaded yet always has more.
func (s *Scroller) HasMore() bool {
	st := s.store.Snapshot()
	last := s.view.next(st.Pagination.Limit) - 1
	if last == 0 {
		return true
	}
	return last*st.Pagination.Limit < st.Total
}

// LoadMore fetches the next page unless a fetch is in flight, nothing is
// left to load, or the previous load was too recent
func (s *Scroller) LoadMore(ctx context.Context) error {
	if !s.gate.TryLock() {
		return ErrFetchInFlight
	}
	defer s.gate.Unlock()

	st := s.store.Snapshot()
	if st.Loading {
		return ErrFetchInFlight
	}

	limit := st.Pagination.Limit
	page := s.view.next(limit)
	if page > 1 && (page-1)*limit >= st.Total {
		return ErrNoMorePages
	}
	if !s.limiter.Allow() {
		return ErrThrottled
	}
	return s.feed.fetch(ctx, OriginScroll, page, limit)
}
