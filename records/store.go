package records

import (
	"formtable/models"
	"sync"
)

// DefaultPagination is the pagination a new store starts with
var DefaultPagination = models.Pagination{Page: 1, Limit: 10}

// State is a point-in-time copy of everything the store owns
type State struct {
	Records    []models.Record        `json:"records"`
	Sort       *models.SortConfig     `json:"sortConfig,omitempty"`
	Filters    *models.FilterCriteria `json:"filters,omitempty"`
	Pagination models.Pagination      `json:"pagination"`
	Loading    bool                   `json:"loading"`
	Error      string                 `json:"error,omitempty"`
	Total      int                    `json:"total"`
}

// Visible returns the slice a table shows for this state
func (s State) Visible() []models.Record {
	p := s.Pagination
	return Apply(s.Records, s.Filters, s.Sort, &p)
}

// Listener receives a snapshot after every change
type Listener func(State)

// Store is the single source of truth for one user's records and table configuration.
// It is safe for concurrent use; listeners are called outside the lock.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates an empty store
func NewStore(pagination models.Pagination) *Store {
	if pagination.Page < 1 || pagination.Limit < 1 {
		pagination = DefaultPagination
	}
	return &Store{
		state: State{
			Records:    []models.Record{},
			Pagination: pagination,
		},
		listeners: make(map[int]Listener),
	}
}

// ==================== READ / SUBSCRIBE ====================

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Visible runs the query pipeline over the current state
func (s *Store) Visible() []models.Record {
	return s.Snapshot().Visible()
}

// Find returns the record with the given id
func (s *Store) Find(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.state.Records[i], true
	}
	return models.Record{}, false
}

// Subscribe registers fn and returns a function that removes it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ==================== MUTATIONS ====================

// Add appends a record. Id uniqueness is the caller's responsibility.
func (s *Store) Add(r models.Record) {
	s.update(func(st *State) bool {
		st.Records = append(st.Records, r)
		return true
	})
}

// Edit replaces the record with the given id. Unknown ids are ignored.
func (s *Store) Edit(id string, updated models.Record) bool {
	return s.update(func(st *State) bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		updated.ID = id
		st.Records[i] = updated
		return true
	})
}

// Delete removes the record with the given id. Unknown ids are ignored.
func (s *Store) Delete(id string) bool {
	return s.update(func(st *State) bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		st.Records = removeAt(st.Records, i)
		return true
	})
}

// EditAt replaces the record at index in the unfiltered backing list.
// An out-of-range index is a no-op.
func (s *Store) EditAt(index int, updated models.Record) bool {
	return s.update(func(st *State) bool {
		if index < 0 || index >= len(st.Records) {
			return false
		}
		st.Records[index] = updated
		return true
	})
}

// DeleteAt removes the record at index in the unfiltered backing list.
// An out-of-range index is a no-op.
func (s *Store) DeleteAt(index int) bool {
	return s.update(func(st *State) bool {
		if index < 0 || index >= len(st.Records) {
			return false
		}
		st.Records = removeAt(st.Records, index)
		return true
	})
}

// DeleteMany removes every record whose id is in ids and returns how many went
func (s *Store) DeleteMany(ids []string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := 0
	s.update(func(st *State) bool {
		kept := make([]models.Record, 0, len(st.Records))
		for _, r := range st.Records {
			if _, ok := drop[r.ID]; ok {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		st.Records = kept
		return removed > 0
	})
	return removed
}

// Clear drops every record
func (s *Store) Clear() {
	s.update(func(st *State) bool {
		st.Records = []models.Record{}
		st.Total = 0
		return true
	})
}

// ==================== CONFIGURATION ====================

// SetSortConfig replaces the sort configuration; nil restores insertion order
func (s *Store) SetSortConfig(cfg *models.SortConfig) {
	s.update(func(st *State) bool {
		if cfg == nil {
			st.Sort = nil
			return true
		}
		c := *cfg
		st.Sort = &c
		return true
	})
}

// ToggleSort sorts ascending by key, or flips the direction if key is already active
func (s *Store) ToggleSort(key string) models.SortConfig {
	var result models.SortConfig
	s.update(func(st *State) bool {
		dir := models.SortAsc
		if st.Sort != nil && st.Sort.Key == key && st.Sort.Direction == models.SortAsc {
			dir = models.SortDesc
		}
		result = models.SortConfig{Key: key, Direction: dir}
		st.Sort = &result
		return true
	})
	return result
}

// SetFilters replaces the filter criteria. Empty criteria clears filtering entirely.
func (s *Store) SetFilters(criteria models.FilterCriteria) {
	s.update(func(st *State) bool {
		if criteria.IsEmpty() {
			st.Filters = nil
			return true
		}
		st.Filters = cloneCriteria(&criteria)
		return true
	})
}

// SetPagination replaces the pagination state
func (s *Store) SetPagination(p models.Pagination) {
	s.update(func(st *State) bool {
		st.Pagination = p
		return true
	})
}

// ==================== FETCH LIFECYCLE ====================

// BeginFetch marks a remote fetch as in flight
func (s *Store) BeginFetch() {
	s.update(func(st *State) bool {
		st.Loading = true
		st.Error = ""
		return true
	})
}

// Reconcile merges fetched records by id and records the authoritative total.
// Known ids are replaced in place, new ids are appended in arrival order.
func (s *Store) Reconcile(fetched []models.Record, total int) {
	s.update(func(st *State) bool {
		pos := make(map[string]int, len(st.Records))
		for i, r := range st.Records {
			pos[r.ID] = i
		}
		for _, r := range fetched {
			if i, ok := pos[r.ID]; ok {
				st.Records[i] = r
				continue
			}
			pos[r.ID] = len(st.Records)
			st.Records = append(st.Records, r)
		}
		st.Total = total
		st.Loading = false
		st.Error = ""
		return true
	})
}

// FailFetch records a fetch error without touching the records
func (s *Store) FailFetch(message string) {
	s.update(func(st *State) bool {
		st.Loading = false
		st.Error = message
		return true
	})
}

// IsLoading reports whether a fetch is in flight
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// update applies fn under the write lock and notifies listeners if fn reports a change
func (s *Store) update(fn func(*State) bool) bool {
	s.mu.Lock()
	changed := fn(&s.state)
	if !changed {
		s.mu.Unlock()
		return false
	}
	snapshot := s.state.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return true
}

// indexOf must be called with the lock held
func (s *Store) indexOf(id string) int {
	for i, r := range s.state.Records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (st State) clone() State {
	out := st
	out.Records = make([]models.Record, len(st.Records))
	copy(out.Records, st.Records)
	if st.Sort != nil {
		c := *st.Sort
		out.Sort = &c
	}
	out.Filters = cloneCriteria(st.Filters)
	return out
}

func cloneCriteria(c *models.FilterCriteria) *models.FilterCriteria {
	if c == nil {
		return nil
	}
	out := models.FilterCriteria{Substring: c.Substring}
	if c.AgeMin != nil {
		v := *c.AgeMin
		out.AgeMin = &v
	}
	if c.AgeMax != nil {
		v := *c.AgeMax
		out.AgeMax = &v
	}
	return &out
}

func removeAt(list []models.Record, i int) []models.Record {
	out := make([]models.Record, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
