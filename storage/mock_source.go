package storage

import (
	"context"
	"errors"
	"fmt"
	"formtable/models"
	"formtable/records"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMockDisabled is returned by a MockSource switched off with SetEnabled(false)
var ErrMockDisabled = errors.New("mock data disabled")

// DefaultMockDelay mimics network latency
const DefaultMockDelay = 500 * time.Millisecond

// MockSource serves a fixed in-memory data set with an artificial delay.
// It is used for demos and for exercising loading states.
type MockSource struct {
	delay time.Duration

	mu      sync.RWMutex
	records []models.Record
	enabled bool
}

var _ records.Source = (*MockSource)(nil)

// NewMockSource creates a source over recs
func NewMockSource(recs []models.Record, delay time.Duration) *MockSource {
	cp := make([]models.Record, len(recs))
	copy(cp, recs)
	return &MockSource{delay: delay, records: cp, enabled: true}
}

func (m *MockSource) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// FetchPage waits for the delay, then slices the fixture
func (m *MockSource) FetchPage(ctx context.Context, page, limit int) (records.Page, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return records.Page{}, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled {
		return records.Page{}, ErrMockDisabled
	}

	return records.Page{
		Records: records.Paginate(m.records, models.Pagination{Page: page, Limit: limit}),
		Total:   len(m.records),
	}, nil
}

var (
	mockFirstNames = []string{"Olena", "Adam", "Marie", "Lukas", "Sofia", "Taras", "Zofia", "Hans", "Lucía", "Camille"}
	mockLastNames  = []string{"Koval", "Nowak", "Dubois", "Becker", "García", "Shevchenko", "Wiśniewska", "Müller", "López", "Martin"}
	mockRoles      = []string{"Backend developer", "Student", "Designer", "Teacher", "Nurse", "Engineer", "Photographer", "Chef"}
)

// GenerateMockRecords builds n deterministic records
func GenerateMockRecords(n int) []models.Record {
	recs := make([]models.Record, n)
	for i := range recs {
		recs[i] = models.Record{
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("formtable-mock-%d", i))).String(),
			FirstName:   mockFirstNames[i%len(mockFirstNames)],
			LastName:    mockLastNames[(i*3)%len(mockLastNames)],
			Age:         18 + (i*7)%60,
			Description: mockRoles[i%len(mockRoles)],
		}
	}
	return recs
}
