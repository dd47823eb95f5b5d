package records

import (
	"context"
	"errors"
	"formtable/models"
)

var (
	// ErrFetchFailed wraps every error a Source returns
	ErrFetchFailed = errors.New("failed to fetch entries")

	ErrFetchInFlight = errors.New("fetch already in progress")
	ErrNoMorePages   = errors.New("no more data to load")
	ErrThrottled     = errors.New("load more requested too soon")
)

// Page is one page of records from a remote source together with the
// total number of records the source holds
type Page struct {
	Records []models.Record `json:"data"`
	Total   int             `json:"total"`
}

// Source fetches pages of records from wherever they are persisted.
// Retry and backoff are the source's concern.
type Source interface {
	FetchPage(ctx context.Context, page, limit int) (Page, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context, page, limit int) (Page, error)

func (f SourceFunc) FetchPage(ctx context.Context, page, limit int) (Page, error) {
	return f(ctx, page, limit)
}
