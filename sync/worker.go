package sync

import (
	"errors"
	"formtable/database"
	"formtable/session"
	"formtable/storage"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrDriveNotLinked is returned by the token lookup for users that never
// connected Google Drive. Their records stay local.
var ErrDriveNotLinked = errors.New("google drive not linked")

const (
	batchSize = 50

	// retryMinAge keeps the batch loop away from records an immediate sync
	// may still be working on
	retryMinAge = 30 * time.Second
)

// Worker coordinates background synchronization between the local database and Drive
// See domain-specific files:
// - executor.go: Core sync execution logic
// - retry.go: Retry and backoff helpers
// - importer.go: Drive import on link
// - token_manager.go: OAuth token refresh handling
type Worker struct {
	repo            *database.Repository
	sessionStore    *session.Store
	storageFactory  storage.Factory
	baseInterval    time.Duration
	maxInterval     time.Duration
	currentInterval time.Duration
	minAge          time.Duration
	running         bool
	mu              sync.Mutex
	stopChan        chan struct{}
	done            chan struct{}
	inflight        sync.WaitGroup
	getUserToken    func(userID string) (*oauth2.Token, error)
}

// NewWorker creates a new sync worker instance. sessionStore may be nil, in
// which case refreshed tokens are not persisted.
func NewWorker(repo *database.Repository, sessionStore *session.Store, storageFactory storage.Factory, getUserToken func(userID string) (*oauth2.Token, error)) *Worker {
	return &Worker{
		repo:            repo,
		sessionStore:    sessionStore,
		storageFactory:  storageFactory,
		baseInterval:    2 * time.Minute,
		maxInterval:     5 * time.Minute,
		currentInterval: 2 * time.Minute,
		minAge:          retryMinAge,
		getUserToken:    getUserToken,
	}
}

// Start begins the background sync worker
func (w *Worker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	w.stopChan, w.done = stop, done
	w.mu.Unlock()

	log.Println("[Sync Worker] Starting background sync worker")

	go w.run(stop, done)
}

// Stop halts the loop and waits for it and any immediate syncs to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.inflight.Wait()
		return
	}

	log.Println("[Sync Worker] Stopping background sync worker")
	close(w.stopChan)
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	w.inflight.Wait()
}

// run is the main worker loop with adaptive backoff
func (w *Worker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	w.mu.Lock()
	ticker := time.NewTicker(w.currentInterval)
	w.mu.Unlock()
	defer ticker.Stop()

	w.syncPendingRecords()

	for {
		select {
		case <-ticker.C:
			hadWork := w.syncPendingRecords()

			w.mu.Lock()
			if hadWork {
				if w.currentInterval != w.baseInterval {
					w.currentInterval = w.baseInterval
					ticker.Reset(w.currentInterval)
					log.Printf("[Sync Worker] Work found, reset interval to %v", w.currentInterval)
				}
			} else if w.currentInterval < w.maxInterval {
				w.currentInterval = w.maxInterval
				ticker.Reset(w.currentInterval)
				log.Printf("[Sync Worker] No work, increased interval to %v", w.currentInterval)
			}
			w.mu.Unlock()
		case <-stop:
			return
		}
	}
}
