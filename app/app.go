package app

import (
	"formtable/auth"
	"formtable/database"
	"formtable/services"
	"formtable/session"
	"formtable/validator"
	"log/slog"
)

// App holds all application dependencies
// This struct is the central point for dependency injection
type App struct {
	Repo          *database.Repository
	SyncWorker    services.SyncWorker
	SessionStore  *session.Store
	AuthService   *services.AuthService
	RecordService *services.RecordService
	Tokens        *auth.TokenIssuer
	Validator     *validator.Validator
	Logger        *slog.Logger
}

// New creates a new App instance with all dependencies.
// syncWorker may be nil when background sync is not running.
func New(repo *database.Repository, syncWorker services.SyncWorker, sessionStore *session.Store, authService *services.AuthService, recordService *services.RecordService, tokens *auth.TokenIssuer, logger *slog.Logger) *App {
	return &App{
		Repo:          repo,
		SyncWorker:    syncWorker,
		SessionStore:  sessionStore,
		AuthService:   authService,
		RecordService: recordService,
		Tokens:        tokens,
		Validator:     validator.New(),
		Logger:        logger,
	}
}
