package setup

import (
	"context"
	"fmt"
	"formtable/app"
	"formtable/auth"
	"formtable/config"
	"formtable/database"
	"formtable/records"
	"formtable/services"
	"formtable/session"
	"formtable/storage"
	"formtable/sync"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const sessionCleanupInterval = time.Hour

// NewLogger builds the process logger: JSON in production, text otherwise
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     logLevel(cfg.LogLevel),
		AddSource: cfg.Env == "development",
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitDatabase initializes the SQLite database and runs migrations
func InitDatabase(dbPath string, logger *slog.Logger) (*database.DB, error) {
	db, err := database.New(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database initialized", "path", dbPath)
	return db, nil
}

// InitApp wires every dependency and starts the background routines.
// They run until ctx is cancelled or the returned worker is stopped.
func InitApp(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger) (*app.App, *sync.Worker) {
	repo := database.NewRepository(db)

	sessionStore := session.NewStore(db.DB)
	sessionStore.StartCleanupRoutine(ctx, sessionCleanupInterval)
	logger.Info("session cleanup routine started")

	getUserToken := userTokenLookup(sessionStore)

	syncWorker := sync.NewWorker(repo, sessionStore, storage.NewDriveProvider, getUserToken)
	syncWorker.Start()
	logger.Info("sync worker started")

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)

	var oauthClient services.OAuthClient
	if cfg.DriveEnabled() {
		oauthClient = config.OAuthConfig()
		logger.Info("google drive linking enabled")
	}

	authService := services.NewAuthService(repo, sessionStore, syncWorker, tokens, oauthClient)

	sourceFor := newSourceFactory(cfg, repo, getUserToken)
	recordService := services.NewRecordService(repo, syncWorker, sourceFor, cfg.DefaultLimit, cfg.ScrollThrottle)
	logger.Info("record source configured", "source", cfg.RecordSource)

	application := app.New(repo, syncWorker, sessionStore, authService, recordService, tokens, logger)
	logger.Info("application initialized with dependency injection")

	return application, syncWorker
}

// userTokenLookup returns the Drive token of the user's most recent session
func userTokenLookup(sessionStore *session.Store) func(userID string) (*oauth2.Token, error) {
	return func(userID string) (*oauth2.Token, error) {
		sess, err := sessionStore.GetByUserID(userID)
		if err != nil {
			return nil, err
		}
		if sess == nil || !sess.HasDrive() {
			return nil, sync.ErrDriveNotLinked
		}
		return &oauth2.Token{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			Expiry:       sess.TokenExpiry,
		}, nil
	}
}

// newSourceFactory picks where workspaces page their records from
func newSourceFactory(cfg *config.Config, repo *database.Repository, getUserToken func(string) (*oauth2.Token, error)) services.SourceFactory {
	switch cfg.RecordSource {
	case config.SourceMock:
		mock := storage.NewMockSource(storage.GenerateMockRecords(cfg.MockRecords), cfg.MockDelay)
		return func(string) records.Source { return mock }

	case config.SourceDrive:
		return func(userID string) records.Source {
			return records.SourceFunc(func(ctx context.Context, page, limit int) (records.Page, error) {
				token, err := getUserToken(userID)
				if err != nil {
					return records.Page{}, fmt.Errorf("drive token: %w", err)
				}
				provider, err := storage.NewDriveProvider(ctx, token, userID)
				if err != nil {
					return records.Page{}, err
				}
				return provider.FetchPage(ctx, page, limit)
			})
		}

	default:
		return repo.UserSource
	}
}

// Shutdown performs graceful shutdown of all services
func Shutdown(syncWorker *sync.Worker, db *database.DB, logger *slog.Logger) {
	logger.Info("shutting down services...")

	if syncWorker != nil {
		syncWorker.Stop()
		logger.Info("sync worker stopped")
	}

	if db != nil {
		db.Close()
		logger.Info("database closed")
	}
}
