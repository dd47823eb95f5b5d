package setup

import (
	"formtable/app"
	"formtable/handlers"
	"formtable/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(fiberApp *fiber.App, application *app.App) {
	authRequired := middleware.AuthRequired(application.SessionStore, application.Tokens, application.AuthService)

	// Public routes
	fiberApp.Get("/", handlers.HomePage)
	fiberApp.Get("/health", handlers.Health)
	fiberApp.Get("/api/i18n/languages", handlers.GetLanguages)
	fiberApp.Get("/api/i18n/messages", handlers.GetMessages)

	// Auth routes
	fiberApp.Post("/api/auth/register", handlers.Register(application))
	fiberApp.Post("/api/auth/login", handlers.Login(application))
	fiberApp.Post("/api/auth/logout", handlers.Logout(application))
	fiberApp.Get("/api/auth/me", authRequired, handlers.Me(application))

	// Drive linking needs a signed-in browser session
	fiberApp.Get("/auth/google", authRequired, handlers.GoogleLink(application))
	fiberApp.Get("/auth/google/callback", authRequired, handlers.GoogleCallback(application))

	// Protected API routes
	api := fiberApp.Group("/api", authRequired, userLimiter())

	api.Get("/records", handlers.ListRecords(application))
	api.Post("/records", handlers.CreateRecord(application))
	api.Put("/records/:id", handlers.UpdateRecord(application))
	api.Delete("/records/:id", handlers.DeleteRecord(application))
	api.Delete("/records", handlers.DeleteRecords(application))

	api.Get("/table", handlers.GetTable(application))
	api.Put("/table/sort", handlers.SetSort(application))
	api.Post("/table/sort/:key", handlers.ToggleSort(application))
	api.Put("/table/filters", handlers.SetFilters(application))
	api.Put("/table/pagination", handlers.SetPagination(application))
	api.Post("/table/fetch", handlers.FetchTable(application))
	api.Post("/table/scroll", handlers.LoadMore(application))
	api.Get("/table/scroll", handlers.GetScroll(application))

	api.Put("/profile", handlers.UpdateProfile(application))
	api.Put("/profile/password", handlers.ChangePassword(application))

	api.Get("/sync/status", handlers.GetSyncStatus(application))
	api.Post("/sync/retry/:id", handlers.RetryRecordSync(application))
}
