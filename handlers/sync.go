package handlers

import (
	"errors"
	"formtable/app"
	"formtable/middleware"
	"formtable/services"

	"github.com/gofiber/fiber/v2"
)

// GetSyncStatus returns sync status information for the user
func GetSyncStatus(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := a.RecordService.SyncStatus(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to get sync status", err)
		}

		return success(c, fiber.Map{
			"counts":         report.Counts,
			"pending_count":  report.PendingCount,
			"failed_count":   report.FailedCount,
			"failed_records": report.Failed,
		})
	}
}

// RetryRecordSync queues a failed record for another sync attempt
func RetryRecordSync(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recordID := c.Params("id")
		if recordID == "" {
			return badRequest(c, "Record ID is required")
		}

		if err := a.RecordService.RetrySync(middleware.GetUserID(c), recordID); err != nil {
			if errors.Is(err, services.ErrRecordNotFound) {
				return notFound(c, "No failed sync for this record")
			}
			return serverErrorWithDetails(c, "Failed to retry sync", err)
		}

		return success(c, fiber.Map{
			"success": true,
			"message": "Sync retry queued",
		})
	}
}
