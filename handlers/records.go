package handlers

import (
	"errors"
	"formtable/app"
	"formtable/middleware"
	"formtable/models"
	"formtable/records"
	"formtable/services"

	"github.com/gofiber/fiber/v2"
)

// ListRecords runs a stateless filter, sort and paginate query over the user's records
func ListRecords(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q models.RecordQuery
		if err := c.QueryParser(&q); err != nil {
			return badRequest(c, "Invalid query parameters")
		}
		if err := a.Validator.Validate(&q); err != nil {
			return validationError(c, err)
		}

		pagination := records.DefaultPagination
		if q.Page > 0 {
			pagination.Page = q.Page
		}
		if q.Limit > 0 {
			pagination.Limit = q.Limit
		}

		result, err := a.RecordService.Query(middleware.GetUserID(c), q.Criteria(), q.Sort(), pagination)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch records", err)
		}

		return success(c, fiber.Map{
			"data":       result.Records,
			"page":       result.Page,
			"limit":      result.Limit,
			"total":      result.Total,
			"totalPages": result.TotalPages,
		})
	}
}

// CreateRecord adds a record with a new id
func CreateRecord(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RecordRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		rec, err := a.RecordService.Create(middleware.GetUserID(c), req)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to create record", err)
		}

		return created(c, fiber.Map{"record": rec})
	}
}

// UpdateRecord replaces every field of the record with the given id
func UpdateRecord(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recordID := c.Params("id")
		if recordID == "" {
			return badRequest(c, "Record ID is required")
		}

		var req models.RecordRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		rec, err := a.RecordService.Update(middleware.GetUserID(c), recordID, req)
		if err != nil {
			if errors.Is(err, services.ErrRecordNotFound) {
				return notFound(c, "Record not found")
			}
			return serverErrorWithDetails(c, "Failed to update record", err)
		}

		return success(c, fiber.Map{"record": rec})
	}
}

// DeleteRecord removes the record with the given id
func DeleteRecord(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recordID := c.Params("id")
		if recordID == "" {
			return badRequest(c, "Record ID is required")
		}

		if err := a.RecordService.Delete(middleware.GetUserID(c), recordID); err != nil {
			if errors.Is(err, services.ErrRecordNotFound) {
				return notFound(c, "Record not found")
			}
			return serverErrorWithDetails(c, "Failed to delete record", err)
		}

		return success(c, fiber.Map{"success": true})
	}
}

// DeleteRecords removes the listed records, or all of them when "all" is set
func DeleteRecords(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.DeleteRecordsRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}
		if !req.All && len(req.IDs) == 0 {
			return badRequest(c, "Either ids or all is required")
		}

		userID := middleware.GetUserID(c)

		var (
			deleted int
			err     error
		)
		if req.All {
			deleted, err = a.RecordService.Clear(userID)
		} else {
			deleted, err = a.RecordService.DeleteMany(userID, req.IDs)
		}
		if err != nil {
			return serverErrorWithDetails(c, "Failed to delete records", err)
		}

		return success(c, fiber.Map{
			"success": true,
			"deleted": deleted,
		})
	}
}
