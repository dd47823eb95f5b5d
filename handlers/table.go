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

// fetchRequest selects the page to load; zero fields keep the table's current page
type fetchRequest struct {
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

// GetTable returns the visible page under the stored sort, filters and pagination
func GetTable(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := a.RecordService.Table(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load table", err)
		}
		return c.JSON(view)
	}
}

// SetSort replaces the sort. An empty body or key restores insertion order.
func SetSort(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cfg *models.SortConfig
		if len(c.Body()) > 0 {
			var req models.SortConfig
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
			if req.Key != "" {
				if err := a.Validator.Validate(&req); err != nil {
					return validationError(c, err)
				}
				cfg = &req
			}
		}

		view, err := a.RecordService.SetSort(middleware.GetUserID(c), cfg)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to update sort", err)
		}
		return c.JSON(view)
	}
}

// ToggleSort sorts by :key ascending, or flips the direction when it is already active
func ToggleSort(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		if !records.IsSortKey(key) {
			return badRequest(c, "Unknown sort key")
		}

		view, err := a.RecordService.ToggleSort(middleware.GetUserID(c), key)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to update sort", err)
		}
		return c.JSON(view)
	}
}

// SetFilters replaces the filter criteria; an empty body clears them
func SetFilters(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.FilterCriteria
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		view, err := a.RecordService.SetFilters(middleware.GetUserID(c), req)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to update filters", err)
		}
		return c.JSON(view)
	}
}

// SetPagination moves the table to another page or page size
func SetPagination(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.Pagination
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		view, err := a.RecordService.SetPagination(middleware.GetUserID(c), req)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to update pagination", err)
		}
		return c.JSON(view)
	}
}

// FetchTable loads one page from the record source in page mode. A failed
// fetch answers 502 with the table, whose error field names the failure.
func FetchTable(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)

		var req fetchRequest
		if len(c.Body()) > 0 {
			if ok, err := bindJSON(c, a.Validator, &req); !ok {
				return err
			}
		}

		current, err := a.RecordService.Table(userID)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load table", err)
		}
		pagination := models.Pagination{Page: current.Page, Limit: current.Limit}
		if req.Page > 0 {
			pagination.Page = req.Page
		}
		if req.Limit > 0 {
			pagination.Limit = req.Limit
		}

		view, err := a.RecordService.FetchPage(c.UserContext(), userID, pagination)
		if err != nil {
			if errors.Is(err, records.ErrFetchFailed) && view != nil {
				return c.Status(fiber.StatusBadGateway).JSON(view)
			}
			return serverErrorWithDetails(c, "Failed to fetch page", err)
		}
		return c.JSON(view)
	}
}

// LoadMore appends the next page in scroll mode; ?restart=true starts over from page 1
func LoadMore(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)

		var (
			state *services.ScrollState
			err   error
		)
		if c.QueryBool("restart") {
			state, err = a.RecordService.RestartScroll(c.UserContext(), userID)
		} else {
			state, err = a.RecordService.LoadMore(c.UserContext(), userID)
		}

		switch {
		case err == nil, errors.Is(err, records.ErrNoMorePages):
			return c.JSON(state)
		case errors.Is(err, records.ErrFetchInFlight):
			return c.Status(fiber.StatusConflict).JSON(state)
		case errors.Is(err, records.ErrThrottled):
			return c.Status(fiber.StatusTooManyRequests).JSON(state)
		case errors.Is(err, records.ErrFetchFailed) && state != nil:
			return c.Status(fiber.StatusBadGateway).JSON(state)
		default:
			return serverErrorWithDetails(c, "Failed to load more records", err)
		}
	}
}

// GetScroll returns the scroll mode accumulation without loading anything
func GetScroll(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := a.RecordService.Scroll(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load scroll state", err)
		}
		return c.JSON(state)
	}
}
