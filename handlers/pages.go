package handlers

import (
	"formtable/i18n"
	"formtable/middleware"
	"formtable/templates/pages"

	"github.com/gofiber/fiber/v2"
)

func HomePage(c *fiber.Ctx) error {
	lang := middleware.GetLanguage(c)

	c.Set("Content-Type", "text/html; charset=utf-8")
	c.Set("Content-Language", lang)
	return pages.Index(lang, i18n.Messages(lang), i18n.Languages()).Render(c.UserContext(), c.Response().BodyWriter())
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
