package handlers

import (
	"formtable/i18n"
	"formtable/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetLanguages lists the supported UI languages and the one picked for this request
func GetLanguages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"languages": i18n.Languages(),
		"current":   middleware.GetLanguage(c),
	})
}

// GetMessages returns the message bundle of the negotiated language
func GetMessages(c *fiber.Ctx) error {
	lang := middleware.GetLanguage(c)
	c.Set("Content-Language", lang)
	return c.JSON(fiber.Map{
		"language": lang,
		"messages": i18n.Messages(lang),
	})
}
