package middleware

import (
	"formtable/i18n"

	"github.com/gofiber/fiber/v2"
)

// LanguageCookie remembers the language picked by anonymous visitors
const LanguageCookie = "lang"

// GetLanguage picks the UI language for a request. An explicit ?lang= wins,
// then the signed-in user's preference, then the cookie, then Accept-Language.
func GetLanguage(c *fiber.Ctx) string {
	preferred := c.Query("lang")
	if !i18n.IsSupported(preferred) {
		preferred = ""
		if sess := GetSession(c); sess != nil && i18n.IsSupported(sess.Language) {
			preferred = sess.Language
		} else {
			preferred = c.Cookies(LanguageCookie)
		}
	}
	return i18n.Negotiate(c.Get(fiber.HeaderAcceptLanguage), preferred)
}
