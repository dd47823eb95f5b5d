package middleware

import (
	"context"
	"formtable/auth"
	"formtable/models"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

// SessionCookie is the name of the login session cookie
const SessionCookie = "session_id"

// SessionGetter looks sessions up by id
type SessionGetter interface {
	Get(sessionID string) (*models.Session, error)
}

// TokenRefresher defines the interface for refreshing OAuth tokens
type TokenRefresher interface {
	RefreshTokenIfNeeded(ctx context.Context, session *models.Session) (*oauth2.Token, error)
}

// AuthRequired creates an authentication middleware that requires a valid session
// cookie or a Bearer token. A bearer token must point at a live session.
// If a tokenRefresher is provided, expiring Drive tokens are refreshed.
func AuthRequired(sessions SessionGetter, tokens *auth.TokenIssuer, tokenRefresher TokenRefresher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sessionID := c.Cookies(SessionCookie); sessionID != "" {
			sess, err := sessions.Get(sessionID)
			if err == nil && sess != nil {
				return authenticated(c, sess, tokenRefresher)
			}
			c.ClearCookie(SessionCookie)
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Missing authorization")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid authorization header format")
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		sess, err := sessions.Get(claims.SessionID)
		if err != nil || sess == nil || sess.UserID != claims.UserID {
			return unauthorized(c, "Session expired")
		}

		return authenticated(c, sess, tokenRefresher)
	}
}

func authenticated(c *fiber.Ctx, sess *models.Session, tokenRefresher TokenRefresher) error {
	if tokenRefresher != nil && sess.HasDrive() {
		if _, err := tokenRefresher.RefreshTokenIfNeeded(c.UserContext(), sess); err != nil {
			// The request itself does not need Drive
			slog.Warn("token refresh failed", "user_id", sess.UserID, "error", err)
		}
	}

	c.Locals("userID", sess.UserID)
	c.Locals("userEmail", sess.Email)
	c.Locals("session", sess)
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":      msg,
		"request_id": GetRequestID(c),
	})
}

func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserEmail(c *fiber.Ctx) string {
	email, ok := c.Locals("userEmail").(string)
	if !ok {
		return ""
	}
	return email
}

func GetSession(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals("session").(*models.Session)
	return sess
}
