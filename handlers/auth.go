package handlers

import (
	"errors"
	"formtable/app"
	"formtable/config"
	"formtable/middleware"
	"formtable/models"
	"formtable/services"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

func setSessionCookie(c *fiber.Ctx, sess *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.ID,
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   config.AppConfig.IsProduction(),
		SameSite: "Lax",
		Path:     "/",
	})
}

func setLanguageCookie(c *fiber.Ctx, lang string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.LanguageCookie,
		Value:    lang,
		Expires:  time.Now().AddDate(1, 0, 0),
		Secure:   config.AppConfig.IsProduction(),
		SameSite: "Lax",
		Path:     "/",
	})
}

func sessionUser(sess *models.Session) fiber.Map {
	return fiber.Map{
		"id":          sess.UserID,
		"username":    sess.Username,
		"email":       sess.Email,
		"displayName": sess.DisplayName,
		"language":    sess.Language,
		"driveLinked": sess.HasDrive(),
	}
}

func loginPayload(resp *services.LoginResponse) fiber.Map {
	return fiber.Map{
		"success":   true,
		"token":     resp.Token,
		"expiresAt": resp.ExpiresAt,
		"user":      sessionUser(resp.Session),
	}
}

// Register creates an account and signs it in
func Register(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		resp, err := a.AuthService.Register(req, middleware.GetLanguage(c))
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				return conflict(c, "Username or email already registered")
			}
			return serverErrorWithDetails(c, "Failed to register", err)
		}

		setSessionCookie(c, resp.Session)
		log.Printf("[AUTH] Registered user %s", resp.Session.UserID)

		return created(c, loginPayload(resp))
	}
}

// Login handles user authentication with a username or email and a password
func Login(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		resp, err := a.AuthService.Login(req)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				return unauthorized(c, "Invalid login or password")
			}
			return serverErrorWithDetails(c, "Failed to sign in", err)
		}

		setSessionCookie(c, resp.Session)
		log.Printf("[AUTH] Login successful for user %s", resp.Session.UserID)

		return success(c, loginPayload(resp))
	}
}

// Logout ends the session named by the cookie or the bearer token
func Logout(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(middleware.SessionCookie)
		if sessionID == "" {
			if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
				if claims, err := a.Tokens.Verify(token); err == nil {
					sessionID = claims.SessionID
				}
			}
		}

		if sessionID != "" {
			if err := a.AuthService.Logout(sessionID); err != nil {
				log.Printf("[AUTH] Failed to delete session: %v", err)
			}
		}

		c.ClearCookie(middleware.SessionCookie)

		return success(c, fiber.Map{"success": true})
	}
}

// Me returns the current user's session information
func Me(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := middleware.GetSession(c)
		if sess == nil {
			return unauthorized(c, "Unauthorized")
		}

		// Update last used timestamp
		sess.LastUsedAt = time.Now()
		if err := a.SessionStore.Update(sess); err != nil {
			log.Printf("[AUTH] Failed to touch session %s: %v", sess.ID, err)
		}

		return success(c, fiber.Map{
			"authenticated": true,
			"user":          sessionUser(sess),
			"driveEnabled":  a.AuthService.DriveEnabled(),
		})
	}
}

// UpdateProfile changes the display name and UI language
func UpdateProfile(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateProfileRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		user, err := a.AuthService.UpdateProfile(middleware.GetUserID(c), req)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return notFound(c, "User not found")
			}
			return serverErrorWithDetails(c, "Failed to update profile", err)
		}

		// Sessions read profile fields from the users table; this only
		// refreshes the copy held by the current request
		if sess := middleware.GetSession(c); sess != nil {
			sess.DisplayName = user.DisplayName
			sess.Language = user.Language
		}
		setLanguageCookie(c, user.Language)

		return success(c, fiber.Map{
			"success": true,
			"user":    user,
		})
	}
}

// ChangePassword replaces the password after checking the current one
func ChangePassword(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ChangePasswordRequest
		if ok, err := bindJSON(c, a.Validator, &req); !ok {
			return err
		}

		err := a.AuthService.ChangePassword(middleware.GetUserID(c), req)
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return unauthorized(c, "Current password is incorrect")
		case errors.Is(err, services.ErrUserNotFound):
			return notFound(c, "User not found")
		case err != nil:
			return serverErrorWithDetails(c, "Failed to change password", err)
		}

		return success(c, fiber.Map{"success": true})
	}
}

// GoogleLink redirects to the Google consent screen to link Drive
func GoogleLink(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := uuid.NewString()

		authURL, err := a.AuthService.DriveAuthURL(state)
		if err != nil {
			return c.Redirect("/?error=drive_disabled", fiber.StatusTemporaryRedirect)
		}

		// Store state in a cookie (expires in 10 minutes)
		c.Cookie(&fiber.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Expires:  time.Now().Add(10 * time.Minute),
			HTTPOnly: true,
			Secure:   config.AppConfig.IsProduction(),
			SameSite: "Lax",
			Path:     "/",
		})

		log.Printf("[AUTH] Redirecting user %s to Google OAuth", middleware.GetUserID(c))
		return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
	}
}

// GoogleCallback handles the OAuth callback from Google
func GoogleCallback(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stateCookie := c.Cookies(oauthStateCookie)
		if stateCookie == "" {
			log.Printf("[AUTH] Missing state cookie")
			return c.Redirect("/?error=invalid_state", fiber.StatusTemporaryRedirect)
		}
		c.ClearCookie(oauthStateCookie)

		if c.Query("state") != stateCookie {
			log.Printf("[AUTH] State mismatch")
			return c.Redirect("/?error=invalid_state", fiber.StatusTemporaryRedirect)
		}

		if errParam := c.Query("error"); errParam != "" {
			log.Printf("[AUTH] OAuth error from Google: %s", errParam)
			return c.Redirect("/?error="+url.QueryEscape(errParam), fiber.StatusTemporaryRedirect)
		}

		code := c.Query("code")
		if code == "" {
			log.Printf("[AUTH] Missing authorization code")
			return c.Redirect("/?error=missing_code", fiber.StatusTemporaryRedirect)
		}

		sess := middleware.GetSession(c)
		if err := a.AuthService.LinkDrive(c.UserContext(), sess, code); err != nil {
			log.Printf("[AUTH] Drive link failed for user %s: %v", sess.UserID, err)
			return c.Redirect("/?error=link_failed", fiber.StatusTemporaryRedirect)
		}

		log.Printf("[AUTH] Drive linked for user %s", sess.UserID)
		return c.Redirect("/?drive=linked", fiber.StatusTemporaryRedirect)
	}
}
