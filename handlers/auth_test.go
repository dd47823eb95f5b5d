package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("creates account and session", func(t *testing.T) {
		resp, body := srv.do(t, request{
			method:  http.MethodPost,
			path:    "/api/auth/register",
			headers: map[string]string{"Accept-Language": "uk-UA,uk;q=0.9"},
			body: fiber.Map{
				"username":    "ada",
				"email":       "Ada@Example.com",
				"password":    "secret123",
				"displayName": "Ada Lovelace",
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)

		user := body["user"].(map[string]any)
		assert.Equal(t, "ada", user["username"])
		assert.Equal(t, "ada@example.com", user["email"])
		assert.Equal(t, "Ada Lovelace", user["displayName"])
		assert.Equal(t, "uk", user["language"])
		assert.Equal(t, false, user["driveLinked"])
		assert.NotEmpty(t, body["token"])

		var cookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "session_id" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("duplicate username", func(t *testing.T) {
		resp, body := srv.do(t, request{
			method: http.MethodPost,
			path:   "/api/auth/register",
			body: fiber.Map{
				"username": "ada",
				"email":    "other@example.com",
				"password": "secret123",
			},
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, body["error"], "already registered")
	})

	t.Run("validation errors", func(t *testing.T) {
		resp, body := srv.do(t, request{
			method: http.MethodPost,
			path:   "/api/auth/register",
			body: fiber.Map{
				"username": "x",
				"email":    "not-an-email",
				"password": "123",
			},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation failed", body["error"])

		details := body["details"].([]any)
		fields := make([]string, 0, len(details))
		for _, d := range details {
			fields = append(fields, d.(map[string]any)["field"].(string))
		}
		assert.ElementsMatch(t, []string{"username", "email", "password"}, fields)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, body := srv.do(t, request{
			method:  http.MethodPost,
			path:    "/api/auth/register",
			body:    "not an object",
			headers: map[string]string{"Content-Type": "application/json"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid request body", body["error"])
	})
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.register(t, "grace")

	tests := []struct {
		name       string
		login      string
		password   string
		wantStatus int
	}{
		{"by username", "grace", "secret123", http.StatusOK},
		{"by email", "grace@example.com", "secret123", http.StatusOK},
		{"wrong password", "grace", "wrong-password", http.StatusUnauthorized},
		{"unknown user", "nobody", "secret123", http.StatusUnauthorized},
		{"missing password", "grace", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, request{
				method: http.MethodPost,
				path:   "/api/auth/login",
				body:   fiber.Map{"login": tt.login, "password": tt.password},
			})
			assert.Equal(t, tt.wantStatus, resp.StatusCode, body)
			if tt.wantStatus == http.StatusOK {
				assert.NotEmpty(t, body["token"])
			}
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.register(t, "alan")

	resp, _ := srv.do(t, request{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", body["error"])

	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, false, body["driveEnabled"])
	assert.Equal(t, "alan", body["user"].(map[string]any)["username"])

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/logout", token: token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The token outlives the session it was issued for
	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Session expired", body["error"])
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.register(t, "edsger")

	resp, body := srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/profile",
		token:  token,
		body:   fiber.Map{"displayName": "E. W. Dijkstra", "language": "pl"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "E. W. Dijkstra", user["displayName"])
	assert.Equal(t, "pl", user["language"])

	var langCookie string
	for _, c := range resp.Cookies() {
		if c.Name == "lang" {
			langCookie = c.Value
		}
	}
	assert.Equal(t, "pl", langCookie)

	// The session picks up the new preference
	_, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	assert.Equal(t, "pl", body["user"].(map[string]any)["language"])

	resp, body = srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/profile",
		token:  token,
		body:   fiber.Map{"language": "xx"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["error"])
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.register(t, "barbara")

	resp, _ := srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/profile/password",
		token:  token,
		body:   fiber.Map{"currentPassword": "wrong", "newPassword": "another123"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/profile/password",
		token:  token,
		body:   fiber.Map{"currentPassword": "secret123", "newPassword": "another123"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   fiber.Map{"login": "barbara", "password": "another123"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGoogleLink(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.register(t, "linus")

	t.Run("requires a session", func(t *testing.T) {
		resp, _ := srv.do(t, request{method: http.MethodGet, path: "/auth/google"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("redirects home when drive is disabled", func(t *testing.T) {
		resp, _ := srv.do(t, request{method: http.MethodGet, path: "/auth/google", token: token})
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, "/?error=drive_disabled", resp.Header.Get("Location"))
	})

	t.Run("callback rejects a missing state", func(t *testing.T) {
		resp, _ := srv.do(t, request{method: http.MethodGet, path: "/auth/google/callback?code=abc&state=s1", token: token})
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, "/?error=invalid_state", resp.Header.Get("Location"))
	})

	t.Run("callback rejects a state mismatch", func(t *testing.T) {
		resp, _ := srv.do(t, request{
			method:  http.MethodGet,
			path:    "/auth/google/callback?code=abc&state=s1",
			token:   token,
			headers: map[string]string{"Cookie": "oauth_state=s2"},
		})
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, "/?error=invalid_state", resp.Header.Get("Location"))
	})

	t.Run("callback reports google errors", func(t *testing.T) {
		resp, _ := srv.do(t, request{
			method:  http.MethodGet,
			path:    "/auth/google/callback?error=access_denied&state=s1",
			token:   token,
			headers: map[string]string{"Cookie": "oauth_state=s1"},
		})
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.True(t, strings.HasSuffix(resp.Header.Get("Location"), "error=access_denied"))
	})
}
