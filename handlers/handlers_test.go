package handlers_test

import (
	"bytes"
	"encoding/json"
	"formtable/app"
	"formtable/auth"
	"formtable/config"
	"formtable/config/setup"
	"formtable/database"
	"formtable/services"
	"formtable/session"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{Env: "test", DefaultLimit: 2}
	os.Exit(m.Run())
}

type testServer struct {
	fiber       *fiber.App
	application *app.App
}

// newTestServer wires the real routes over a temporary database.
// sourceFor may be nil to page from the database.
func newTestServer(t *testing.T, sourceFor services.SourceFactory) *testServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to initialize test database")
	require.NoError(t, db.Migrate(), "Failed to run migrations")
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	sessionStore := session.NewStore(db.DB)
	tokens := auth.NewTokenIssuer([]byte("handler-test-secret"), time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if sourceFor == nil {
		sourceFor = repo.UserSource
	}

	authService := services.NewAuthService(repo, sessionStore, nil, tokens, nil)
	recordService := services.NewRecordService(repo, nil, sourceFor, 2, 0)
	application := app.New(repo, nil, sessionStore, authService, recordService, tokens, logger)

	fiberApp := fiber.New(fiber.Config{ErrorHandler: setup.CustomErrorHandler(logger)})
	setup.RegisterRoutes(fiberApp, application)

	return &testServer{fiber: fiberApp, application: application}
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

// do sends req and decodes a JSON response body when there is one
func (s *testServer) do(t *testing.T, req request) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	httpReq := httptest.NewRequest(req.method, req.path, body)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := s.fiber.Test(httpReq, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

// register creates an account through the API and returns its bearer token
func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()

	resp, body := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body: fiber.Map{
			"username": username,
			"email":    username + "@example.com",
			"password": "secret123",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// createRecord adds a record through the API and returns its id
func (s *testServer) createRecord(t *testing.T, token, first, last string, age int) string {
	t.Helper()

	resp, body := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/records",
		token:  token,
		body: fiber.Map{
			"firstName": first,
			"lastName":  last,
			"age":       age,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	rec := body["record"].(map[string]any)
	return rec["id"].(string)
}

func dataOf(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()

	raw, ok := body["data"].([]any)
	require.True(t, ok, "missing data in %v", body)
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func firstNames(t *testing.T, body map[string]any) []string {
	t.Helper()

	rows := dataOf(t, body)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["firstName"].(string)
	}
	return out
}
