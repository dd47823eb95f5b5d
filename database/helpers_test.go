package database

import (
	"formtable/models"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "formtable-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)

	err = db.Migrate()
	require.NoError(t, err)

	repo := NewRepository(db)

	testUser := &models.User{
		ID:           "test-user",
		Username:     "tester",
		Email:        "test@example.com",
		PasswordHash: "hash",
		DisplayName:  "Test User",
		Language:     "en",
		CreatedAt:    time.Now(),
	}
	err = repo.CreateUser(testUser)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func newTestRecord(id, first string, age int) *models.StoredRecord {
	return &models.StoredRecord{
		Record: models.Record{
			ID:          id,
			FirstName:   first,
			LastName:    "Tester",
			Age:         age,
			Description: "created by " + first,
		},
		UserID: "test-user",
	}
}
