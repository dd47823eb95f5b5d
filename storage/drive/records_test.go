package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// fakeDrive serves the subset of the Drive v3 API the record manager reads
type fakeDrive struct {
	records   int
	downloads atomic.Int32
	failID    string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		q := r.URL.Query().Get("q")
		if strings.Contains(q, folderMimeType) {
			name := strings.SplitN(strings.TrimPrefix(q, "name='"), "'", 2)[0]
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]string{{"id": "folder-" + name, "name": name}},
			})
			return
		}

		// Two pages of listing to exercise page tokens
		half := f.records / 2
		from, to := 0, half
		next := "second"
		if r.URL.Query().Get("pageToken") == "second" {
			from, to, next = half, f.records, ""
		}
		files := []map[string]string{}
		for i := from; i < to; i++ {
			files = append(files, map[string]string{"id": fmt.Sprintf("file-%02d", i), "name": fmt.Sprintf("rec-%02d.json", i)})
		}
		if from == 0 {
			files = append(files, map[string]string{"id": "stray", "name": "notes.txt"})
		}
		json.NewEncoder(w).Encode(map[string]any{"files": files, "nextPageToken": next})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		if id == f.failID {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
			return
		}
		f.downloads.Add(1)
		var n int
		fmt.Sscanf(id, "file-%d", &n)
		json.NewEncoder(w).Encode(map[string]any{
			"id": fmt.Sprintf("rec-%02d", n), "firstName": "Name", "lastName": "Drive", "age": 20 + n,
		})

	case r.Method == http.MethodDelete:
		if strings.HasSuffix(r.URL.Path, "/gone") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestService(t *testing.T, fake *fakeDrive) *Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	client, err := NewClientWithOptions(context.Background(), ts, "user-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewServiceWithClient(client)
}

func TestRecordManager_FetchPage(t *testing.T) {
	fake := &fakeDrive{records: 10}
	svc := newTestService(t, fake)
	ctx := context.Background()

	page, err := svc.FetchPage(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, page.Total, "stray files are not counted")
	require.Len(t, page.Records, 4)
	assert.Equal(t, "rec-04", page.Records[0].ID)
	assert.Equal(t, "rec-07", page.Records[3].ID)
	assert.Equal(t, int32(4), fake.downloads.Load())

	page, err = svc.FetchPage(ctx, 5, 4)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 10, page.Total)
}

func TestRecordManager_GetAll(t *testing.T) {
	svc := newTestService(t, &fakeDrive{records: 6})

	all, err := svc.GetAllRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("rec-%02d", i), rec.ID, "order follows the listing")
		assert.Equal(t, 20+i, rec.Age)
	}
}

func TestRecordManager_DownloadFailure(t *testing.T) {
	svc := newTestService(t, &fakeDrive{records: 6, failID: "file-02"})

	_, err := svc.GetAllRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rec-02.json")
}

func TestRecordManager_DeleteMissingFile(t *testing.T) {
	svc := newTestService(t, &fakeDrive{})

	assert.NoError(t, svc.DeleteRecord("rec-1", "gone"))
	assert.NoError(t, svc.DeleteRecord("rec-1", "file-01"))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `O\'Brien.json`, escapeQuery("O'Brien.json"))
}
