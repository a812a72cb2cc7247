package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/pulseboard/internal/logging"
	"github.com/highbeam/pulseboard/internal/store"
)

type fakeDaemon struct {
	mu       sync.Mutex
	stopped  bool
	lastArgs map[string]string
	failNext bool
}

func (f *fakeDaemon) Uptime() time.Duration { return 90 * time.Second }

func (f *fakeDaemon) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeDaemon) Report(args map[string]string) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastArgs = args
	if f.failNext {
		return nil, errors.New("bad window")
	}
	return map[string]interface{}{"window": args["window"], "tasks": 3}, nil
}

func (f *fakeDaemon) Refresh() (*RefreshData, error) {
	return &RefreshData{ImportID: "run-1", Source: "snap.json", Projects: 2, Tasks: 5}, nil
}

func (f *fakeDaemon) args() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastArgs
}

func (f *fakeDaemon) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeStore struct{}

func (fakeStore) Counts() (store.Counts, error) {
	return store.Counts{Projects: 2, Tasks: 5, Employees: 4}, nil
}

func (fakeStore) LastImport() (*store.ImportRun, error) {
	return &store.ImportRun{ID: "run-1", Source: "snap.json", ImportedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}, nil
}

func (fakeStore) DBSizeBytes() (int64, error) { return 4096, nil }

func startServer(t *testing.T, d *fakeDaemon) *Client {
	t.Helper()

	// Unix socket paths are length-limited; keep the directory short.
	dir, err := os.MkdirTemp("", "pbipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "d.sock")

	srv := NewServer(d, fakeStore{}, "/data/snapshots", logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Listen(ctx, socket) }()
	t.Cleanup(func() {
		cancel()
		_ = srv.Stop()
		<-done
	})

	client := NewClient(socket)
	require.Eventually(t, func() bool { return client.Ping() == nil }, 2*time.Second, 10*time.Millisecond)
	return client
}

func TestServer_Status(t *testing.T) {
	client := startServer(t, &fakeDaemon{})

	status, err := client.Status()
	require.NoError(t, err)

	assert.Equal(t, "1m30s", status.Uptime)
	assert.Equal(t, int64(4096), status.DBSizeBytes)
	assert.Equal(t, int64(5), status.Tasks)
	assert.Equal(t, "run-1", status.LastImportID)
	assert.Equal(t, "2024-06-15T12:00:00Z", status.LastImportAt)
	assert.Equal(t, "/data/snapshots", status.SnapshotDir)
}

func TestServer_Report(t *testing.T) {
	d := &fakeDaemon{}
	client := startServer(t, d)

	var out struct {
		Window string `json:"window"`
		Tasks  int    `json:"tasks"`
	}
	require.NoError(t, client.Report(map[string]string{"window": "week"}, &out))

	assert.Equal(t, "week", out.Window)
	assert.Equal(t, 3, out.Tasks)
	assert.Equal(t, "week", d.args()["window"])
}

func TestServer_ReportError(t *testing.T) {
	client := startServer(t, &fakeDaemon{failNext: true})

	var out map[string]interface{}
	err := client.Report(nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad window")
}

func TestServer_Refresh(t *testing.T) {
	client := startServer(t, &fakeDaemon{})

	data, err := client.Refresh()
	require.NoError(t, err)
	assert.Equal(t, "run-1", data.ImportID)
	assert.Equal(t, int64(5), data.Tasks)
}

func TestServer_UnknownCommand(t *testing.T) {
	client := startServer(t, &fakeDaemon{})

	_, err := client.send(Request{Command: "explode"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestServer_Stop(t *testing.T) {
	d := &fakeDaemon{}
	client := startServer(t, d)

	require.NoError(t, client.RequestStop())
	// The server replies before it calls Stop.
	assert.Eventually(t, d.isStopped, time.Second, 5*time.Millisecond)
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	assert.Error(t, client.Ping())
}
