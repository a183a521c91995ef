package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriveClient records calls so tests can assert ordering and counts.
type fakeDriveClient struct {
	mu          sync.Mutex
	uploads     []string
	findCalls   int
	createCalls int
	shareCalls  int

	existingFolderID string // returned by FindFolder; "" means no folder
	uploadErr        error
	shareErr         error
}

func (f *fakeDriveClient) FindFolder(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	return f.existingFolderID, nil
}

func (f *fakeDriveClient) CreateFolder(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return "created-folder-id", nil
}

func (f *fakeDriveClient) UploadFile(_ context.Context, _ string, filePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, filePath)
	return fmt.Sprintf("file-id-%d", len(f.uploads)), nil
}

func (f *fakeDriveClient) ShareFile(_ context.Context, fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shareCalls++
	if f.shareErr != nil {
		return "", f.shareErr
	}
	return "https://drive.example.com/view/" + fileID, nil
}

func (f *fakeDriveClient) uploadedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

// fakeSession hands out a fixed client.
type fakeSession struct {
	client    DriveClient
	connected bool
}

func (s *fakeSession) Client() DriveClient {
	if !s.connected {
		return nil
	}
	return s.client
}

func (s *fakeSession) IsConnected() bool { return s.connected }

func newTestCache(t *testing.T) *folderCache {
	t.Helper()
	cache, err := loadFolderCache(filepath.Join(t.TempDir(), "folder_cache.json"))
	require.NoError(t, err)
	return cache
}

func writeTempPhoto(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0644))
	return path
}

func TestUploader_FIFOOrder(t *testing.T) {
	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	dir := t.TempDir()
	var want []string
	for i := 0; i < 5; i++ {
		want = append(want, writeTempPhoto(t, dir, fmt.Sprintf("photo_%d_raw.png", i)))
	}

	for _, path := range want {
		uploader.Enqueue(path)
	}
	uploader.Start()

	require.Eventually(t, func() bool {
		return len(client.uploadedPaths()) == len(want)
	}, 5*time.Second, 10*time.Millisecond)
	uploader.Stop()

	assert.Equal(t, want, client.uploadedPaths(), "uploads must be processed in enqueue order")
}

func TestUploader_EnqueueWhileDisconnected(t *testing.T) {
	client := &fakeDriveClient{}
	session := &fakeSession{client: client, connected: false}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	uploader.Enqueue("photo_0_raw.png")

	assert.Equal(t, 0, uploader.QueueLen(), "enqueue while disconnected must not grow the queue")
}

func TestUploader_NeverAuthorizedSessionLeavesWorkerIdle(t *testing.T) {
	client := &fakeDriveClient{}
	session := &fakeSession{client: client, connected: false}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	uploader.Start()
	defer uploader.Stop()

	uploader.Enqueue("photo_0_raw.png")
	uploader.Enqueue("photo_1_raw.png")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, uploader.QueueLen())
	assert.Empty(t, client.uploadedPaths(), "worker must never see a path from a disconnected session")
}

func TestUploader_StopIsIdempotent(t *testing.T) {
	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	uploader.Start()

	uploader.Stop()
	uploader.Stop() // second call must return immediately

	// Nothing enqueued after Stop is ever processed.
	path := writeTempPhoto(t, t.TempDir(), "photo_9_raw.png")
	uploader.Enqueue(path)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, client.uploadedPaths())
}

func TestUploader_StopBeforeStart(t *testing.T) {
	session := &fakeSession{connected: false}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	done := make(chan struct{})
	go func() {
		uploader.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop on an unstarted uploader must not block")
	}
}

func TestUploader_SingleDequeuePerItem(t *testing.T) {
	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	uploader.Start()
	defer uploader.Stop()

	path := writeTempPhoto(t, t.TempDir(), "photo_0.png")
	uploader.Enqueue(path)

	require.Eventually(t, func() bool {
		return len(client.uploadedPaths()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The item is consumed before any further dequeue happens.
	assert.Equal(t, 0, uploader.QueueLen())
	assert.Equal(t, []string{path}, client.uploadedPaths())
}

func TestUploadAndShare_MissingFile(t *testing.T) {
	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	url := uploader.UploadAndShare(context.Background(), filepath.Join(t.TempDir(), "nope.png"))

	assert.Empty(t, url, "a missing local file must yield an absence result, not a panic")
	assert.Empty(t, client.uploadedPaths())
	assert.Equal(t, 0, client.shareCalls)
}

func TestUploadAndShare_Success(t *testing.T) {
	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	path := writeTempPhoto(t, t.TempDir(), "photo_1_composited.png")
	url := uploader.UploadAndShare(context.Background(), path)

	assert.Equal(t, "https://drive.example.com/view/file-id-1", url)
	assert.Equal(t, []string{path}, client.uploadedPaths())
	assert.Equal(t, 1, client.shareCalls)
}

func TestUploadAndShare_ShareFailureYieldsAbsence(t *testing.T) {
	client := &fakeDriveClient{
		existingFolderID: "folder-id",
		shareErr:         fmt.Errorf("permission call failed"),
	}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")

	path := writeTempPhoto(t, t.TempDir(), "photo_2_cutout.png")
	url := uploader.UploadAndShare(context.Background(), path)

	assert.Empty(t, url, "no partial success: a failed share yields an absence result")
}

func TestUploader_FailedUploadIsDroppedNotRequeued(t *testing.T) {
	client := &fakeDriveClient{
		existingFolderID: "folder-id",
		uploadErr:        fmt.Errorf("remote call failed"),
	}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	uploader.Start()
	defer uploader.Stop()

	path := writeTempPhoto(t, t.TempDir(), "photo_0_raw.png")
	uploader.Enqueue(path)

	require.Eventually(t, func() bool {
		return uploader.QueueLen() == 0
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, uploader.QueueLen(), "failed upload must be dropped, not requeued")
}
