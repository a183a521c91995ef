package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
)

// Session is the slice of DriveSession the uploader needs. Kept narrow so
// tests can substitute a fake.
type Session interface {
	Client() DriveClient
	IsConnected() bool
}

const (
	// uploadQueueCapacity bounds how many captures may wait on the network.
	uploadQueueCapacity = 64

	// stopTimeout bounds how long Stop waits for the worker to exit.
	stopTimeout = 5 * time.Second
)

// Uploader drains a FIFO queue of local file paths into a well-known Drive
// folder on a single background goroutine, decoupling photo capture from
// network latency. Failed uploads are logged and dropped, never retried at
// the queue level; the HTTP transport already retries transient failures.
type Uploader struct {
	session    Session
	folders    *folderCache
	folderName string

	queue  chan string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewBoothUploader wires an Uploader from booth config: the folder cache
// lives next to the config file, and uploads land in the configured Drive
// folder.
func NewBoothUploader(config boothconfig.BoothConfig, session Session) (*Uploader, error) {
	cachePath, err := getFolderCachePath(filepath.Dir(config.ConfigPath()))
	if err != nil {
		return nil, fmt.Errorf("failed to get folder cache path: %w", err)
	}
	folders, err := loadFolderCache(cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load folder cache: %w", err)
	}
	return NewUploader(session, folders, config.GoogleDrive.GetFolderName()), nil
}

// NewUploader creates an Uploader. Call Start to launch the worker.
func NewUploader(session Session, folders *folderCache, folderName string) *Uploader {
	return &Uploader{
		session:    session,
		folders:    folders,
		folderName: folderName,
		queue:      make(chan string, uploadQueueCapacity),
		done:       make(chan struct{}),
	}
}

// Start launches the background upload worker. Calling Start more than once
// is a no-op.
func (u *Uploader) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started || u.stopped {
		return
	}
	u.started = true

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	go u.worker(ctx)
}

// worker processes queued paths strictly in enqueue order, one upload in
// flight at a time, until the context is cancelled.
func (u *Uploader) worker(ctx context.Context) {
	defer close(u.done)
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-u.queue:
			// Re-check cancellation so a Stop that raced the dequeue wins.
			if ctx.Err() != nil {
				return
			}
			if u.uploadFile(ctx, path) {
				logger.Info("uploaded to Google Drive", "file", filepath.Base(path))
			}
		}
	}
}

// Enqueue adds a file to the upload queue. If the session is not connected,
// the uploader is stopped, or the queue is full, the file is logged and
// dropped rather than queuing work that is known to fail.
func (u *Uploader) Enqueue(path string) {
	u.mu.Lock()
	stopped := u.stopped
	u.mu.Unlock()
	if stopped {
		logger.Warn("uploader stopped, skipping upload", "file", path)
		return
	}

	if !u.session.IsConnected() {
		logger.Warn("Drive not connected, skipping upload", "file", path)
		return
	}

	select {
	case u.queue <- path:
		logger.Info("queued for upload", "file", filepath.Base(path))
	default:
		logger.Warn("upload queue full, dropping", "file", path)
	}
}

// QueueLen returns the number of uploads waiting in the queue.
func (u *Uploader) QueueLen() int {
	return len(u.queue)
}

// Stop cancels the worker and waits a bounded time for it to exit. It is
// idempotent; after it returns no further items are processed even if more
// are enqueued afterward.
func (u *Uploader) Stop() {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return
	}
	u.stopped = true
	started := u.started
	cancel := u.cancel
	u.mu.Unlock()

	if !started {
		return
	}

	cancel()
	select {
	case <-u.done:
	case <-time.After(stopTimeout):
		logger.Warn("upload worker did not exit before timeout")
	}
}

// UploadAndShare uploads a file, grants anyone-with-the-link read access, and
// returns the shareable URL. Any failure at any step yields "", with no
// partial result and no panic out to the kiosk loop.
func (u *Uploader) UploadAndShare(ctx context.Context, path string) string {
	fileID, ok := u.upload(ctx, path)
	if !ok {
		return ""
	}

	client := u.session.Client()
	shareURL, err := client.ShareFile(ctx, fileID)
	if err != nil {
		logger.Error("failed to share uploaded file", "file", path, "error", err)
		return ""
	}

	logger.Info("uploaded and shared", "file", filepath.Base(path), "url", shareURL)
	return shareURL
}

// uploadFile performs one best-effort upload attempt for the worker loop.
func (u *Uploader) uploadFile(ctx context.Context, path string) bool {
	_, ok := u.upload(ctx, path)
	return ok
}

// upload runs the shared upload steps: handle, local precondition, folder
// resolution, file create+content. Returns the new Drive file id.
func (u *Uploader) upload(ctx context.Context, path string) (string, bool) {
	client := u.session.Client()
	if client == nil {
		logger.Warn("no Drive connection available", "file", path)
		return "", false
	}

	if _, err := os.Stat(path); err != nil {
		logger.Warn("file not found, dropping upload", "file", path, "error", err)
		return "", false
	}

	folderID, err := u.resolveFolder(ctx, client)
	if err != nil {
		logger.Error("failed to resolve Drive folder", "folder", u.folderName, "error", err)
		return "", false
	}

	fileID, err := client.UploadFile(ctx, folderID, path)
	if err != nil {
		logger.Error("upload failed", "file", path, "error", err)
		return "", false
	}
	return fileID, true
}

func (u *Uploader) resolveFolder(ctx context.Context, client DriveClient) (string, error) {
	if u.folders == nil {
		return "", fmt.Errorf("no folder cache configured")
	}
	return u.folders.getOrCreateFolderID(ctx, client, u.folderName)
}
