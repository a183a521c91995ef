package commands

import (
	"context"
	"path/filepath"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
)

// DriveSession holds the authorized Drive client for one booth process. It is
// constructed explicitly and passed to whatever needs it; there is no hidden
// process-wide singleton. The worker goroutine is the only reader of the
// client after Connect, so no locking is needed around the handle itself.
type DriveSession struct {
	config    boothconfig.BoothConfig
	configDir string

	client    DriveClient
	connected bool
}

// NewDriveSession creates a disconnected session. Call Connect before use.
func NewDriveSession(config boothconfig.BoothConfig) *DriveSession {
	return &DriveSession{
		config:    config,
		configDir: filepath.Dir(config.ConfigPath()),
	}
}

// Connect establishes the authorized Drive handle: loads the persisted token,
// runs the interactive auth flow if there is none, refreshes an expired one,
// and persists the result. Provider failures are logged and leave the session
// disconnected; they never propagate to the kiosk loop.
func (s *DriveSession) Connect(ctx context.Context) {
	if s.connected {
		return
	}

	httpClient, err := GetAuthenticatedDriveHTTPClient(ctx, s.config, s.configDir)
	if err != nil {
		logger.Error("failed to authorize with Google Drive", "error", err)
		return
	}

	client, err := NewDriveClient(ctx, httpClient)
	if err != nil {
		logger.Error("failed to initialize Drive client", "error", err)
		return
	}

	s.client = client
	s.connected = true
	logger.Info("Google Drive connection established")
}

// Client returns the authorized Drive client, or nil if not connected.
func (s *DriveSession) Client() DriveClient {
	if !s.connected {
		return nil
	}
	return s.client
}

// IsConnected reports whether an authorized handle was established and is not
// known-invalid.
func (s *DriveSession) IsConnected() bool {
	return s.connected && s.client != nil
}

// Invalidate drops the handle, forcing the next Connect to re-authorize.
func (s *DriveSession) Invalidate() {
	s.client = nil
	s.connected = false
}
