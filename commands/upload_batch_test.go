package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPending_MovesUploadedFiles(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "final_images")
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "thumbs"), 0755))

	raw := writeTempPhoto(t, outputDir, "photo_1_raw.png")
	composited := writeTempPhoto(t, outputDir, "photo_1_composited.png")
	qr := writeTempPhoto(t, outputDir, "photo_1_composited_qr.png")
	thumb := writeTempPhoto(t, filepath.Join(outputDir, "thumbs"), "beach.png")

	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	config := boothconfig.BoothConfig{OutputDir: outputDir}

	require.NoError(t, UploadPending(context.Background(), config, uploader))

	// Pipeline images were uploaded and moved.
	assert.ElementsMatch(t, []string{raw, composited}, client.uploadedPaths())
	assert.NoFileExists(t, raw)
	assert.NoFileExists(t, composited)
	assert.FileExists(t, filepath.Join(outputDir, "uploaded", "photo_1_raw.png"))
	assert.FileExists(t, filepath.Join(outputDir, "uploaded", "photo_1_composited.png"))

	// QR codes and thumbnails stay put.
	assert.FileExists(t, qr)
	assert.FileExists(t, thumb)
}

func TestUploadPending_Idempotent(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "final_images")
	require.NoError(t, os.MkdirAll(outputDir, 0755))
	writeTempPhoto(t, outputDir, "photo_1_raw.png")

	client := &fakeDriveClient{existingFolderID: "folder-id"}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	config := boothconfig.BoothConfig{OutputDir: outputDir}

	require.NoError(t, UploadPending(context.Background(), config, uploader))
	// A second run finds nothing new and uploads nothing.
	require.NoError(t, UploadPending(context.Background(), config, uploader))

	assert.Len(t, client.uploadedPaths(), 1)
}

func TestUploadPending_MissingOutputDir(t *testing.T) {
	client := &fakeDriveClient{}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	config := boothconfig.BoothConfig{OutputDir: filepath.Join(t.TempDir(), "nope")}

	// Nothing to upload is not an error.
	require.NoError(t, UploadPending(context.Background(), config, uploader))
	assert.Empty(t, client.uploadedPaths())
}

func TestUploadPending_StopsOnUploadFailure(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "final_images")
	require.NoError(t, os.MkdirAll(outputDir, 0755))
	raw := writeTempPhoto(t, outputDir, "photo_1_raw.png")

	client := &fakeDriveClient{
		existingFolderID: "folder-id",
		uploadErr:        fmt.Errorf("remote call failed"),
	}
	session := &fakeSession{client: client, connected: true}
	uploader := NewUploader(session, newTestCache(t), "PhotoBooth")
	config := boothconfig.BoothConfig{OutputDir: outputDir}

	err := UploadPending(context.Background(), config, uploader)
	require.Error(t, err)

	// The file stays in place for the next run.
	assert.FileExists(t, raw)
}
