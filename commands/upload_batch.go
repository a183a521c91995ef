package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
)

// pendingFile stores path and size for progress tracking.
type pendingFile struct {
	path string
	size int64
}

// UploadPending drains leftover pipeline images from the output directory to
// Google Drive. It is the recovery path for photos whose background upload
// was dropped mid-session. Uploaded files are moved into an uploaded/
// subdirectory so the command is idempotent - if interrupted, it can be
// recalled to resume.
func UploadPending(ctx context.Context, config boothconfig.BoothConfig, uploader *Uploader) error {
	outputDir := config.GetOutputDir()
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		logger.Info("output directory does not exist, nothing to upload",
			slog.String("output_dir", outputDir))
		return nil
	}

	uploadedDir := filepath.Join(outputDir, "uploaded")

	// List pending pipeline images, skipping QR codes, thumbnails, and
	// already-uploaded files.
	var pending []pendingFile
	var totalSize int64
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == outputDir && os.IsNotExist(err) {
				return fmt.Errorf("output directory '%s' disappeared or unreadable: %w", outputDir, err)
			}
			// Log and try to continue on per-entry errors.
			logger.Error("error accessing path during walk, skipping",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}

		if d.IsDir() {
			if path != outputDir {
				return fs.SkipDir // uploaded/, thumbs/
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), "_qr.png") {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return fmt.Errorf("failed to get file info for %s: %w", path, statErr)
		}
		pending = append(pending, pendingFile{path: path, size: info.Size()})
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk output dir '%s': %w", outputDir, err)
	}

	if len(pending) == 0 {
		logger.Info("no pending images in output directory")
		return nil
	}
	logger.Info("found pending images to upload",
		slog.Int("count", len(pending)),
		slog.Int64("total_size_bytes", totalSize))

	bar := newUploadProgressBar(totalSize, "Uploading photos")

	for _, file := range pending {
		fileID, ok := uploader.upload(ctx, file.path)
		bar.Add64(file.size)
		if !ok {
			return fmt.Errorf("failed to upload %s", file.path)
		}
		logger.Debug("uploaded pending image",
			slog.String("file", filepath.Base(file.path)),
			slog.String("id", fileID))

		if err := os.MkdirAll(uploadedDir, 0755); err != nil {
			return fmt.Errorf("failed to create uploaded dir: %w", err)
		}
		dest := filepath.Join(uploadedDir, filepath.Base(file.path))
		if err := os.Rename(file.path, dest); err != nil {
			return fmt.Errorf("failed to move %s to %s: %w", file.path, dest, err)
		}
	}

	_ = bar.Finish()

	logger.Info("finished uploading pending images", slog.Int("count", len(pending)))
	return nil
}
