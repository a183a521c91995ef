package commands

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
)

// boothUploader is the slice of Uploader the kiosk loop needs.
type boothUploader interface {
	Enqueue(path string)
	UploadAndShare(ctx context.Context, path string) string
}

// BoothDeps carries the collaborators of the kiosk loop so tests can
// substitute fakes for the camera, the removal model, and the uploader.
type BoothDeps struct {
	Frames   FrameSource
	Remover  BackgroundRemover
	Uploader boothUploader
	Trigger  io.Reader // operator input, normally stdin
	Out      io.Writer // kiosk console, normally stdout
}

// RunBooth runs the kiosk session loop: wait for the operator, count down,
// capture, save the raw frame, queue it for background upload, cut out the
// subject, composite it over a background, save the final image, upload and
// share it, and show a QR code for the share link. Any failure downgrades to
// a log line; the loop itself never crashes.
func RunBooth(ctx context.Context, config boothconfig.BoothConfig, deps BoothDeps) error {
	namer := newPhotoNamer(config.GetOutputDir())
	backgrounds := config.GetBackgrounds()

	writeBackgroundThumbs(config)

	scanner := bufio.NewScanner(deps.Trigger)
	shot := 0
	for {
		fmt.Fprint(deps.Out, "\nPress Enter to take a photo (Ctrl-D to quit): ")
		if !scanner.Scan() {
			break // EOF: operator closed the booth
		}
		if ctx.Err() != nil {
			break
		}

		if err := countdown(ctx, config.GetCountdownSeconds(), deps.Out); err != nil {
			break
		}

		frame, err := deps.Frames.Grab(ctx)
		if err != nil {
			logger.Error("failed to capture frame", "error", err)
			continue
		}

		namer.nextShot()
		rawPath := namer.pathFor(suffixRaw)
		if err := savePNG(frame, rawPath); err != nil {
			logger.Error("failed to save raw capture", "error", err)
			continue
		}
		fmt.Fprintf(deps.Out, "Saved %s\n", filepath.Base(rawPath))

		// The raw capture goes up in the background; the guest-facing flow
		// must not wait on the network.
		deps.Uploader.Enqueue(rawPath)

		finalPath := processShot(ctx, deps, namer, backgrounds, shot, frame)
		if finalPath == "" {
			continue
		}
		shot++

		shareURL := deps.Uploader.UploadAndShare(ctx, finalPath)
		if shareURL == "" {
			logger.Warn("no share link produced, skipping QR code", "file", finalPath)
			continue
		}
		showQRCode(deps.Out, shareURL, finalPath)
	}

	return nil
}

// processShot runs the cutout/composite stages and returns the path of the
// final saved image, or "" if every stage failed.
func processShot(ctx context.Context, deps BoothDeps, namer *photoNamer, backgrounds []string, shot int, frame image.Image) string {
	cutout, err := makeCutout(ctx, deps.Remover, frame)
	if err != nil {
		logger.Error("failed to generate cutout", "error", err)
		return ""
	}

	if len(backgrounds) == 0 {
		path := namer.pathFor(suffixCutout)
		if err := savePNG(cutout, path); err != nil {
			logger.Error("failed to save cutout", "error", err)
			return ""
		}
		return path
	}

	// Rotate through the configured backgrounds, one per shot.
	bg := backgrounds[shot%len(backgrounds)]
	final, err := composite(cutout, bg)
	if err != nil {
		logger.Error("failed to composite background", "background", bg, "error", err)
		// Fall back to the plain cutout rather than losing the shot.
		path := namer.pathFor(suffixCutout)
		if err := savePNG(cutout, path); err != nil {
			logger.Error("failed to save cutout", "error", err)
			return ""
		}
		return path
	}

	path := namer.pathFor(suffixComposited)
	if err := savePNG(final, path); err != nil {
		logger.Error("failed to save composited image", "error", err)
		return ""
	}
	return path
}

// countdown writes one tick per second to the kiosk console.
func countdown(ctx context.Context, seconds int, out io.Writer) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for i := seconds; i > 0; i-- {
		fmt.Fprintf(out, "%d... ", i)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	fmt.Fprintln(out, "smile!")
	return nil
}

// showQRCode writes the QR PNG next to the final image and prints a scannable
// block rendering to the kiosk console.
func showQRCode(out io.Writer, shareURL string, finalPath string) {
	qrPath := strings.TrimSuffix(finalPath, ".png") + "_qr.png"
	if err := writeQRCode(shareURL, qrPath); err != nil {
		logger.Error("failed to write QR code image", "error", err)
	}

	block, err := qrTerminal(shareURL)
	if err != nil {
		logger.Error("failed to render QR code", "error", err)
		return
	}
	fmt.Fprintf(out, "\nScan to download:\n%s\n%s\n", block, shareURL)
}

// writeBackgroundThumbs renders small previews of the configured backgrounds
// into a thumbs/ subdirectory for the operator's picker display. Best-effort.
func writeBackgroundThumbs(config boothconfig.BoothConfig) {
	backgrounds := config.GetBackgrounds()
	if len(backgrounds) == 0 {
		return
	}

	thumbDir := filepath.Join(config.GetOutputDir(), "thumbs")
	for _, bg := range backgrounds {
		f, err := os.Open(bg)
		if err != nil {
			logger.Warn("failed to open background", "background", bg, "error", err)
			continue
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			logger.Warn("failed to decode background", "background", bg, "error", err)
			continue
		}

		thumb := thumbnail(img, 200, 150)
		base := strings.TrimSuffix(filepath.Base(bg), filepath.Ext(bg)) + ".png"
		thumbPath := filepath.Join(thumbDir, base)
		if err := savePNG(thumb, thumbPath); err != nil {
			logger.Warn("failed to write background thumbnail", "background", bg, "error", err)
		}
	}
}
