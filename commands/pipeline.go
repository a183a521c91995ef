package commands

import (
	"context"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Pipeline stage suffixes. Raw capture, transparent cutout, and
// composited-with-background images for one shot share the same counter
// value and differ only in suffix.
const (
	suffixRaw        = "_raw"
	suffixCutout     = "_cutout"
	suffixComposited = "_composited"
)

// photoNamer hands out file paths for pipeline outputs, numbered by a
// monotonically increasing per-session counter. All outputs are PNG
// (lossless) in a fixed output directory created on demand.
type photoNamer struct {
	outputDir string
	counter   int
}

func newPhotoNamer(outputDir string) *photoNamer {
	return &photoNamer{outputDir: outputDir}
}

// nextShot advances the counter for a new capture and returns the shot number.
func (n *photoNamer) nextShot() int {
	n.counter++
	return n.counter
}

// pathFor returns the output path for the current shot at the given stage.
func (n *photoNamer) pathFor(suffix string) string {
	return filepath.Join(n.outputDir, fmt.Sprintf("photo_%d%s.png", n.counter, suffix))
}

// savePNG writes img to path, creating the output directory on demand.
func savePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// makeCutout runs the background-removal transform over a captured frame and
// returns the transparent cutout.
func makeCutout(ctx context.Context, remover BackgroundRemover, frame image.Image) (image.Image, error) {
	cutout, err := remover.Remove(ctx, toNRGBA(frame))
	if err != nil {
		return nil, fmt.Errorf("background removal failed: %w", err)
	}
	return cutout, nil
}

// composite layers a transparent cutout over a chosen background image. The
// background is scaled to the cutout's bounds first, so the result always has
// the cutout's dimensions.
func composite(cutout image.Image, backgroundPath string) (image.Image, error) {
	f, err := os.Open(backgroundPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open background %s: %w", backgroundPath, err)
	}
	defer f.Close()

	background, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background %s: %w", backgroundPath, err)
	}

	bounds := cutout.Bounds()
	scaled := image.NewNRGBA(bounds)
	xdraw.CatmullRom.Scale(scaled, bounds, background, background.Bounds(), xdraw.Over, nil)

	out := image.NewNRGBA(bounds)
	stddraw.Draw(out, bounds, scaled, bounds.Min, stddraw.Src)
	stddraw.Draw(out, bounds, cutout, bounds.Min, stddraw.Over)
	return out, nil
}

// thumbnail shrinks an image to fit within maxW x maxH, preserving aspect
// ratio. Used for the operator's background listing.
func thumbnail(img image.Image, maxW, maxH uint) image.Image {
	return resize.Thumbnail(maxW, maxH, img, resize.Lanczos3)
}

// toNRGBA normalizes any image to NRGBA so the transform and compositing
// stages work on one pixel layout.
func toNRGBA(img image.Image) *image.NRGBA {
	if m, ok := img.(*image.NRGBA); ok {
		return m
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	stddraw.Draw(out, bounds, img, bounds.Min, stddraw.Src)
	return out
}
