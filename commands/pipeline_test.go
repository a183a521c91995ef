package commands

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidImage returns a w x h image filled with c.
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// halfTransparent returns a w x h image whose left half is opaque c and whose
// right half is fully transparent, mimicking a cutout.
func halfTransparent(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

func TestPhotoNamer_SuffixesAndCounter(t *testing.T) {
	namer := newPhotoNamer("/out")

	assert.Equal(t, 1, namer.nextShot())
	assert.Equal(t, filepath.Join("/out", "photo_1_raw.png"), namer.pathFor(suffixRaw))
	assert.Equal(t, filepath.Join("/out", "photo_1_cutout.png"), namer.pathFor(suffixCutout))
	assert.Equal(t, filepath.Join("/out", "photo_1_composited.png"), namer.pathFor(suffixComposited))

	// The counter only moves on a new shot, so all stages of one capture
	// share a number.
	assert.Equal(t, 2, namer.nextShot())
	assert.Equal(t, filepath.Join("/out", "photo_2_raw.png"), namer.pathFor(suffixRaw))
}

func TestSavePNG_CreatesOutputDirOnDemand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "final_images", "nested")
	path := filepath.Join(dir, "photo_1_raw.png")

	err := savePNG(solidImage(4, 4, color.NRGBA{R: 255, A: 255}), path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestComposite_LayersCutoutOverBackground(t *testing.T) {
	dir := t.TempDir()
	bgPath := filepath.Join(dir, "background.png")
	blue := color.NRGBA{B: 255, A: 255}
	red := color.NRGBA{R: 255, A: 255}
	require.NoError(t, savePNG(solidImage(8, 8, blue), bgPath))

	cutout := halfTransparent(16, 16, red)
	out, err := composite(cutout, bgPath)
	require.NoError(t, err)

	// Output takes the cutout's dimensions, not the background's.
	assert.Equal(t, cutout.Bounds(), out.Bounds())

	nrgba := toNRGBA(out)
	// Opaque cutout pixels win.
	assert.Equal(t, red, nrgba.NRGBAAt(2, 8))
	// Transparent cutout pixels show the (scaled) background.
	got := nrgba.NRGBAAt(14, 8)
	assert.Equal(t, uint8(255), got.A)
	assert.Equal(t, uint8(0), got.R)
	assert.Greater(t, got.B, uint8(200), "background should show through transparent pixels")
}

func TestComposite_MissingBackground(t *testing.T) {
	cutout := halfTransparent(8, 8, color.NRGBA{G: 255, A: 255})
	_, err := composite(cutout, filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestMakeCutout_WrapsRemoverError(t *testing.T) {
	remover := removerFunc(func(_ context.Context, _ image.Image) (image.Image, error) {
		return nil, fmt.Errorf("model exploded")
	})

	_, err := makeCutout(context.Background(), remover, solidImage(4, 4, color.NRGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "background removal failed")
}

func TestThumbnail_FitsWithinBounds(t *testing.T) {
	img := solidImage(800, 600, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	thumb := thumbnail(img, 200, 150)

	bounds := thumb.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 200)
	assert.LessOrEqual(t, bounds.Dy(), 150)
	// Aspect ratio preserved (4:3 in, 4:3 out).
	assert.Equal(t, bounds.Dx()*3, bounds.Dy()*4)
}

func TestToNRGBA_Idempotent(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Same(t, img, toNRGBA(img), "an NRGBA image must be returned as-is")
}

// removerFunc adapts a function to the BackgroundRemover interface.
type removerFunc func(ctx context.Context, img image.Image) (image.Image, error)

func (f removerFunc) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}
