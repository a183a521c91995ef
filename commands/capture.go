package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
)

// FrameSource pulls one frame at a time from a camera (or a stand-in).
type FrameSource interface {
	// Grab returns the next frame. Frames are in RGB order; any sensor-level
	// channel shuffling is the source's problem.
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// ffmpegSource grabs single stills by shelling out to ffmpeg. One subprocess
// per frame keeps the booth responsive: there is no long-lived pipe to stall.
type ffmpegSource struct {
	device string
	width  int
	height int
}

// NewFFmpegSource returns a FrameSource reading from the given video device
// at the given frame size.
func NewFFmpegSource(device string, width, height int) FrameSource {
	return &ffmpegSource{device: device, width: width, height: height}
}

func (s *ffmpegSource) Grab(ctx context.Context) (image.Image, error) {
	inputFormat := "v4l2"
	if runtime.GOOS == "darwin" {
		inputFormat = "avfoundation"
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", inputFormat,
		"-video_size", fmt.Sprintf("%dx%d", s.width, s.height),
		"-i", s.device,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-loglevel", "error",
		"-",
	)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab from %s failed: %w (%s)", s.device, err, errBuf.String())
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame from %s: %w", s.device, err)
	}
	return img, nil
}

func (s *ffmpegSource) Close() error {
	return nil
}

// fileSource serves the images found in a directory, in name order, looping.
// Used by tests and for running the booth without a camera attached.
type fileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource returns a FrameSource backed by the image files in dir.
func NewFileSource(dir string) (FrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(paths)

	return &fileSource{paths: paths}, nil
}

func (s *fileSource) Grab(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	path := s.paths[s.next]
	s.next = (s.next + 1) % len(s.paths)
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	return img, nil
}

func (s *fileSource) Close() error {
	return nil
}
