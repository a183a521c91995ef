package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// BackgroundRemover is an opaque image-to-image transform: it takes one RGBA
// image and returns one RGBA image with the background pixels made
// transparent. Synchronous, no streaming.
type BackgroundRemover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// httpRemover sends frames to an external rembg inference service and decodes
// the transparent PNG it returns.
type httpRemover struct {
	url string
	cli *http.Client
}

// NewHTTPRemover returns a BackgroundRemover backed by the rembg service at
// the given URL.
func NewHTTPRemover(url string) BackgroundRemover {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 60 * time.Second // model inference is slow

	return &httpRemover{
		url: url,
		cli: retryClient.StandardClient(),
	}
}

func (r *httpRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build rembg request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rembg request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rembg service returned %s", resp.Status)
	}

	cutout, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rembg response: %w", err)
	}
	return cutout, nil
}
