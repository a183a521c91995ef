package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveFolderMimeType = "application/vnd.google-apps.folder"

// driveClient implements DriveClient on top of the Drive v3 API.
type driveClient struct {
	srv     *drive.Service
	limiter *rate.Limiter
}

// NewDriveClient builds a DriveClient from an authorized HTTP client.
// Limit to 5 operations per second, allowing bursts of up to 10.
func NewDriveClient(ctx context.Context, httpClient *http.Client) (DriveClient, error) {
	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &driveClient{
		srv:     srv,
		limiter: rate.NewLimiter(rate.Every(time.Second/5), 10),
	}, nil
}

func (d *driveClient) FindFolder(ctx context.Context, name string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", name, driveFolderMimeType)
	r, err := d.srv.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name)").
		PageSize(1).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to list folders named %q: %w", name, err)
	}

	if len(r.Files) == 0 {
		return "", nil
	}
	return r.Files[0].Id, nil
}

func (d *driveClient) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	f := &drive.File{
		Name:     name,
		MimeType: driveFolderMimeType,
	}
	result, err := d.srv.Files.Create(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return result.Id, nil
}

func (d *driveClient) UploadFile(ctx context.Context, parentID string, filePath string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	f := &drive.File{
		Name:         filepath.Base(filePath),
		ModifiedTime: stat.ModTime().Format(time.RFC3339),
	}
	if parentID != "" {
		f.Parents = []string{parentID}
	}

	result, err := d.srv.Files.Create(f).Context(ctx).Media(file).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filePath, err)
	}
	return result.Id, nil
}

func (d *driveClient) ShareFile(ctx context.Context, fileID string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}
	if _, err := d.srv.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to share file %s: %w", fileID, err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	fileref, err := d.srv.Files.Get(fileID).Context(ctx).Fields("webViewLink").Do()
	if err != nil {
		return "", fmt.Errorf("failed to read share link for %s: %w", fileID, err)
	}
	if fileref.WebViewLink == "" {
		return "", fmt.Errorf("no share link returned for %s", fileID)
	}
	return fileref.WebViewLink, nil
}
