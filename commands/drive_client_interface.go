package commands

import (
	"context"
)

// DriveClient defines the interface for the Google Drive operations the booth
// needs. The remote service boundary is four calls: folder lookup by name,
// folder create, file create+upload, and permission grant plus link readback.
type DriveClient interface {
	// FindFolder returns the id of a non-trashed folder with the given name,
	// or "" if no such folder exists.
	FindFolder(ctx context.Context, name string) (string, error)

	// CreateFolder creates a folder with the given name at the Drive root and
	// returns its id.
	CreateFolder(ctx context.Context, name string) (string, error)

	// UploadFile creates a file under parentID with the local file's content
	// and returns the new file's id.
	UploadFile(ctx context.Context, parentID string, filePath string) (string, error)

	// ShareFile grants anyone-with-the-link read access to fileID and returns
	// the shareable URL.
	ShareFile(ctx context.Context, fileID string) (string, error)
}
