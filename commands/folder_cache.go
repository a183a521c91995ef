package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const folderCacheFileName = "google_drive_folder_cache.json"

// folderCache stores the mapping from Drive folder names to folder ids. It
// exists so that repeat uploads do not pay a remote lookup, and so the
// query-then-create window cannot produce duplicate folders within one
// process lifetime.
type folderCache struct {
	Folders map[string]string `json:"folders"` // Name -> ID
	mu      sync.RWMutex
	path    string
}

// getFolderCachePath constructs the path to the folder cache file based on the config directory.
func getFolderCachePath(configDir string) (string, error) {
	if configDir == "." || configDir == "" {
		return "", fmt.Errorf("config directory path is empty or invalid")
	}
	return filepath.Join(configDir, folderCacheFileName), nil
}

// loadFolderCache loads the folder cache from disk.
func loadFolderCache(path string) (*folderCache, error) {
	cache := &folderCache{
		Folders: make(map[string]string),
		path:    path,
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil // Return empty cache if file doesn't exist
		}
		return nil, fmt.Errorf("failed to open folder cache file %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cache); err != nil {
		// If decoding fails, start from an empty cache and rebuild it.
		logger.Warn("failed to decode folder cache file, cache will be rebuilt",
			"path", path, "error", err)
		cache.Folders = make(map[string]string)
	}
	return cache, nil
}

// saveLocked saves the folder cache to disk. Caller must hold c.mu.
func (c *folderCache) saveLocked() error {
	f, err := os.OpenFile(c.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open folder cache file %s for writing: %w", c.path, err)
	}
	defer f.Close()
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode folder cache to %s: %w", c.path, err)
	}
	return nil
}

// getOrCreateFolderID resolves the id of the named Drive folder, consulting
// the cache first, then the remote service, creating the folder on a miss.
// A cached name issues no remote calls at all.
func (c *folderCache) getOrCreateFolderID(ctx context.Context, client DriveClient, name string) (string, error) {
	c.mu.Lock() // Lock for potential modification
	defer c.mu.Unlock()

	if id, found := c.Folders[name]; found {
		return id, nil
	}

	logger.Debug("folder cache miss, querying Drive", "folder", name)

	id, err := client.FindFolder(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up folder %q: %w", name, err)
	}

	if id == "" {
		id, err = client.CreateFolder(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to create folder %q: %w", name, err)
		}
		logger.Info("created Drive folder", "folder", name, "id", id)
	}

	c.Folders[name] = id
	if err := c.saveLocked(); err != nil {
		// A stale cache only costs an extra lookup next run.
		logger.Warn("failed to save folder cache", "error", err)
	}

	return id, nil
}
