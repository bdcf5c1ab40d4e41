package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks the loaded configuration and fills the data directory
// when unset. Load calls it automatically.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name must not be empty")
	}

	if c.Storage.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("storage.data_dir not set and no user config dir: %w", err)
		}
		c.Storage.DataDir = filepath.Join(dir, c.App.Name)
	}

	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote.base_url must be an absolute URL (got %q)", c.Remote.BaseURL)
		}
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be > 0 (got %v)", c.Remote.Timeout)
	}

	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be > 0 (got %d)", c.Import.BatchSize)
	}
	if c.Import.Parallelism <= 0 {
		return fmt.Errorf("import.parallelism must be > 0 (got %d)", c.Import.Parallelism)
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}

	return nil
}

func (s SyncConfig) validate() error {
	if s.UploadChunkSize <= 0 {
		return fmt.Errorf("upload_chunk_size must be > 0 (got %d)", s.UploadChunkSize)
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0 (got %d)", s.PageSize)
	}
	if s.FetchParallelism <= 0 {
		return fmt.Errorf("fetch_parallelism must be > 0 (got %d)", s.FetchParallelism)
	}
	if s.ApplyChunkSize < 0 {
		return fmt.Errorf("apply_chunk_size must be >= 0 (got %d)", s.ApplyChunkSize)
	}
	return nil
}
