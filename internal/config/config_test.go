package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no config path set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(PathEnv, "")
	return dir
}

func TestLoad_DefaultsFromEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ALIGNER_DATA_DIR", dir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "aligner", cfg.App.Name)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 10000, cfg.Sync.UploadChunkSize)
	assert.Equal(t, 50000, cfg.Sync.PageSize)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: Clear Aligner
storage:
  data_dir: /var/lib/aligner
remote:
  base_url: https://align.example.org
  timeout: 5s
sync:
  page_size: 100
log:
  level: debug
`), 0o644))
	t.Setenv("ALIGNER_LOG_FORMAT", "json")
	t.Setenv("ALIGNER_SYNC_PAGE_SIZE", "250")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Clear Aligner", cfg.App.Name)
	assert.Equal(t, "/var/lib/aligner", cfg.Storage.DataDir)
	assert.Equal(t, "https://align.example.org", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 250, cfg.Sync.PageSize, "env wins over yaml")
	assert.Equal(t, 10000, cfg.Sync.UploadChunkSize)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_PathFromEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  data_dir: /tmp/aligner-env\n"), 0o644))
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/aligner-env", cfg.Storage.DataDir)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func validConfig() Config {
	return Config{
		App:     AppConfig{Name: "aligner"},
		Storage: StorageConfig{DataDir: "/data"},
		Remote:  RemoteConfig{Timeout: time.Second},
		Sync:    SyncConfig{UploadChunkSize: 1, PageSize: 1, FetchParallelism: 1},
		Import:  ImportConfig{BatchSize: 1, Parallelism: 1},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty app name", func(c *Config) { c.App.Name = "" }, "app.name"},
		{"relative remote", func(c *Config) { c.Remote.BaseURL = "align.example.org" }, "remote.base_url"},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, "remote.timeout"},
		{"zero page size", func(c *Config) { c.Sync.PageSize = 0 }, "sync: page_size"},
		{"zero parallelism", func(c *Config) { c.Sync.FetchParallelism = 0 }, "sync: fetch_parallelism"},
		{"zero batch", func(c *Config) { c.Import.BatchSize = 0 }, "import.batch_size"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_FillsDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataDir = ""
	if _, err := os.UserConfigDir(); err != nil {
		t.Skip("no user config dir on this host")
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "aligner", filepath.Base(cfg.Storage.DataDir))
}

func TestSyncer(t *testing.T) {
	s := SyncConfig{UploadChunkSize: 3, PageSize: 4, FetchParallelism: 2, ApplyChunkSize: 5}.Syncer()
	assert.Equal(t, 3, s.UploadChunkSize)
	assert.Equal(t, 4, s.PageSize)
	assert.Equal(t, 2, s.FetchParallelism)
	assert.Equal(t, 5, s.ApplyChunkSize)
}
