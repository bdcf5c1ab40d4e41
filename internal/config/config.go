// Package config loads aligner settings from YAML and the environment.
package config

import (
	"log/slog"
	"time"

	"github.com/roach88/aligner/internal/syncer"
)

// Config is the root application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	Import  ImportConfig  `yaml:"import"`
	Log     LogConfig     `yaml:"log"`
}

// AppConfig names the application; the name prefixes every store file.
type AppConfig struct {
	Name string `yaml:"name" env:"ALIGNER_APP_NAME" env-default:"aligner"`
}

// StorageConfig locates store files.
type StorageConfig struct {
	DataDir         string `yaml:"data_dir"         env:"ALIGNER_DATA_DIR"`
	Template        string `yaml:"template"         env:"ALIGNER_TEMPLATE"`
	DefaultTemplate string `yaml:"default_template" env:"ALIGNER_DEFAULT_TEMPLATE"`
}

// RemoteConfig points at the alignment authority. Sync is unavailable
// while BaseURL is empty.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" env:"ALIGNER_REMOTE_URL"`
	Token   string        `yaml:"token"    env:"ALIGNER_REMOTE_TOKEN"`
	Timeout time.Duration `yaml:"timeout"  env:"ALIGNER_REMOTE_TIMEOUT" env-default:"30s"`
}

// SyncConfig sizes the sync protocol's uploads and fetches.
type SyncConfig struct {
	UploadChunkSize  int `yaml:"upload_chunk_size" env:"ALIGNER_SYNC_UPLOAD_CHUNK" env-default:"10000"`
	PageSize         int `yaml:"page_size"         env:"ALIGNER_SYNC_PAGE_SIZE"    env-default:"50000"`
	FetchParallelism int `yaml:"fetch_parallelism" env:"ALIGNER_SYNC_PARALLELISM"  env-default:"1"`
	ApplyChunkSize   int `yaml:"apply_chunk_size"  env:"ALIGNER_SYNC_APPLY_CHUNK"  env-default:"2000"`
}

// ImportConfig sizes corpus and alignment imports.
type ImportConfig struct {
	BatchSize   int `yaml:"batch_size"  env:"ALIGNER_IMPORT_BATCH"       env-default:"1000"`
	Parallelism int `yaml:"parallelism" env:"ALIGNER_IMPORT_PARALLELISM" env-default:"4"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"ALIGNER_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"ALIGNER_LOG_FORMAT" env-default:"text"`
}

// SlogLevel maps Level to a slog level. Unknown values read as info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Syncer converts the sync settings.
func (s SyncConfig) Syncer() syncer.Config {
	return syncer.Config{
		UploadChunkSize:  s.UploadChunkSize,
		PageSize:         s.PageSize,
		FetchParallelism: s.FetchParallelism,
		ApplyChunkSize:   s.ApplyChunkSize,
	}
}
