package cli

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/config"
	"github.com/roach88/aligner/internal/project"
	"github.com/roach88/aligner/internal/remote"
	"github.com/roach88/aligner/internal/store"
)

// app is what a command runs against: the loaded configuration and the
// project service over the configured data directory.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *project.Service
	out     *OutputFormatter
	project string
}

// open loads the configuration and builds the service. Callers close the
// returned app.
func (o *RootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeConfig, Message: "failed to load config", Err: err}
	}
	if o.DataDir != "" {
		cfg.Storage.DataDir = o.DataDir
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr(), o.Verbose)

	manager := store.NewManager(store.ManagerConfig{
		DataDir:         cfg.Storage.DataDir,
		AppName:         cfg.App.Name,
		Template:        cfg.Storage.Template,
		DefaultTemplate: cfg.Storage.DefaultTemplate,
		Logger:          logger,
	})

	opts := project.Options{
		Manager:           manager,
		Sync:              cfg.Sync.Syncer(),
		ImportBatchSize:   cfg.Import.BatchSize,
		ImportParallelism: cfg.Import.Parallelism,
		Logger:            logger,
	}
	if cfg.Remote.BaseURL != "" {
		opts.Transport = remote.New(cfg.Remote.BaseURL,
			remote.WithToken(cfg.Remote.Token),
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}),
			remote.WithLogger(logger),
		)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		service: project.New(opts),
		out: &OutputFormatter{
			Format:    o.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   o.Verbose,
		},
		project: o.Project,
	}
	logger.Debug("config loaded", "data_dir", cfg.Storage.DataDir, "remote", cfg.Remote.BaseURL != "")
	return a, nil
}

func (a *app) Close() {
	if err := a.service.Close(); err != nil {
		a.logger.Warn("close stores", "error", err)
	}
}

// projectID is the --project flag, else the current_project preference,
// else the default project.
func (a *app) projectID(cmd *cobra.Command) string {
	if a.project != "" {
		return a.project
	}
	recs := a.service.GetAll(cmd.Context(), "", project.PreferenceTable{}, 0, 0)
	if len(recs.Preferences) == 1 && recs.Preferences[0].CurrentProject != "" {
		return recs.Preferences[0].CurrentProject
	}
	return store.DefaultProjectID
}

// newLogger builds the slog logger commands log through. --verbose lowers
// the level to debug.
func newLogger(cfg config.LogConfig, w io.Writer, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
