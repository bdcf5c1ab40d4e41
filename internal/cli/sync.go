package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/project"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Register bool
}

// SyncResult is the output of the sync command.
type SyncResult struct {
	Project  string `json:"project"`
	Uploaded int    `json:"uploaded"`
	Fetched  int    `json:"fetched"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a project's links with the remote server",
		Long: `Upload the project's journal of local link changes to the remote
alignment server, then replace the local links with the server's.

The server is configured with remote.base_url or $ALIGNER_REMOTE_URL.
On failure nothing local is lost: the journal is kept for the next sync.

Examples:
  aligner sync -p demo
  aligner sync -p demo --register --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Register, "register", false, "register the project and its corpora with the server first")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	proj := a.projectID(cmd)
	pending, err := a.service.JournalCount(cmd.Context(), proj)
	if err != nil {
		return failure(ErrCodeStore, "failed to read journal", err)
	}
	a.out.VerboseLog("Syncing %s with %d pending journal entries", proj, pending)

	res, err := a.service.Sync(cmd.Context(), proj, opts.Register)
	if errors.Is(err, project.ErrNoRemote) {
		return &ExitError{Code: ExitCommandError, ErrCode: ErrCodeConfig, Message: "sync needs remote.base_url", Err: err}
	}
	if err != nil {
		return failure(ErrCodeSync, "sync failed", err)
	}

	result := SyncResult{Project: proj, Uploaded: res.Uploaded, Fetched: res.Fetched}
	return a.out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Synced %s: uploaded %d journal entries, fetched %d links\n",
			result.Project, result.Uploaded, result.Fetched)
	})
}
