package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/importer"
	"github.com/roach88/aligner/internal/manifest"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Update bool
}

// ImportResult is the output of the import command.
type ImportResult struct {
	Project string `json:"project"`
	importer.Stats
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <manifest.cue>",
		Short: "Import a project's corpora and alignments from a manifest",
		Long: `Import the corpora and alignments a CUE project manifest lists into
the manifest's project store.

With --update only the target corpora are reloaded: existing target
words are replaced and every link's cached text is recomputed. Links
are kept.

Examples:
  aligner import ./project.cue
  aligner import ./project.cue --update --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "reload target corpora only, keeping links")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, path string) error {
	m, err := manifest.Load(path)
	if err != nil {
		return &ExitError{Code: ExitCommandError, ErrCode: ErrCodeManifest, Message: "failed to load manifest", Err: err}
	}

	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.VerboseLog("Importing %d corpora into %s", len(m.Corpora), m.Project.ID)

	var (
		stats importer.Stats
		ok    bool
	)
	if opts.Update {
		stats, ok = a.service.UpdateSourceFromProject(cmd.Context(), m)
	} else {
		stats, ok = a.service.CreateSourceFromProject(cmd.Context(), m)
	}
	if !ok {
		return failure(ErrCodeImport, fmt.Sprintf("failed to import %s", path), nil)
	}

	result := ImportResult{Project: m.Project.ID, Stats: stats}
	return a.out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %s: %d corpora, %d words, %d links\n",
			result.Project, stats.Corpora, stats.Words, stats.Links)
	})
}
