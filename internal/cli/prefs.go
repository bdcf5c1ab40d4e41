package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/project"
)

// NewPrefsCommand creates the prefs command group.
func NewPrefsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change user preferences",
		Long: `Show and change the user preferences shared by every project.

Fields: alignment_view, current_project, bcv, page, show_gloss.
current_project is the project commands use when --project is not given.`,
	}
	cmd.AddCommand(newPrefsShowCommand(rootOpts))
	cmd.AddCommand(newPrefsSetCommand(rootOpts))
	cmd.AddCommand(newPrefsResetCommand(rootOpts))
	return cmd
}

func newPrefsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the stored preferences",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			recs := a.service.GetAll(cmd.Context(), "", project.PreferenceTable{}, 0, 0)
			if len(recs.Preferences) == 0 {
				return a.out.Render(nil, func(w io.Writer) {
					fmt.Fprintln(w, "No preferences stored")
				})
			}
			return renderPreference(a, recs.Preferences[0])
		},
	}
}

func newPrefsSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one preference",
		Long: `Change one preference field, keeping the others.

Examples:
  aligner prefs set current_project demo
  aligner prefs set show_gloss true`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pref, ok := a.service.SetPreference(cmd.Context(), args[0], args[1])
			if !ok {
				return usageError(fmt.Sprintf("failed to set %s", args[0]), nil)
			}
			return renderPreference(a, pref)
		},
	}
}

func newPrefsResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Delete the stored preferences",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.service.DeleteAll(cmd.Context(), "", project.PreferenceTable{}) {
				return failure(ErrCodeStore, "failed to reset preferences", nil)
			}
			return a.out.Success("Preferences reset")
		},
	}
}

func renderPreference(a *app, p model.Preference) error {
	return a.out.Render(p, func(w io.Writer) {
		fmt.Fprintf(w, "alignment_view\t%s\n", p.AlignmentView)
		fmt.Fprintf(w, "current_project\t%s\n", p.CurrentProject)
		fmt.Fprintf(w, "bcv\t%s\n", p.BCV)
		fmt.Fprintf(w, "page\t%s\n", p.Page)
		fmt.Fprintf(w, "show_gloss\t%t\n", p.ShowGloss)
	})
}
