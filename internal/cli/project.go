package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/model"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, list and remove project stores",
	}
	cmd.AddCommand(newProjectCreateCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectRemoveCommand(rootOpts))
	cmd.AddCommand(newProjectFirstCommand(rootOpts))
	return cmd
}

func newProjectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <id>",
		Short: "Create an empty project store",
		Long: `Create the store file of a project, seeded from the configured
template when there is one. Creating an existing project is a no-op.

Examples:
  aligner project create demo`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.service.CreateDataSource(cmd.Context(), args[0]) {
				return failure(ErrCodeStore, fmt.Sprintf("failed to create project %s", args[0]), nil)
			}
			return a.out.Render(map[string]string{"id": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Created project %s\n", args[0])
			})
		},
	}
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the projects on disk with their corpora",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			projects := a.service.GetDataSources(cmd.Context())
			return a.out.Render(projects, func(w io.Writer) {
				printProjects(w, projects)
			})
		},
	}
}

func newProjectRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Delete a project store and its side files",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.service.RemoveSource(cmd.Context(), args[0]) {
				return failure(ErrCodeStore, fmt.Sprintf("failed to remove project %s", args[0]), nil)
			}
			return a.out.Render(map[string]string{"id": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed project %s\n", args[0])
			})
		},
	}
}

func newProjectFirstCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "first-verse",
		Short:         "Show the reference of the project's first target word",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, ok := a.service.GetFirstBCVFromSource(cmd.Context(), a.projectID(cmd))
			if !ok {
				return failure(ErrCodeNotFound, "project has no target words", nil)
			}
			data := map[string]string{"reference": c.String(), "label": c.HumanString()}
			return a.out.Render(data, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", c.String(), c.HumanString())
			})
		},
	}
}

func printProjects(w io.Writer, projects []model.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found")
		return
	}
	for _, p := range projects {
		names := make([]string, len(p.Corpora))
		for i, c := range p.Corpora {
			names[i] = fmt.Sprintf("%s(%s)", c.ID, c.Side)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.FileName, strings.Join(names, ","))
	}
}
