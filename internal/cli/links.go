package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/project"
)

// LinkFlags holds the link fields settable from the command line.
type LinkFlags struct {
	ID      string
	Sources []string
	Targets []string
	Origin  string
	Status  string
}

// NewLinksCommand creates the links command group.
func NewLinksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Create, edit and query alignment links",
		Long: `Create, edit and query the alignment links of a project. Every
change is recorded in the project's journal for the next sync.

Word ids are BCVWP references without a side prefix, e.g. 400010010011.`,
	}
	cmd.AddCommand(newLinksAddCommand(rootOpts))
	cmd.AddCommand(newLinksUpdateCommand(rootOpts))
	cmd.AddCommand(newLinksShowCommand(rootOpts))
	cmd.AddCommand(newLinksDeleteCommand(rootOpts))
	cmd.AddCommand(newLinksByBCVCommand(rootOpts))
	cmd.AddCommand(newLinksByWordCommand(rootOpts))
	cmd.AddCommand(newLinksRecomputeCommand(rootOpts))
	return cmd
}

func addLinkFlags(cmd *cobra.Command, f *LinkFlags) {
	cmd.Flags().StringSliceVar(&f.Sources, "source", nil, "source word ids (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&f.Targets, "target", nil, "target word ids (repeatable or comma separated)")
	cmd.Flags().StringVar(&f.Origin, "origin", "", "link origin")
	cmd.Flags().StringVar(&f.Status, "status", "", "link status (CREATED|APPROVED|NEEDS_REVIEW|REJECTED)")
}

func newLinksAddCommand(rootOpts *RootOptions) *cobra.Command {
	f := &LinkFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a link",
		Long: `Create a link between source and target words. Without --id a
time-ordered UUID is assigned.

Examples:
  aligner links add --source 40001001001 --target 400010010021
  aligner links add --id a9 --source 40001001002 --target 400010010041,400010010051`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(f.Sources) == 0 && len(f.Targets) == 0 {
				return usageError("a link needs at least one --source or --target word", nil)
			}
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if f.ID == "" {
				f.ID = uuid.Must(uuid.NewV7()).String()
			}
			link := model.Link{
				ID:      f.ID,
				Sources: f.Sources,
				Targets: f.Targets,
				Meta:    model.LinkMeta{Origin: f.Origin, Status: f.Status},
			}
			return saveLink(cmd, a, link, false)
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "link id")
	addLinkFlags(cmd, f)
	return cmd
}

func newLinksUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &LinkFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a link's words or metadata",
		Long: `Change an existing link. Flags that are not given keep their stored
value; --source and --target replace that side's membership.

Examples:
  aligner links update a1 --status APPROVED
  aligner links update a1 --target 400010010011,400010010021`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, ok := a.service.FindOneByID(cmd.Context(), a.projectID(cmd), project.LinksTable{}, args[0])
			if !ok {
				return failure(ErrCodeNotFound, fmt.Sprintf("link %s not found", args[0]), nil)
			}
			link := recs.Links[0]
			if cmd.Flags().Changed("source") {
				link.Sources = f.Sources
			}
			if cmd.Flags().Changed("target") {
				link.Targets = f.Targets
			}
			if f.Origin != "" {
				link.Meta.Origin = f.Origin
			}
			if f.Status != "" {
				link.Meta.Status = f.Status
			}
			return saveLink(cmd, a, link, true)
		},
	}
	addLinkFlags(cmd, f)
	return cmd
}

// saveLink writes link and renders its stored form.
func saveLink(cmd *cobra.Command, a *app, link model.Link, update bool) error {
	ctx := cmd.Context()
	proj := a.projectID(cmd)
	records := project.Records{Links: []model.Link{link}}

	var ok bool
	if update {
		ok = a.service.Save(ctx, proj, project.LinksTable{}, records)
	} else {
		ok = a.service.Insert(ctx, proj, project.LinksTable{}, records, 0)
	}
	if !ok {
		return failure(ErrCodeStore, fmt.Sprintf("failed to save link %s", link.ID), nil)
	}

	stored, ok := a.service.FindOneByID(ctx, proj, project.LinksTable{}, link.ID)
	if !ok {
		return failure(ErrCodeNotFound, fmt.Sprintf("link %s not found", link.ID), nil)
	}
	return renderLinks(a, stored.Links)
}

func newLinksShowCommand(rootOpts *RootOptions) *cobra.Command {
	var limit, skip int
	var from, to string
	cmd := &cobra.Command{
		Use:   "show [id...]",
		Short: "Show links by id, by id range or page by page",
		Long: `Show links. With ids, the links with those ids; with --from/--to, the
links whose id lies in that range; otherwise every link in id order,
paged by --limit and --skip.

Examples:
  aligner links show a1 a2
  aligner links show --from a1 --to a2
  aligner links show --limit 50 --skip 100 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			proj := a.projectID(cmd)
			var recs project.Records
			switch {
			case len(args) > 0:
				recs = a.service.FindByIDs(ctx, proj, project.LinksTable{}, args)
			case from != "" || to != "":
				if from == "" || to == "" {
					return usageError("--from and --to go together", nil)
				}
				recs = a.service.FindBetweenIDs(ctx, proj, project.LinksTable{}, from, to)
			default:
				recs = a.service.GetAll(ctx, proj, project.LinksTable{}, limit, skip)
			}
			return renderLinks(a, nonNil(recs.Links))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of links (0 for all)")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of links to skip")
	cmd.Flags().StringVar(&from, "from", "", "first id of the range")
	cmd.Flags().StringVar(&to, "to", "", "last id of the range")
	return cmd
}

func newLinksDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>...",
		Short:         "Delete links",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.service.DeleteByIDs(cmd.Context(), a.projectID(cmd), project.LinksTable{}, args) {
				return failure(ErrCodeStore, "failed to delete links", nil)
			}
			return a.out.Render(map[string][]string{"deleted": args}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %d links\n", len(args))
			})
		},
	}
}

func newLinksByBCVCommand(rootOpts *RootOptions) *cobra.Command {
	var sideName string
	cmd := &cobra.Command{
		Use:   "by-bcv <book-chapter-verse>",
		Short: "Show the links touching a verse",
		Long: `Show the links with at least one word of the given side in a verse.
The verse is the first eight digits of a BCVWP reference.

Examples:
  aligner links by-bcv 40001001
  aligner links by-bcv 40001001 --side sources`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := model.ParseSide(sideName)
			if err != nil {
				return usageError("invalid --side", err)
			}
			c, err := parseVerse(args[0])
			if err != nil {
				return err
			}
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			links := a.service.FindLinksByBCV(cmd.Context(), a.projectID(cmd), side, c.Book, c.Chapter, c.Verse)
			return renderLinks(a, links)
		},
	}
	cmd.Flags().StringVar(&sideName, "side", string(model.SideTargets), "side whose words are matched (sources|targets)")
	return cmd
}

func newLinksByWordCommand(rootOpts *RootOptions) *cobra.Command {
	var sideName string
	cmd := &cobra.Command{
		Use:           "by-word <word-id>",
		Short:         "Show the links containing a word",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := model.ParseSide(sideName)
			if err != nil {
				return usageError("invalid --side", err)
			}
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			links := a.service.FindLinksByWordID(cmd.Context(), a.projectID(cmd), side, args[0])
			return renderLinks(a, links)
		},
	}
	cmd.Flags().StringVar(&sideName, "side", string(model.SideSources), "side of the word (sources|targets)")
	return cmd
}

func newLinksRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [id...]",
		Short: "Rebuild the cached source and target text of links",
		Long: `Rebuild the cached sources_text and targets_text of the given links,
or of every link when no id is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.service.UpdateLinkText(cmd.Context(), a.projectID(cmd), args...) {
				return failure(ErrCodeStore, "failed to recompute link text", nil)
			}
			return a.out.Success("Link text recomputed")
		},
	}
}

// parseVerse reads a reference down to the verse.
func parseVerse(ref string) (bcvwp.Coordinate, error) {
	c, err := bcvwp.Parse(bcvwp.Sanitize(ref))
	if err != nil {
		return c, usageError("invalid verse reference", err)
	}
	if !c.Has(bcvwp.FieldBook, bcvwp.FieldChapter, bcvwp.FieldVerse) {
		return c, usageError(fmt.Sprintf("%q does not name a verse", ref), nil)
	}
	return c, nil
}

func renderLinks(a *app, links []model.Link) error {
	return a.out.Render(links, func(w io.Writer) {
		printLinks(w, links)
	})
}

func printLinks(w io.Writer, links []model.Link) {
	if len(links) == 0 {
		fmt.Fprintln(w, "No links found")
		return
	}
	for _, l := range links {
		fmt.Fprintf(w, "%s\t%s\t%s\tsources=%s\ttargets=%s\n",
			l.ID, l.Meta.Origin, l.Meta.Status,
			strings.Join(l.Sources, ","), strings.Join(l.Targets, ","))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
