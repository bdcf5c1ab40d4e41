package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/querysql"
)

// ConcordanceOptions holds flags shared by the concordance commands.
type ConcordanceOptions struct {
	*RootOptions
	Side string
	Sort string
}

// NewConcordanceCommand creates the concordance command group.
func NewConcordanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConcordanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "concordance",
		Short: "Browse pivot words and how they are aligned",
		Long: `Browse the concordance: pivot words are the distinct normalized
forms of one side, and each is shown with the distinct source/target
text pairs it is aligned in.

Sorting takes "field" or "field:desc". Unknown sort fields are rejected.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Side, "side", string(model.SideTargets), "pivot side (sources|targets)")
	cmd.PersistentFlags().StringVar(&opts.Sort, "sort", "", "sort field, optionally suffixed with :asc or :desc")

	cmd.AddCommand(newConcordancePivotsCommand(opts))
	cmd.AddCommand(newConcordanceAlignedCommand(opts))
	cmd.AddCommand(newConcordancePairCommand(opts))
	return cmd
}

func newConcordancePivotsCommand(opts *ConcordanceOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "pivots",
		Short: "List pivot words with their frequency",
		Long: `List the pivot words of a side with how often each occurs.

Examples:
  aligner concordance pivots --filter aligned
  aligner concordance pivots --side sources --sort frequency:desc`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := model.ParseSide(opts.Side)
			if err != nil {
				return usageError("invalid --side", err)
			}
			f := model.PivotFilter(filter)
			if f != model.PivotAll && f != model.PivotAligned {
				return usageError(fmt.Sprintf("invalid --filter %q: must be all or aligned", filter), nil)
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pivots := a.service.PivotWords(cmd.Context(), a.projectID(cmd), side, f, querysql.ParseSort(opts.Sort))
			return a.out.Render(pivots, func(w io.Writer) {
				if len(pivots) == 0 {
					fmt.Fprintln(w, "No pivot words found")
				}
				for _, p := range pivots {
					fmt.Fprintf(w, "%s\t%s\t%d\n", p.NormalizedText, p.LanguageID, p.Frequency)
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(model.PivotAll), "all pivot words or only aligned ones (all|aligned)")
	return cmd
}

func newConcordanceAlignedCommand(opts *ConcordanceOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aligned <pivot-word>",
		Short: "List the source/target text pairs a pivot word is aligned in",
		Long: `List the distinct (sources text, targets text) pairs of the links
containing the pivot word, with how many links share each pair.
Rejected links are left out.

Examples:
  aligner concordance aligned book
  aligner concordance aligned βίβλος --side sources --sort frequency:desc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := model.ParseSide(opts.Side)
			if err != nil {
				return usageError("invalid --side", err)
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			words := a.service.AlignedWordsByPivotWord(cmd.Context(), a.projectID(cmd), side, args[0], querysql.ParseSort(opts.Sort))
			return a.out.Render(words, func(w io.Writer) {
				if len(words) == 0 {
					fmt.Fprintln(w, "No aligned words found")
				}
				for _, aw := range words {
					fmt.Fprintf(w, "%s\t%s\t%d\n", aw.SourcesText, aw.TargetsText, aw.Frequency)
				}
			})
		},
	}
}

func newConcordancePairCommand(opts *ConcordanceOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <sources-text> <targets-text>",
		Short: "Show the links aligning exactly this text pair",
		Long: `Show the links whose cached sources and targets text are exactly the
given pair.

Examples:
  aligner concordance pair βίβλος book`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			links := a.service.LinksByAlignedWordPair(cmd.Context(), a.projectID(cmd), args[0], args[1], querysql.ParseSort(opts.Sort))
			return renderLinks(a, links)
		},
	}
}
