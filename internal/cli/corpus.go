package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligner/internal/model"
)

// NewCorpusCommand creates the corpus command group.
func NewCorpusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Browse a project's corpora, words and languages",
	}
	cmd.AddCommand(newCorpusListCommand(rootOpts))
	cmd.AddCommand(newCorpusWordsCommand(rootOpts))
	cmd.AddCommand(newCorpusVerseCommand(rootOpts))
	cmd.AddCommand(newCorpusLanguagesCommand(rootOpts))
	return cmd
}

func newCorpusListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the project's corpora with their languages",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			corpora := a.service.GetAllCorpora(cmd.Context(), a.projectID(cmd))
			return a.out.Render(corpora, func(w io.Writer) {
				if len(corpora) == 0 {
					fmt.Fprintln(w, "No corpora found")
				}
				for _, c := range corpora {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Side, c.LanguageID, c.FullName)
				}
			})
		},
	}
}

func newCorpusWordsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sideName    string
		limit, skip int
	)
	cmd := &cobra.Command{
		Use:   "words <corpus-id>",
		Short: "Page through a corpus's words in reference order",
		Long: `Page through the words of one corpus in reference order.

Examples:
  aligner corpus words bsb --side targets --limit 20
  aligner corpus words sblgnt --side sources --skip 100 --limit 100`,
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

			words := a.service.GetAllWordsByCorpus(cmd.Context(), a.projectID(cmd), side, args[0], limit, skip)
			return renderWords(a, words)
		},
	}
	cmd.Flags().StringVar(&sideName, "side", string(model.SideTargets), "side of the corpus (sources|targets)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of words")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of words to skip")
	return cmd
}

func newCorpusVerseCommand(rootOpts *RootOptions) *cobra.Command {
	var sideName string
	cmd := &cobra.Command{
		Use:   "verse <book-chapter-verse>",
		Short: "Show the words of one verse",
		Long: `Show the words of one side in a verse, in reference order.

Examples:
  aligner corpus verse 40001001
  aligner corpus verse 40001001 --side sources --format json`,
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

			proj := a.projectID(cmd)
			if side == model.SideTargets && !a.service.HasBCVInSource(cmd.Context(), proj, c.VerseKey()) {
				return failure(ErrCodeNotFound, fmt.Sprintf("no target words in %s", c.HumanString()), nil)
			}
			words := a.service.FindWordsByBCV(cmd.Context(), proj, side, c.Book, c.Chapter, c.Verse)
			return renderWords(a, words)
		},
	}
	cmd.Flags().StringVar(&sideName, "side", string(model.SideTargets), "side to read (sources|targets)")
	return cmd
}

func newCorpusLanguagesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "languages [code...]",
		Short:         "Show the project's languages",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var langs []model.Language
			if len(args) > 0 {
				langs = a.service.LanguageFindByIDs(cmd.Context(), a.projectID(cmd), args)
			} else {
				langs = a.service.LanguageGetAll(cmd.Context(), a.projectID(cmd))
			}
			return a.out.Render(langs, func(w io.Writer) {
				for _, l := range langs {
					fmt.Fprintf(w, "%s\t%s\n", l.Code, l.TextDirection)
				}
			})
		},
	}
}

func renderWords(a *app, words []model.Word) error {
	return a.out.Render(words, func(w io.Writer) {
		if len(words) == 0 {
			fmt.Fprintln(w, "No words found")
		}
		for _, word := range words {
			fmt.Fprintf(w, "%s\t%s\t%s\n", word.ID, word.Text, word.NormalizedText)
		}
	})
}
