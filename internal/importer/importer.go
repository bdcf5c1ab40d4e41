package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/aligner/internal/manifest"
	"github.com/roach88/aligner/internal/model"
)

// DefaultBatchSize is the number of words written per statement batch.
const DefaultBatchSize = 1000

// Source is one corpus file to import.
type Source struct {
	Corpus  model.Corpus
	IDField string
	Path    string
}

// SourcesFromManifest lists the corpus files a manifest names.
func SourcesFromManifest(m *manifest.Manifest) []Source {
	sources := make([]Source, 0, len(m.Corpora))
	for _, c := range m.Corpora {
		sources = append(sources, Source{Corpus: c.Model(), IDField: c.IDField, Path: c.File})
	}
	return sources
}

// CorpusWriter persists corpora and their words.
type CorpusWriter interface {
	InsertCorpora(ctx context.Context, corpora []model.Corpus) error
	InsertWords(ctx context.Context, words []model.Word, chunkSize int) error
}

// LinkWriter persists imported links.
type LinkWriter interface {
	InsertBulk(ctx context.Context, links []model.Link, chunkSize int) ([]model.Link, error)
}

// Stats summarizes an import.
type Stats struct {
	Corpora int `json:"corpora"`
	Words   int `json:"words"`
	Links   int `json:"links"`
}

// Importer loads corpus and alignment files into one project.
type Importer struct {
	corpora     CorpusWriter
	links       LinkWriter
	batchSize   int
	parallelism int
	logger      *slog.Logger
}

// New creates an Importer. A batchSize of 0 uses DefaultBatchSize.
func New(corpora CorpusWriter, links LinkWriter, batchSize int, logger *slog.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		corpora:     corpora,
		links:       links,
		batchSize:   batchSize,
		parallelism: runtime.GOMAXPROCS(0),
		logger:      logger,
	}
}

// WithParallelism caps how many files are parsed at once.
func (im *Importer) WithParallelism(n int) *Importer {
	if n > 0 {
		im.parallelism = n
	}
	return im
}

// ImportCorpora parses every source, then writes corpora and words. Files
// are parsed concurrently; writes are serial and each corpus's words
// commit in one transaction. Nothing is written if any file fails to parse.
func (im *Importer) ImportCorpora(ctx context.Context, sources []Source) (Stats, error) {
	parsed := make([][]model.Word, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.parallelism)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			words, err := readFile(src)
			if err != nil {
				return fmt.Errorf("corpus %s: %w", src.Corpus.ID, err)
			}
			parsed[i] = words
			im.logger.Debug("corpus parsed", "corpus", src.Corpus.ID, "words", len(words))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	corpora := make([]model.Corpus, 0, len(sources))
	for _, src := range sources {
		corpora = append(corpora, src.Corpus)
	}
	if err := im.corpora.InsertCorpora(ctx, corpora); err != nil {
		return Stats{}, err
	}

	stats := Stats{Corpora: len(corpora)}
	for i, src := range sources {
		if err := im.corpora.InsertWords(ctx, parsed[i], im.batchSize); err != nil {
			return stats, fmt.Errorf("corpus %s: %w", src.Corpus.ID, err)
		}
		stats.Words += len(parsed[i])
		im.logger.Info("corpus imported", "corpus", src.Corpus.ID, "side", src.Corpus.Side, "words", len(parsed[i]))
	}
	return stats, nil
}

// ImportAlignments reads an alignment file and inserts its links.
func (im *Importer) ImportAlignments(ctx context.Context, r io.Reader) (Stats, error) {
	links, err := ReadAlignments(r)
	if err != nil {
		return Stats{}, err
	}
	inserted, err := im.links.InsertBulk(ctx, links, im.batchSize)
	if err != nil {
		return Stats{}, err
	}
	im.logger.Info("alignments imported", "links", len(inserted))
	return Stats{Links: len(inserted)}, nil
}

// ImportManifest imports a manifest's corpora and, when named, its
// alignment file.
func (im *Importer) ImportManifest(ctx context.Context, m *manifest.Manifest) (Stats, error) {
	stats, err := im.ImportCorpora(ctx, SourcesFromManifest(m))
	if err != nil {
		return stats, err
	}
	if m.Alignments == "" {
		return stats, nil
	}
	f, err := os.Open(m.Alignments)
	if err != nil {
		return stats, fmt.Errorf("open alignments: %w", err)
	}
	defer f.Close()
	linkStats, err := im.ImportAlignments(ctx, f)
	if err != nil {
		return stats, err
	}
	stats.Links = linkStats.Links
	return stats, nil
}

func readFile(src Source) ([]model.Word, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTSV(f, src.Corpus, src.IDField)
}
