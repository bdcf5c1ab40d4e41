// Package project is the boundary used by presentation layers: every
// operation addresses a project by name and reports failure as a false or
// empty result after logging it. Callers that need the typed errors use
// the repositories directly.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/aligner/internal/bcvwp"
	"github.com/roach88/aligner/internal/concordance"
	"github.com/roach88/aligner/internal/corpus"
	"github.com/roach88/aligner/internal/importer"
	"github.com/roach88/aligner/internal/journal"
	"github.com/roach88/aligner/internal/links"
	"github.com/roach88/aligner/internal/manifest"
	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/prefs"
	"github.com/roach88/aligner/internal/store"
	"github.com/roach88/aligner/internal/syncer"
)

// Options configures a Service.
type Options struct {
	Manager *store.Manager

	// Transport is the remote authority. Sync fails while it is nil.
	Transport syncer.Transport
	Sync      syncer.Config

	ImportBatchSize   int
	ImportParallelism int

	// CorpusMode decides whether GetAllCorpora keeps corpora whose
	// language is missing.
	CorpusMode corpus.Mode

	JournalOptions []journal.Option
	Logger         *slog.Logger
}

// Service owns the repositories of every open project.
//
// Thread-safety: all methods are safe for concurrent use.
type Service struct {
	opts    Options
	manager *store.Manager
	logger  *slog.Logger

	mu      sync.Mutex
	repos   map[*store.Store]*repos
	syncers map[string]*syncer.Syncer
}

// repos are the repositories over one open store.
type repos struct {
	store       *store.Store
	journal     *journal.Journal
	corpus      *corpus.Repository
	links       *links.Repository
	concordance *concordance.Engine
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		opts:    opts,
		manager: opts.Manager,
		logger:  logger,
		repos:   make(map[*store.Store]*repos),
		syncers: make(map[string]*syncer.Syncer),
	}
}

// project returns the repositories of name, opening its store on first
// use.
func (s *Service) project(ctx context.Context, name string) (*repos, error) {
	st, err := s.manager.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.repos[st]; ok {
		return r, nil
	}
	opts := append([]journal.Option{journal.WithLogger(s.logger)}, s.opts.JournalOptions...)
	j := journal.New(st, opts...)
	l := links.New(st, j, s.logger)
	r := &repos{
		store:       st,
		journal:     j,
		corpus:      corpus.New(st, s.logger),
		links:       l,
		concordance: concordance.New(st, l),
	}
	s.repos[st] = r
	return r, nil
}

func (s *Service) preferences(ctx context.Context) (*prefs.Repository, error) {
	st, err := s.manager.OpenUser(ctx)
	if err != nil {
		return nil, err
	}
	return prefs.New(st), nil
}

func (s *Service) importer(r *repos) *importer.Importer {
	return importer.New(r.corpus, r.links, s.opts.ImportBatchSize, s.logger).
		WithParallelism(s.opts.ImportParallelism)
}

// fail logs a failed operation; the caller then returns its empty result.
func (s *Service) fail(op, project string, err error) {
	attrs := []any{"op", op, "project", project, "error", err}
	if code := model.CodeOf(err); code != "" {
		attrs = append(attrs, "code", string(code))
	}
	s.logger.Error("operation failed", attrs...)
}

// OpenProject opens (creating when needed) the store of name.
func (s *Service) OpenProject(ctx context.Context, name string) bool {
	if _, err := s.project(ctx, name); err != nil {
		s.fail("openProject", name, err)
		return false
	}
	return true
}

// CreateDataSource creates the store of project, seeded from the
// template when one is configured.
func (s *Service) CreateDataSource(ctx context.Context, project string) bool {
	if project == "" {
		s.fail("createDataSource", project, errors.New("empty project id"))
		return false
	}
	return s.OpenProject(ctx, project)
}

// RemoveSource cancels the project's sync, closes its store and deletes
// its files.
func (s *Service) RemoveSource(ctx context.Context, project string) bool {
	s.mu.Lock()
	if sy, ok := s.syncers[project]; ok {
		sy.Cancel()
		delete(s.syncers, project)
	}
	for st := range s.repos {
		if st.Path() == s.manager.ProjectPath(project) {
			delete(s.repos, st)
		}
	}
	s.mu.Unlock()

	if err := s.manager.Remove(project); err != nil {
		s.fail("removeSource", project, err)
		return false
	}
	return true
}

// GetDataSources lists the projects on disk with their corpora.
func (s *Service) GetDataSources(ctx context.Context) []model.Project {
	files, err := s.manager.List()
	if err != nil {
		s.fail("getDataSources", "", err)
		return []model.Project{}
	}
	out := make([]model.Project, 0, len(files))
	for _, f := range files {
		p := model.Project{ID: f.ID, FileName: f.FileName, Corpora: []model.Corpus{}}
		r, err := s.project(ctx, f.ID)
		if err != nil {
			s.fail("getDataSources", f.ID, err)
			continue
		}
		corpora, err := r.corpus.GetAllCorpora(ctx, s.opts.CorpusMode)
		if err != nil {
			s.fail("getDataSources", f.ID, err)
		} else {
			p.Corpora = corpora
		}
		out = append(out, p)
	}
	return out
}

// CreateSourceFromProject creates the manifest's project and imports its
// corpora and alignments.
func (s *Service) CreateSourceFromProject(ctx context.Context, m *manifest.Manifest) (importer.Stats, bool) {
	r, err := s.project(ctx, m.Project.ID)
	if err != nil {
		s.fail("createSourceFromProject", m.Project.ID, err)
		return importer.Stats{}, false
	}
	stats, err := s.importer(r).ImportManifest(ctx, m)
	if err != nil {
		s.fail("createSourceFromProject", m.Project.ID, err)
		return stats, false
	}
	return stats, true
}

// UpdateSourceFromProject reloads the manifest's target corpora: existing
// target words are removed, the targets re-imported and every link's
// cached text recomputed. Links are kept.
func (s *Service) UpdateSourceFromProject(ctx context.Context, m *manifest.Manifest) (importer.Stats, bool) {
	r, err := s.project(ctx, m.Project.ID)
	if err != nil {
		s.fail("updateSourceFromProject", m.Project.ID, err)
		return importer.Stats{}, false
	}
	var targets []importer.Source
	for _, src := range importer.SourcesFromManifest(m) {
		if src.Corpus.Side == model.SideTargets {
			targets = append(targets, src)
		}
	}
	if len(targets) == 0 {
		s.fail("updateSourceFromProject", m.Project.ID, errors.New("manifest has no target corpus"))
		return importer.Stats{}, false
	}
	if err := r.corpus.RemoveTargetWords(ctx); err != nil {
		s.fail("updateSourceFromProject", m.Project.ID, err)
		return importer.Stats{}, false
	}
	stats, err := s.importer(r).ImportCorpora(ctx, targets)
	if err != nil {
		s.fail("updateSourceFromProject", m.Project.ID, err)
		return stats, false
	}
	if err := r.links.RecomputeText(ctx); err != nil {
		s.fail("updateSourceFromProject", m.Project.ID, err)
		return stats, false
	}
	return stats, true
}

// GetFirstBCVFromSource returns the reference of the project's first
// target word.
func (s *Service) GetFirstBCVFromSource(ctx context.Context, project string) (bcvwp.Coordinate, bool) {
	r, err := s.project(ctx, project)
	if err != nil {
		s.fail("getFirstBcvFromSource", project, err)
		return bcvwp.Coordinate{}, false
	}
	c, ok, err := r.corpus.FirstBCV(ctx)
	if err != nil {
		s.fail("getFirstBcvFromSource", project, err)
		return bcvwp.Coordinate{}, false
	}
	return c, ok
}

// HasBCVInSource reports whether any target word lies under ref.
func (s *Service) HasBCVInSource(ctx context.Context, project, ref string) bool {
	r, err := s.project(ctx, project)
	if err != nil {
		s.fail("hasBcvInSource", project, err)
		return false
	}
	ok, err := r.corpus.HasBCV(ctx, ref)
	if err != nil {
		s.fail("hasBcvInSource", project, err)
		return false
	}
	return ok
}

// JournalCount is the number of journal entries awaiting upload.
func (s *Service) JournalCount(ctx context.Context, project string) (int, error) {
	r, err := s.project(ctx, project)
	if err != nil {
		return 0, err
	}
	return r.journal.Count(ctx)
}

// Close closes every open store.
func (s *Service) Close() error {
	s.mu.Lock()
	for _, sy := range s.syncers {
		sy.Cancel()
	}
	s.repos = make(map[*store.Store]*repos)
	s.mu.Unlock()
	if err := s.manager.Close(); err != nil {
		return fmt.Errorf("close stores: %w", err)
	}
	return nil
}
