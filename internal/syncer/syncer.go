// Package syncer reconciles a project's links with the remote authority.
//
// A sync uploads the local journal, then replaces the local link set with
// the authority's copy. The journal is only trimmed after the authority
// acknowledged an upload, and a fetched link set is only applied once
// every page arrived, so an aborted sync can always be retried.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/remote"
)

// State is the phase of the sync state machine.
type State int

const (
	Idle State = iota
	Uploading
	Fetching
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Fetching:
		return "fetching"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrSuperseded is returned by a sync cancelled by a newer one.
var ErrSuperseded = errors.New("sync superseded")

// Transport is the remote authority.
type Transport interface {
	PatchJournal(ctx context.Context, projectID string, entries []model.JournalEntryDTO) error
	FetchLinks(ctx context.Context, projectID string, page, limit int) ([]model.ServerLink, error)
	CreateProject(ctx context.Context, p remote.ProjectPayload) error
}

// Journal is the pending local mutations.
type Journal interface {
	FirstUploadChunk(ctx context.Context, n int) ([]model.JournalEntry, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// LinkStore receives the authority's link set.
type LinkStore interface {
	ReplaceAll(ctx context.Context, links []model.Link, chunkSize int) error
}

// Config tunes transfer sizes.
type Config struct {
	UploadChunkSize int
	PageSize        int
	// FetchParallelism is the number of pages requested at once.
	FetchParallelism int
	ApplyChunkSize   int
}

// DefaultConfig matches the authority's limits.
var DefaultConfig = Config{
	UploadChunkSize:  10000,
	PageSize:         50000,
	FetchParallelism: 1,
	ApplyChunkSize:   2000,
}

// Result summarizes a completed sync.
type Result struct {
	Uploaded int
	Fetched  int
}

// Options adjust a single sync.
type Options struct {
	// Register posts the project to the authority before syncing links.
	Register *remote.ProjectPayload
}

// Syncer runs syncs for one project store. Starting a sync cancels any
// sync still in flight; the newest request wins.
//
// Thread-safety: safe for concurrent use.
type Syncer struct {
	transport Transport
	journal   Journal
	links     LinkStore
	cfg       Config
	logger    *slog.Logger

	run sync.Mutex // held by the running sync

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelCauseFunc
	subs   map[chan State]struct{}
}

// New creates a Syncer. Zero config fields take DefaultConfig values.
func New(t Transport, j Journal, l LinkStore, cfg Config, logger *slog.Logger) *Syncer {
	if cfg.UploadChunkSize <= 0 {
		cfg.UploadChunkSize = DefaultConfig.UploadChunkSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig.PageSize
	}
	if cfg.FetchParallelism <= 0 {
		cfg.FetchParallelism = DefaultConfig.FetchParallelism
	}
	if cfg.ApplyChunkSize <= 0 {
		cfg.ApplyChunkSize = DefaultConfig.ApplyChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		transport: t,
		journal:   j,
		links:     l,
		cfg:       cfg,
		logger:    logger,
		subs:      make(map[chan State]struct{}),
	}
}

// State returns the current phase.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving every state change and a function
// that unsubscribes. Changes are dropped for subscribers that fall behind.
func (s *Syncer) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Cancel aborts the sync in flight, if any.
func (s *Syncer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(context.Canceled)
	}
}

// Sync uploads the journal of projectID and replaces local links with the
// authority's. It supersedes a sync already running.
func (s *Syncer) Sync(ctx context.Context, projectID string, opts Options) (Result, error) {
	ctx, gen := s.start(ctx)
	s.run.Lock()
	defer s.run.Unlock()
	defer s.finish(gen)

	var res Result
	if err := context.Cause(ctx); err != nil {
		return res, s.abort(gen, projectID, err)
	}

	if opts.Register != nil {
		if err := s.transport.CreateProject(ctx, *opts.Register); err != nil {
			return res, s.abort(gen, projectID, err)
		}
	}

	s.setState(gen, Uploading)
	uploaded, err := s.upload(ctx, projectID)
	res.Uploaded = uploaded
	if err != nil {
		return res, s.abort(gen, projectID, err)
	}

	s.setState(gen, Fetching)
	links, err := s.fetch(ctx, projectID)
	if err != nil {
		return res, s.abort(gen, projectID, err)
	}
	if err := context.Cause(ctx); err != nil {
		return res, s.abort(gen, projectID, err)
	}
	if err := s.links.ReplaceAll(ctx, links, s.cfg.ApplyChunkSize); err != nil {
		return res, s.abort(gen, projectID, err)
	}
	res.Fetched = len(links)

	s.logger.Info("sync complete", "project", projectID, "uploaded", res.Uploaded, "fetched", res.Fetched)
	s.setState(gen, Idle)
	return res, nil
}

// start supersedes the running sync and returns this sync's context and
// generation.
func (s *Syncer) start(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancelCause(parent)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

func (s *Syncer) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel(context.Canceled)
		s.cancel = nil
	}
}

func (s *Syncer) upload(ctx context.Context, projectID string) (int, error) {
	total := 0
	for {
		if err := context.Cause(ctx); err != nil {
			return total, err
		}
		chunk, err := s.journal.FirstUploadChunk(ctx, s.cfg.UploadChunkSize)
		if err != nil {
			return total, err
		}
		if len(chunk) == 0 {
			return total, nil
		}

		dtos := make([]model.JournalEntryDTO, len(chunk))
		ids := make([]string, len(chunk))
		for i, e := range chunk {
			dtos[i] = e.DTO()
			ids[i] = e.ID
		}
		if err := s.transport.PatchJournal(ctx, projectID, dtos); err != nil {
			return total, err
		}
		// Cancelled while the request was in flight: the acknowledgement
		// cannot be trusted, keep the entries.
		if err := context.Cause(ctx); err != nil {
			return total, err
		}
		if err := s.journal.DeleteByIDs(ctx, ids); err != nil {
			return total, err
		}
		total += len(chunk)
		s.logger.Debug("journal chunk uploaded", "project", projectID, "entries", len(chunk))
	}
}

// fetch reads pages until one comes back short. Up to FetchParallelism
// pages are requested at once.
func (s *Syncer) fetch(ctx context.Context, projectID string) ([]model.Link, error) {
	var out []model.Link
	for page := 0; ; page += s.cfg.FetchParallelism {
		pages := make([][]model.ServerLink, s.cfg.FetchParallelism)
		g, gctx := errgroup.WithContext(ctx)
		for i := range pages {
			g.Go(func() error {
				links, err := s.transport.FetchLinks(gctx, projectID, page+i, s.cfg.PageSize)
				if err != nil {
					return err
				}
				pages[i] = links
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, p := range pages {
			for _, l := range p {
				out = append(out, l.ToLink())
			}
			if len(p) < s.cfg.PageSize {
				return out, nil
			}
		}
	}
}

func (s *Syncer) abort(gen uint64, projectID string, err error) error {
	s.logger.Warn("sync aborted", "project", projectID, "error", err)
	s.setState(gen, Aborted)
	s.setState(gen, Idle)
	return fmt.Errorf("sync %s: %w", projectID, err)
}

// setState records st unless a newer sync took over.
func (s *Syncer) setState(gen uint64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state = st
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
