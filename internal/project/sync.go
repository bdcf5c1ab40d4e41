package project

import (
	"context"
	"errors"

	"github.com/roach88/aligner/internal/remote"
	"github.com/roach88/aligner/internal/syncer"
)

// ErrNoRemote is returned by Sync when no authority is configured.
var ErrNoRemote = errors.New("no remote configured")

func (s *Service) syncerFor(ctx context.Context, project string) (*syncer.Syncer, *repos, error) {
	if s.opts.Transport == nil {
		return nil, nil, ErrNoRemote
	}
	r, err := s.project(ctx, project)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sy, ok := s.syncers[project]
	if !ok {
		sy = syncer.New(s.opts.Transport, r.journal, r.links, s.opts.Sync, s.logger.With("project", project))
		s.syncers[project] = sy
	}
	return sy, r, nil
}

// Sync uploads the project's journal and replaces its links with the
// authority's. With register, the project and its corpora are posted to
// the authority first. A sync already running for the project is
// superseded. Unlike the other operations the error is returned, since
// callers show it and retry.
func (s *Service) Sync(ctx context.Context, project string, register bool) (syncer.Result, error) {
	sy, r, err := s.syncerFor(ctx, project)
	if err != nil {
		s.fail("sync", project, err)
		return syncer.Result{}, err
	}
	var opts syncer.Options
	if register {
		corpora, err := r.corpus.GetAllCorpora(ctx, s.opts.CorpusMode)
		if err != nil {
			s.fail("sync", project, err)
			return syncer.Result{}, err
		}
		opts.Register = &remote.ProjectPayload{ID: project, Name: project, Corpora: corpora}
	}
	res, err := sy.Sync(ctx, project, opts)
	if err != nil {
		s.fail("sync", project, err)
	}
	return res, err
}

// SyncState is the project's sync phase; Idle when it never synced.
func (s *Service) SyncState(project string) syncer.State {
	s.mu.Lock()
	sy, ok := s.syncers[project]
	s.mu.Unlock()
	if !ok {
		return syncer.Idle
	}
	return sy.State()
}

// CancelSync aborts the project's sync in flight.
func (s *Service) CancelSync(project string) {
	s.mu.Lock()
	sy, ok := s.syncers[project]
	s.mu.Unlock()
	if ok {
		sy.Cancel()
	}
}
