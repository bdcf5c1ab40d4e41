package project

import (
	"context"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/prefs"
)

func unknownTable(t Table) error {
	return model.NewError(model.ErrCodeQueryInjectionRisk, "project.table",
		fmt.Sprintf("unsupported table %T", t), nil)
}

// Insert creates items in table, chunkSize rows per statement inside one
// transaction. Each link is journaled as CREATE. Corpora upsert the
// languages they reference first.
func (s *Service) Insert(ctx context.Context, project string, table Table, items Records, chunkSize int) bool {
	err := s.insert(ctx, project, table, items, chunkSize)
	if err != nil {
		s.fail("insert", project, err)
		return false
	}
	return true
}

func (s *Service) insert(ctx context.Context, project string, table Table, items Records, chunkSize int) error {
	switch t := table.(type) {
	case LinksTable:
		r, err := s.project(ctx, project)
		if err != nil {
			return err
		}
		_, err = r.links.InsertChunked(ctx, items.Links, chunkSize)
		return err
	case PreferenceTable:
		return s.savePreferences(ctx, items.Preferences)
	case GenericTable:
		r, err := s.project(ctx, project)
		if err != nil {
			return err
		}
		if t.Name == corporaTable {
			corpora, err := items.corpora()
			if err != nil {
				return err
			}
			return r.corpus.InsertCorpora(ctx, corpora)
		}
		return writeRows(ctx, r.store, t.Name, items.Rows, chunkSize, false)
	default:
		return unknownTable(table)
	}
}

// Save writes items, replacing rows with the same id. Links are journaled
// as CREATE or UPDATE.
func (s *Service) Save(ctx context.Context, project string, table Table, items Records) bool {
	var err error
	switch t := table.(type) {
	case LinksTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			_, err = r.links.Save(ctx, items.Links)
		}
	case PreferenceTable:
		err = s.savePreferences(ctx, items.Preferences)
	case GenericTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			if t.Name == corporaTable {
				var corpora []model.Corpus
				if corpora, err = items.corpora(); err == nil {
					err = r.corpus.InsertCorpora(ctx, corpora)
				}
			} else {
				err = writeRows(ctx, r.store, t.Name, items.Rows, 0, true)
			}
		}
	default:
		err = unknownTable(table)
	}
	if err != nil {
		s.fail("save", project, err)
		return false
	}
	return true
}

// savePreferences stores the last preference given; there is one row.
func (s *Service) savePreferences(ctx context.Context, items []model.Preference) error {
	if len(items) == 0 {
		return nil
	}
	p, err := s.preferences(ctx)
	if err != nil {
		return err
	}
	_, err = p.Save(ctx, items[len(items)-1])
	return err
}

// SetPreference updates one preference field by its snake_case name.
func (s *Service) SetPreference(ctx context.Context, field, value string) (model.Preference, bool) {
	p, err := s.preferences(ctx)
	if err != nil {
		s.fail("setPreference", "", err)
		return model.Preference{}, false
	}
	pref, err := p.Set(ctx, field, value)
	if err != nil {
		s.fail("setPreference", "", err)
		return model.Preference{}, false
	}
	return pref, true
}

// DeleteAll empties table. Deleting links is not journaled.
func (s *Service) DeleteAll(ctx context.Context, project string, table Table) bool {
	var err error
	switch t := table.(type) {
	case LinksTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			err = r.links.DeleteAll(ctx)
		}
	case PreferenceTable:
		var p *prefs.Repository
		if p, err = s.preferences(ctx); err == nil {
			err = p.Delete(ctx)
		}
	case GenericTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			err = deleteRows(ctx, r.store, t.Name, nil)
		}
	default:
		err = unknownTable(table)
	}
	if err != nil {
		s.fail("deleteAll", project, err)
		return false
	}
	return true
}

// DeleteByIDs removes the rows with ids. Deleted links are journaled.
func (s *Service) DeleteByIDs(ctx context.Context, project string, table Table, ids []string) bool {
	var err error
	switch t := table.(type) {
	case LinksTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			err = r.links.DeleteByIDs(ctx, ids)
		}
	case PreferenceTable:
		var pref model.Preference
		var found bool
		pref, found, err = s.preference(ctx)
		if err == nil && found && slices.Contains(ids, pref.ID) {
			var p *prefs.Repository
			if p, err = s.preferences(ctx); err == nil {
				err = p.Delete(ctx)
			}
		}
	case GenericTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			err = deleteRows(ctx, r.store, t.Name, idIn(t.Name, ids))
		}
	default:
		err = unknownTable(table)
	}
	if err != nil {
		s.fail("deleteByIds", project, err)
		return false
	}
	return true
}

// ExistsByID reports whether a row with id exists.
func (s *Service) ExistsByID(ctx context.Context, project string, table Table, id string) bool {
	found, err := s.existsByID(ctx, project, table, id)
	if err != nil {
		s.fail("existsById", project, err)
		return false
	}
	return found
}

func (s *Service) existsByID(ctx context.Context, project string, table Table, id string) (bool, error) {
	switch t := table.(type) {
	case LinksTable:
		r, err := s.project(ctx, project)
		if err != nil {
			return false, err
		}
		return r.links.ExistsByID(ctx, id)
	case PreferenceTable:
		pref, found, err := s.preference(ctx)
		return found && pref.ID == id, err
	case GenericTable:
		r, err := s.project(ctx, project)
		if err != nil {
			return false, err
		}
		rows, err := selectRows(ctx, r.store, t.Name, idIn(t.Name, []string{id}), 1, 0)
		return len(rows) > 0, err
	default:
		return false, unknownTable(table)
	}
}

// FindByIDs returns the rows with ids, ordered by id.
func (s *Service) FindByIDs(ctx context.Context, project string, table Table, ids []string) Records {
	return s.find(ctx, "findByIds", project, table,
		func(r *repos) ([]model.Link, error) { return r.links.FindByIDs(ctx, ids) },
		func(p model.Preference) bool { return slices.Contains(ids, p.ID) },
		func(name string) ([]Row, error) {
			return s.genericSelect(ctx, project, name, idIn(name, ids), 0, 0)
		})
}

// FindOneByID returns the row with id, or false.
func (s *Service) FindOneByID(ctx context.Context, project string, table Table, id string) (Records, bool) {
	if _, ok := table.(LinksTable); ok {
		r, err := s.project(ctx, project)
		if err != nil {
			s.fail("findOneById", project, err)
			return Records{}, false
		}
		l, err := r.links.FindOneByID(ctx, id)
		if model.IsNotFound(err) {
			return Records{}, false
		}
		if err != nil {
			s.fail("findOneById", project, err)
			return Records{}, false
		}
		return Records{Links: []model.Link{l}}, true
	}
	recs := s.FindByIDs(ctx, project, table, []string{id})
	return recs, recs.Len() > 0
}

// GetAll pages through table in id order. limit <= 0 means no limit.
func (s *Service) GetAll(ctx context.Context, project string, table Table, limit, skip int) Records {
	return s.find(ctx, "getAll", project, table,
		func(r *repos) ([]model.Link, error) { return r.links.GetAll(ctx, limit, skip) },
		func(model.Preference) bool { return skip == 0 },
		func(name string) ([]Row, error) {
			return s.genericSelect(ctx, project, name, nil, limit, skip)
		})
}

// FindBetweenIDs returns the rows whose id lies in [from, to].
func (s *Service) FindBetweenIDs(ctx context.Context, project string, table Table, from, to string) Records {
	return s.find(ctx, "findBetweenIds", project, table,
		func(r *repos) ([]model.Link, error) { return r.links.FindBetween(ctx, from, to) },
		func(p model.Preference) bool { return p.ID >= from && p.ID <= to },
		func(name string) ([]Row, error) {
			return s.genericSelect(ctx, project, name, idBetween(name, from, to), 0, 0)
		})
}

// find dispatches a read over the table variants.
func (s *Service) find(
	ctx context.Context, op, project string, table Table,
	linksFn func(*repos) ([]model.Link, error),
	prefFn func(model.Preference) bool,
	rowsFn func(name string) ([]Row, error),
) Records {
	var (
		out Records
		err error
	)
	switch t := table.(type) {
	case LinksTable:
		var r *repos
		if r, err = s.project(ctx, project); err == nil {
			out.Links, err = linksFn(r)
		}
	case PreferenceTable:
		var (
			pref  model.Preference
			found bool
		)
		pref, found, err = s.preference(ctx)
		if err == nil && found && prefFn(pref) {
			out.Preferences = []model.Preference{pref}
		}
	case GenericTable:
		out.Rows, err = rowsFn(t.Name)
	default:
		err = unknownTable(table)
	}
	if err != nil {
		s.fail(op, project, err)
		return Records{}
	}
	return out
}

func (s *Service) preference(ctx context.Context) (model.Preference, bool, error) {
	p, err := s.preferences(ctx)
	if err != nil {
		return model.Preference{}, false, err
	}
	return p.Get(ctx)
}

func (s *Service) genericSelect(ctx context.Context, project, table string, where sq.Sqlizer, limit, skip int) ([]Row, error) {
	r, err := s.project(ctx, project)
	if err != nil {
		return nil, err
	}
	return selectRows(ctx, r.store, table, where, limit, skip)
}
