// Package prefs stores the single user preference row in the shared user
// store.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/store"
)

// DefaultID identifies the preference row.
const DefaultID = "preferences"

// Repository reads and writes preferences.
type Repository struct {
	store *store.Store
}

// New creates a Repository over the user store.
func New(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Get returns the stored preferences, or false when none were saved.
func (r *Repository) Get(ctx context.Context) (model.Preference, bool, error) {
	var (
		id, view, project, bcv, page sql.NullString
		showGloss                    bool
	)
	err := r.store.DB().QueryRowContext(ctx, `
		SELECT id, alignment_view, current_project, bcv, page, show_gloss
		FROM preference LIMIT 1`,
	).Scan(&id, &view, &project, &bcv, &page, &showGloss)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Preference{}, false, nil
	}
	if err != nil {
		return model.Preference{}, false, fmt.Errorf("get preferences: %w", err)
	}
	return model.Preference{
		ID:             id.String,
		AlignmentView:  view.String,
		CurrentProject: project.String,
		BCV:            bcv.String,
		Page:           page.String,
		ShowGloss:      showGloss,
	}, true, nil
}

// Save replaces the stored preferences with p.
func (r *Repository) Save(ctx context.Context, p model.Preference) (model.Preference, error) {
	if p.ID == "" {
		p.ID = DefaultID
	}
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM preference"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO preference (id, alignment_view, current_project, bcv, page, show_gloss)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.AlignmentView, p.CurrentProject, p.BCV, p.Page, p.ShowGloss)
		return err
	})
	if err != nil {
		return model.Preference{}, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}

// Set updates one field by its snake_case name, keeping the others.
func (r *Repository) Set(ctx context.Context, field, value string) (model.Preference, error) {
	p, _, err := r.Get(ctx)
	if err != nil {
		return model.Preference{}, err
	}
	switch strings.ToLower(field) {
	case "alignment_view":
		p.AlignmentView = value
	case "current_project":
		p.CurrentProject = value
	case "bcv":
		p.BCV = value
	case "page":
		p.Page = value
	case "show_gloss":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return model.Preference{}, fmt.Errorf("show_gloss: %w", err)
		}
		p.ShowGloss = b
	default:
		return model.Preference{}, fmt.Errorf("unknown preference %q", field)
	}
	return r.Save(ctx, p)
}

// Delete removes the stored preferences.
func (r *Repository) Delete(ctx context.Context) error {
	if _, err := r.store.Exec(ctx, "DELETE FROM preference"); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	return nil
}
