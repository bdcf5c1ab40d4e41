package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	s, err := store.OpenSchema(context.Background(), filepath.Join(t.TempDir(), "user.sqlite"), store.UserSchema)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestGet_Empty(t *testing.T) {
	r := newTestRepo(t)
	_, ok, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSave_ReplacesSingleton(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.Save(ctx, model.Preference{CurrentProject: "a", ShowGloss: true})
	require.NoError(t, err)
	_, err = r.Save(ctx, model.Preference{ID: "other", CurrentProject: "b"})
	require.NoError(t, err)

	var n int
	require.NoError(t, r.store.DB().QueryRow("SELECT COUNT(*) FROM preference").Scan(&n))
	assert.Equal(t, 1, n)

	p, ok, err := r.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", p.CurrentProject)
	assert.False(t, p.ShowGloss)
}

func TestSet(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p, err := r.Set(ctx, "bcv", "400010010011")
	require.NoError(t, err)
	assert.Equal(t, DefaultID, p.ID)

	p, err = r.Set(ctx, "show_gloss", "true")
	require.NoError(t, err)
	assert.True(t, p.ShowGloss)
	assert.Equal(t, "400010010011", p.BCV)

	_, err = r.Set(ctx, "show_gloss", "maybe")
	assert.Error(t, err)
	_, err = r.Set(ctx, "theme", "dark")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.Save(ctx, model.Preference{BCV: "40001001"})
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx))
	_, ok, err := r.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
