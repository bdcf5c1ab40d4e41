package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/model"
)

func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	if cfg.AppName == "" {
		cfg.AppName = "aligner"
	}
	m := NewManager(cfg)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManager_ConcurrentOpenCreatesOneStore(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	const n = 16
	stores := make([]*Store, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Open(ctx, "proj")
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, m.Opened())
	for i := 1; i < n; i++ {
		assert.Same(t, stores[0], stores[i])
	}
}

func TestManager_SeparateProjectsOpenSeparately(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	a, err := m.Open(ctx, "a")
	require.NoError(t, err)
	b, err := m.Open(ctx, "b")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.EqualValues(t, 2, m.Opened())
}

func TestManager_NamesOfOneFileShareAStore(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	a, err := m.Open(ctx, "my/project")
	require.NoError(t, err)
	b, err := m.Open(ctx, "myproject")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.EqualValues(t, 1, m.Opened())

	require.NoError(t, m.Remove("myproject"))
	c, err := m.Open(ctx, "my/project")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestManager_FailureIsNotCached(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, ManagerConfig{DataDir: dir})
	ctx := context.Background()

	// A directory where the store file should be makes the open fail.
	require.NoError(t, os.MkdirAll(m.ProjectPath("p"), 0o755))

	_, err := m.Open(ctx, "p")
	require.Error(t, err)
	assert.True(t, model.IsStoreInitializationFailure(err))

	require.NoError(t, os.RemoveAll(m.ProjectPath("p")))

	s, err := m.Open(ctx, "p")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestManager_CopiesTemplate(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "template.sqlite")

	seed, err := Open(template)
	require.NoError(t, err)
	_, err = seed.Exec(context.Background(), "INSERT INTO language (code, text_direction) VALUES ('heb', 'rtl')")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	m := newTestManager(t, ManagerConfig{DataDir: dir, Template: template})
	s, err := m.Open(context.Background(), "fromtemplate")
	require.NoError(t, err)

	var dir2 string
	require.NoError(t, s.DB().QueryRow("SELECT text_direction FROM language WHERE code = 'heb'").Scan(&dir2))
	assert.Equal(t, "rtl", dir2)
}

func TestManager_DefaultProjectUsesDefaultTemplate(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "default.sqlite")
	seed, err := Open(def)
	require.NoError(t, err)
	_, err = seed.Exec(context.Background(), "INSERT INTO language (code) VALUES ('grc')")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	m := newTestManager(t, ManagerConfig{DataDir: dir, Template: filepath.Join(dir, "missing.sqlite"), DefaultTemplate: def})
	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, m.ProjectPath(DefaultProjectID), s.Path())

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM language").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestManager_FileName(t *testing.T) {
	m := NewManager(ManagerConfig{AppName: "Clear: Aligner"})
	assert.Equal(t, "Clear Aligner-myproject.sqlite", m.FileName("my/project"))

	long := NewManager(ManagerConfig{AppName: strings.Repeat("a", 60)})
	name := long.FileName(strings.Repeat("p", 300))
	assert.Equal(t, strings.Repeat("a", 40)+"-"+strings.Repeat("p", 200)+".sqlite", name)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "abc", SanitizeFileName("a/b\\c"))
	assert.Equal(t, "", SanitizeFileName(".."))
	assert.Equal(t, "", SanitizeFileName("CON"))
	assert.Equal(t, "name", SanitizeFileName("name. "))
}

func TestManager_RemoveDeletesSideFiles(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	s, err := m.Open(ctx, "gone")
	require.NoError(t, err)
	_, err = s.Exec(ctx, "INSERT INTO language (code) VALUES ('eng')")
	require.NoError(t, err)

	keep, err := m.Open(ctx, "gone-but-not-this")
	require.NoError(t, err)
	require.NotNil(t, keep)

	require.NoError(t, m.Remove("gone"))

	for _, suffix := range sideFileSuffixes {
		_, err := os.Stat(filepath.Join(m.ProjectDir(), "aligner-gone"+suffix))
		assert.True(t, os.IsNotExist(err), "suffix %s", suffix)
	}
	_, err = os.Stat(m.ProjectPath("gone-but-not-this"))
	assert.NoError(t, err)

	// Reopening after removal creates a fresh store.
	s2, err := m.Open(ctx, "gone")
	require.NoError(t, err)
	assert.NotSame(t, s, s2)
	var n int
	require.NoError(t, s2.DB().QueryRow("SELECT COUNT(*) FROM language").Scan(&n))
	assert.Zero(t, n)
}

func TestManager_List(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	files, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, files)

	for _, p := range []string{"b", "a"} {
		_, err := m.Open(ctx, p)
		require.NoError(t, err)
	}
	_, err = m.OpenUser(ctx)
	require.NoError(t, err)

	files, err = m.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, "aligner-a.sqlite", files[0].FileName)
	assert.Equal(t, "b", files[1].ID)
}

func TestManager_OpenHonorsContext(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Open(ctx, "late")
	// Either the cancelled wait or a completed open is acceptable; the
	// manager must not be left holding a broken entry.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	s, err := m.Open(context.Background(), "late")
	require.NoError(t, err)
	assert.NotNil(t, s)
}
