package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/aligner/internal/model"
)

// DefaultProjectID names the project that ships with the application.
const DefaultProjectID = "00000000-0000-4000-8000-000000000000"

const (
	projectsDir  = "projects"
	fileExt      = ".sqlite"
	appNameMax   = 40
	projectMax   = 200
	userStoreKey = "\x00user"
)

// sideFileSuffixes are removed together with a project's main file.
var sideFileSuffixes = []string{fileExt, fileExt + "-wal", fileExt + "-shm"}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// DataDir holds the user store and the projects/ directory.
	DataDir string

	// AppName prefixes every store file name.
	AppName string

	// Template seeds new project files when set and present on disk.
	Template string

	// DefaultTemplate seeds the default project instead of Template.
	DefaultTemplate string

	Logger *slog.Logger
}

// Manager owns every open store of the process, keyed by file path, so
// names that sanitize to the same file share one store.
//
// Concurrent first-time opens of one project share a single in-flight
// initialization; exactly one physical store is opened per file. A failed
// initialization is not remembered, so the next caller retries.
//
// Thread-safety: all methods are safe for concurrent use.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
	group  singleflight.Group

	opened atomic.Int64
}

// NewManager creates a Manager. Nothing is opened until requested.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		stores: make(map[string]*Store),
	}
}

// Open returns the store for project, opening it on first use.
func (m *Manager) Open(ctx context.Context, project string) (*Store, error) {
	if project == "" {
		project = DefaultProjectID
	}
	template := m.cfg.Template
	if project == DefaultProjectID && m.cfg.DefaultTemplate != "" {
		template = m.cfg.DefaultTemplate
	}
	path := m.ProjectPath(project)
	return m.open(ctx, path, path, template, ProjectSchema)
}

// OpenUser returns the shared user preferences store.
func (m *Manager) OpenUser(ctx context.Context) (*Store, error) {
	path := filepath.Join(m.cfg.DataDir, m.appPrefix()+"-user"+fileExt)
	return m.open(ctx, userStoreKey, path, "", UserSchema)
}

func (m *Manager) open(ctx context.Context, key, path, template string, schema Schema) (*Store, error) {
	if s := m.cached(key); s != nil {
		return s, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		if s := m.cached(key); s != nil {
			return s, nil
		}
		// Detached from the first caller's context: other callers share
		// this initialization and must not see it cancelled under them.
		s, err := m.create(context.WithoutCancel(ctx), path, template, schema)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.stores[key] = s
		m.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			m.logger.Error("store open failed", "path", path, "error", res.Err)
			return nil, model.NewError(model.ErrCodeStoreInitializationFailure, "store.open",
				fmt.Sprintf("cannot open %s", filepath.Base(path)), res.Err)
		}
		return res.Val.(*Store), nil
	}
}

func (m *Manager) cached(key string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[key]
}

func (m *Manager) create(ctx context.Context, path, template string, schema Schema) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if template != "" {
		if err := copyTemplate(template, path); err != nil {
			return nil, err
		}
	}
	s, err := OpenSchema(ctx, path, schema)
	if err != nil {
		return nil, err
	}
	m.opened.Add(1)
	m.logger.Debug("store opened", "path", path, "schema", schema.Name)
	return s, nil
}

// copyTemplate copies template to dst byte-for-byte when dst is missing
// and template exists.
func copyTemplate(template, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dst, err)
	}

	src, err := os.Open(template)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer src.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy template: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copy template: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copy template: %w", err)
	}
	return nil
}

// Opened counts physical store opens since the Manager was created.
func (m *Manager) Opened() int64 {
	return m.opened.Load()
}

// ProjectDir is the directory holding project store files.
func (m *Manager) ProjectDir() string {
	return filepath.Join(m.cfg.DataDir, projectsDir)
}

// ProjectPath is the store file of project.
func (m *Manager) ProjectPath(project string) string {
	return filepath.Join(m.ProjectDir(), m.FileName(project))
}

// FileName is "<app>-<project>.sqlite" with both parts sanitized and
// length-capped.
func (m *Manager) FileName(project string) string {
	return m.appPrefix() + "-" + truncate(SanitizeFileName(project), projectMax) + fileExt
}

func (m *Manager) appPrefix() string {
	return truncate(SanitizeFileName(m.cfg.AppName), appNameMax)
}

// ProjectFile is a project store found on disk.
type ProjectFile struct {
	ID       string
	FileName string
	Path     string
}

// List returns the project stores present on disk, sorted by id.
func (m *Manager) List() ([]ProjectFile, error) {
	entries, err := os.ReadDir(m.ProjectDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	prefix := m.appPrefix() + "-"
	var out []ProjectFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		out = append(out, ProjectFile{
			ID:       strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExt),
			FileName: name,
			Path:     filepath.Join(m.ProjectDir(), name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove closes the project's store if open and deletes its main file
// and write-ahead side files. Files are matched by the project id.
func (m *Manager) Remove(projectID string) error {
	key := m.ProjectPath(projectID)
	m.mu.Lock()
	s := m.stores[key]
	delete(m.stores, key)
	m.mu.Unlock()
	m.group.Forget(key)

	if s != nil {
		if err := s.Close(); err != nil {
			m.logger.Warn("close before remove failed", "project", projectID, "error", err)
		}
	}

	entries, err := os.ReadDir(m.ProjectDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove project: %w", err)
	}

	prefix := m.appPrefix() + "-"
	id := truncate(SanitizeFileName(projectID), projectMax)
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		for _, suffix := range sideFileSuffixes {
			if rest == id+suffix {
				if err := os.Remove(filepath.Join(m.ProjectDir(), name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				break
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove project: %w", errors.Join(errs...))
	}
	m.logger.Info("project removed", "project", projectID)
	return nil
}

// Close closes every open store.
func (m *Manager) Close() error {
	m.mu.Lock()
	stores := m.stores
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	illegalChars  = regexp.MustCompile(`[/?<>\\:*|"\x00-\x1f\x80-\x9f]`)
	reservedNames = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	dotsOnly      = regexp.MustCompile(`^\.+$`)
	trailing      = regexp.MustCompile(`[. ]+$`)
)

// SanitizeFileName strips characters and names that are not portable in
// file names.
func SanitizeFileName(name string) string {
	name = illegalChars.ReplaceAllString(name, "")
	name = dotsOnly.ReplaceAllString(name, "")
	name = reservedNames.ReplaceAllString(name, "")
	name = trailing.ReplaceAllString(name, "")
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
