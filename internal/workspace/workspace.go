// Package workspace ties the project catalog to the single open session and
// guarantees that switching projects never loses or misroutes a write.
package workspace

import (
	"context"
	"sync"
	"time"

	"nodeflow/internal/autosave"
	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"
	"nodeflow/internal/graph"
	"nodeflow/internal/history"
	"nodeflow/internal/images"
	"nodeflow/internal/project"
	"nodeflow/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config wires a Workspace.
type Config struct {
	KV     storage.KV
	Images images.Store

	Namespace string
	User      string

	Debounce     time.Duration
	HistoryLimit int

	Clock        autosave.Clock
	Logger       *zap.Logger
	Now          func() time.Time
	NewID        graph.IDGenerator
	NewImageID   func() string
	NewProjectID func() string
	// OnSaveState, if set, receives every save indicator change of the open
	// session.
	OnSaveState func(projectID string, state autosave.State)
}

// Workspace owns the project catalog and at most one open Session.
type Workspace struct {
	cfg     Config
	catalog *project.Catalog
	logger  *zap.Logger

	mu      sync.Mutex
	current *Session
}

// New returns a workspace. KV is required; Images defaults to memory.
func New(cfg Config) (*Workspace, error) {
	if cfg.KV == nil {
		return nil, appErrors.New(appErrors.CodeStorageUnavailable, "workspace: storage is required", nil)
	}
	if cfg.Images == nil {
		cfg.Images = images.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewImageID == nil {
		cfg.NewImageID = uuid.NewString
	}
	catalog := project.NewCatalog(cfg.KV, project.Options{
		Namespace: cfg.Namespace,
		User:      cfg.User,
		Now:       cfg.Now,
		NewID:     cfg.NewProjectID,
		Logger:    cfg.Logger,
	})
	return &Workspace{cfg: cfg, catalog: catalog, logger: cfg.Logger}, nil
}

// Catalog exposes the project catalog.
func (w *Workspace) Catalog() *project.Catalog {
	return w.catalog
}

// Projects lists the projects, newest first.
func (w *Workspace) Projects(ctx context.Context) ([]domain.Project, error) {
	return w.catalog.List(ctx)
}

func (w *Workspace) CreateProject(ctx context.Context, title string) (domain.Project, error) {
	return w.catalog.Create(ctx, title)
}

// RenameProject renames a project, including the open one.
func (w *Workspace) RenameProject(ctx context.Context, id, title string) (domain.Project, error) {
	p, err := w.catalog.Rename(ctx, id, title)
	if err != nil {
		return domain.Project{}, err
	}
	w.mu.Lock()
	if w.current != nil && w.current.project.ID == id {
		w.current.project = p
	}
	w.mu.Unlock()
	return p, nil
}

// DeleteProject removes the project, its graph and its image blobs. If the
// project is open, its session is dropped without writing.
func (w *Workspace) DeleteProject(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.catalog.Get(ctx, id); err != nil {
		return err
	}

	blobs := make(map[string]struct{})
	if w.current != nil && w.current.project.ID == id {
		w.current.abandon()
		for _, img := range w.current.imageIDs() {
			blobs[img] = struct{}{}
		}
		w.current = nil
	}
	persisted, err := w.loadGraph(ctx, id)
	if err != nil {
		return err
	}
	for img := range persisted.ImageIDs() {
		blobs[img] = struct{}{}
	}

	if err := w.catalog.Delete(ctx, id); err != nil {
		return err
	}
	for img := range blobs {
		if err := w.cfg.Images.Delete(ctx, img); err != nil {
			w.logger.Warn("delete image failed", zap.String("image", img), zap.Error(err))
		}
	}
	w.logger.Debug("project deleted", zap.String("project", id), zap.Int("images", len(blobs)))
	return nil
}

// Open closes the current session (flushing unsaved work to its own key)
// and opens the project with a fresh history and pipeline. The loaded board
// seeds the history, so an edit that changes nothing records no entry.
func (w *Workspace) Open(ctx context.Context, id string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.closeCurrentLocked(ctx); err != nil {
		return nil, err
	}
	g, err := w.loadGraph(ctx, id)
	if err != nil {
		return nil, err
	}

	store := graph.NewStore(graph.WithIDGenerator(w.cfg.NewID))
	store.Load(g)
	h := history.New(w.cfg.HistoryLimit)
	h.Seed(store.Snapshot())
	logger := w.logger.With(zap.String("project", p.ID))
	s := &Session{
		project:    p,
		store:      store,
		history:    h,
		images:     w.cfg.Images,
		newImageID: w.cfg.NewImageID,
		logger:     logger,
		touched:    make(map[string]struct{}),
	}
	var onChange func(autosave.State)
	if w.cfg.OnSaveState != nil {
		notify := w.cfg.OnSaveState
		onChange = func(state autosave.State) { notify(p.ID, state) }
	}
	s.pipeline = autosave.New(autosave.Config{
		Writer:   w.cfg.KV,
		Key:      w.catalog.GraphKey(p.ID),
		Source:   store.Snapshot,
		Delay:    w.cfg.Debounce,
		Clock:    w.cfg.Clock,
		Logger:   logger,
		OnChange: onChange,
	})
	w.current = s
	nodes, edges := store.Len()
	logger.Debug("project opened", zap.Int("nodes", nodes), zap.Int("edges", edges))
	return s, nil
}

// Current returns the open session, or nil.
func (w *Workspace) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// CloseSession flushes and closes the open session, if any.
func (w *Workspace) CloseSession(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeCurrentLocked(ctx)
}

// Close is CloseSession for shutdown.
func (w *Workspace) Close(ctx context.Context) error {
	return w.CloseSession(ctx)
}

func (w *Workspace) closeCurrentLocked(ctx context.Context) error {
	if w.current == nil {
		return nil
	}
	s := w.current
	w.current = nil
	if err := s.Close(ctx); err != nil {
		// The outgoing key keeps its last good value; the switch still
		// proceeds so the user is never stuck on a failing project.
		w.logger.Warn("close session", zap.String("project", s.project.ID), zap.Error(err))
	}
	return nil
}

// loadGraph reads and decodes a project's graph. Unreadable content is the
// empty graph.
func (w *Workspace) loadGraph(ctx context.Context, id string) (domain.Graph, error) {
	raw, ok, err := w.cfg.KV.Get(ctx, w.catalog.GraphKey(id))
	if err != nil {
		return domain.Graph{}, appErrors.New(appErrors.CodeStorageUnavailable, "read graph of "+id, err)
	}
	if !ok {
		return domain.Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}}, nil
	}
	g, err := storage.DecodeGraph(raw)
	if err != nil {
		w.logger.Debug("graph unreadable, starting empty", zap.String("project", id), zap.Error(err))
	}
	return g, nil
}
