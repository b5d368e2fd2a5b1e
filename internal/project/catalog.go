// Package project manages the list of boards owned by a user scope.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"
	"nodeflow/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type wireProject struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
}

// Options configures a Catalog.
type Options struct {
	Namespace string
	User      string
	Now       func() time.Time
	NewID     func() string
	Logger    *zap.Logger
}

// Catalog reads and writes the project list under ProjectsKey.
type Catalog struct {
	kv        storage.KV
	namespace string
	user      string
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger

	mu sync.Mutex
}

// NewCatalog returns a catalog for the configured user scope.
func NewCatalog(kv storage.KV, opts Options) *Catalog {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Catalog{
		kv:        kv,
		namespace: opts.Namespace,
		user:      storage.Scope(opts.User),
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger,
	}
}

// Key returns the storage key of the project list.
func (c *Catalog) Key() string {
	return storage.ProjectsKey(c.namespace, c.user)
}

// GraphKey returns the storage key of a project's graph.
func (c *Catalog) GraphKey(projectID string) string {
	return storage.GraphKey(c.namespace, c.user, projectID)
}

// List returns the projects, newest first.
func (c *Catalog) List(ctx context.Context) ([]domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Get returns one project by id.
func (c *Catalog) Get(ctx context.Context, id string) (domain.Project, error) {
	projects, err := c.List(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, notFound(id)
}

// Create adds a project with the trimmed title at the front of the list.
func (c *Catalog) Create(ctx context.Context, title string) (domain.Project, error) {
	name := strings.TrimSpace(title)
	if name == "" {
		return domain.Project{}, appErrors.New(appErrors.CodeInvalidProject, "project title is required", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	projects, err := c.load(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{ID: c.newID(), Title: name, CreatedAt: c.now().UnixMilli()}
	projects = append([]domain.Project{p}, projects...)
	if err := c.save(ctx, projects); err != nil {
		return domain.Project{}, err
	}
	c.logger.Debug("project created", zap.String("project", p.ID))
	return p, nil
}

// Rename changes a project's title.
func (c *Catalog) Rename(ctx context.Context, id, title string) (domain.Project, error) {
	name := strings.TrimSpace(title)
	if name == "" {
		return domain.Project{}, appErrors.New(appErrors.CodeInvalidProject, "project title is required", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	projects, err := c.load(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for i := range projects {
		if projects[i].ID == id {
			projects[i].Title = name
			if err := c.save(ctx, projects); err != nil {
				return domain.Project{}, err
			}
			return projects[i], nil
		}
	}
	return domain.Project{}, notFound(id)
}

// Delete removes the project entry and its persisted graph.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	projects, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := projects[:0]
	found := false
	for _, p := range projects {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return notFound(id)
	}
	if err := c.save(ctx, kept); err != nil {
		return err
	}
	if err := c.kv.Delete(ctx, c.GraphKey(id)); err != nil {
		return appErrors.New(appErrors.CodePersistFailed, "delete graph of "+id, err)
	}
	c.logger.Debug("project deleted", zap.String("project", id))
	return nil
}

func (c *Catalog) load(ctx context.Context) ([]domain.Project, error) {
	raw, ok, err := c.kv.Get(ctx, c.Key())
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageUnavailable, "read project list", err)
	}
	projects := []domain.Project{}
	if !ok || strings.TrimSpace(raw) == "" {
		return projects, nil
	}
	var wire []wireProject
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		c.logger.Debug("project list unreadable, treating as empty", zap.Error(err))
		return projects, nil
	}
	for _, w := range wire {
		if w.ID == "" {
			continue
		}
		title := strings.TrimSpace(w.Title)
		if title == "" {
			title = "Untitled"
		}
		projects = append(projects, domain.Project{ID: w.ID, Title: title, CreatedAt: w.CreatedAt})
	}
	return projects, nil
}

func (c *Catalog) save(ctx context.Context, projects []domain.Project) error {
	wire := make([]wireProject, 0, len(projects))
	for _, p := range projects {
		wire = append(wire, wireProject{ID: p.ID, Title: p.Title, CreatedAt: p.CreatedAt})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode project list: %w", err)
	}
	if err := c.kv.Set(ctx, c.Key(), string(data)); err != nil {
		return appErrors.New(appErrors.CodePersistFailed, "write project list", err)
	}
	return nil
}

func notFound(id string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("project %s not found", id), nil)
}
