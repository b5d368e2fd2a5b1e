// Package ui implements the Nodeflow terminal interface: a project list and
// a board editor for the open project.
package ui

import (
	"context"
	"strings"
	"time"

	"nodeflow/internal/domain"
	"nodeflow/internal/workspace"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const (
	minPaneWidth  = 24
	minListHeight = 5
	// moveStep is how far a shifted arrow moves a card, in board units.
	moveStep = 20
)

type screen int

const (
	screenProjects screen = iota
	screenBoard
)

type focusArea int

const (
	focusNodes focusArea = iota
	focusEdges
)

type promptKind int

const (
	promptNone promptKind = iota
	promptNewProject
	promptRenameProject
	promptDeleteProject
	promptTitle
	promptNotes
	promptColor
	promptImagePath
)

// Config configures the UI application.
type Config struct {
	Workspace    *workspace.Workspace
	OutputFormat string
	Version      string
	Logger       *zap.Logger
	// Clipboard overrides the system clipboard. Used by tests.
	Clipboard func(string) error
	// Now overrides the clock used for toasts.
	Now func() time.Time
}

// App implements the Bubble Tea model for Nodeflow.
type App struct {
	ws           *workspace.Workspace
	session      *workspace.Session
	keys         KeyMap
	logger       *zap.Logger
	outputFormat string
	version      string
	copyText     func(string) error
	now          func() time.Time

	width  int
	height int
	screen screen

	projects      []domain.Project
	projectCursor int

	nodeCursor int
	edgeCursor int
	focus      focusArea
	showMap    bool
	// linkFrom is the source node id while link mode is active.
	linkFrom string

	prompt       promptKind
	promptTarget string
	input        textinput.Model
	notes        textarea.Model

	toast      string
	toastError bool
	toastUntil time.Time

	markdownWidth  int
	renderMarkdown func(string) string
}

// NewApp builds the model and loads the project list.
func NewApp(cfg Config) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clipboard == nil {
		cfg.Clipboard = clipboard.WriteAll
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Prompt = "› "
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	m := &App{
		ws:           cfg.Workspace,
		keys:         DefaultKeyMap(),
		logger:       cfg.Logger,
		outputFormat: cfg.OutputFormat,
		version:      cfg.Version,
		copyText:     cfg.Clipboard,
		now:          cfg.Now,
		width:        100,
		height:       30,
		input:        ti,
		notes:        ta,
	}
	if err := m.reloadProjects(); err != nil {
		return nil, err
	}
	return m, nil
}

// Init implements tea.Model.
func (m *App) Init() tea.Cmd {
	return tickCmd()
}

// Session returns the open session, if any.
func (m *App) Session() *workspace.Session {
	return m.session
}

func (m *App) reloadProjects() error {
	projects, err := m.ws.Projects(context.Background())
	if err != nil {
		return err
	}
	m.projects = projects
	m.projectCursor = clampDimension(m.projectCursor, 0, len(projects)-1)
	return nil
}

func (m *App) selectedProject() (domain.Project, bool) {
	if m.projectCursor < 0 || m.projectCursor >= len(m.projects) {
		return domain.Project{}, false
	}
	return m.projects[m.projectCursor], true
}

func (m *App) selectedNode() (domain.Node, bool) {
	if m.session == nil {
		return domain.Node{}, false
	}
	nodes := m.session.Nodes()
	if m.nodeCursor < 0 || m.nodeCursor >= len(nodes) {
		return domain.Node{}, false
	}
	return nodes[m.nodeCursor], true
}

func (m *App) selectedEdge() (domain.Edge, bool) {
	if m.session == nil {
		return domain.Edge{}, false
	}
	edges := m.session.Edges()
	if m.edgeCursor < 0 || m.edgeCursor >= len(edges) {
		return domain.Edge{}, false
	}
	return edges[m.edgeCursor], true
}

// selectNode moves the node cursor onto id.
func (m *App) selectNode(id string) {
	for i, n := range m.session.Nodes() {
		if n.ID == id {
			m.nodeCursor = i
			return
		}
	}
}

func (m *App) clampCursors() {
	if m.session == nil {
		m.nodeCursor, m.edgeCursor = 0, 0
		return
	}
	nodes, edges := m.session.Nodes(), m.session.Edges()
	m.nodeCursor = clampDimension(m.nodeCursor, 0, len(nodes)-1)
	m.edgeCursor = clampDimension(m.edgeCursor, 0, len(edges)-1)
}

func (m *App) showToast(msg string, isError bool) {
	m.toast = msg
	m.toastError = isError
	m.toastUntil = m.now().Add(toastDuration)
}

func (m *App) reportError(action string, err error) {
	m.logger.Debug(action+" failed", zap.Error(err))
	m.showToast(action+": "+shortError(err), true)
}

func shortError(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx > 0 && idx+2 < len(msg) && len(msg) > 60 {
		msg = msg[idx+2:]
	}
	return truncate(msg, 60)
}

// markdown returns a renderer for the current detail width, rebuilding it
// when the width changes.
func (m *App) markdown(width int) func(string) string {
	if m.renderMarkdown == nil || m.markdownWidth != width {
		m.renderMarkdown = buildMarkdownRenderer(m.outputFormat, width)
		m.markdownWidth = width
	}
	return m.renderMarkdown
}
