// Package autosave coalesces rapid board edits into a single debounced write
// and tracks whether the in-memory board matches what is persisted.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"
	"nodeflow/internal/storage"

	"go.uber.org/zap"
)

// DefaultDelay is the debounce window between the last edit and the write.
const DefaultDelay = 700 * time.Millisecond

// writeTimeout bounds a timer-driven write. Teardown writes use the caller's
// context instead.
const writeTimeout = 10 * time.Second

// ErrClosed is returned by SaveNow after Close.
var ErrClosed = errors.New("autosave: pipeline closed")

// Writer is the persistence side the pipeline needs.
type Writer interface {
	Set(ctx context.Context, key, value string) error
}

// Config wires a pipeline to one project.
type Config struct {
	Writer Writer
	// Key is the project's graph storage key.
	Key string
	// Source returns the current board. It is called at write time.
	Source func() domain.Graph
	Delay  time.Duration
	Clock  Clock
	Logger *zap.Logger
	// OnChange, if set, is called after every state transition, outside the
	// pipeline lock. Calls never overlap and each receives the state current
	// when it runs, so the last call always carries the latest state. It
	// must not call back into the pipeline.
	OnChange func(State)
}

// Pipeline owns the debounce timer and the dirty/saving flags of the open
// project.
type Pipeline struct {
	writer   Writer
	key      string
	source   func() domain.Graph
	delay    time.Duration
	clock    Clock
	logger   *zap.Logger
	onChange func(State)

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	dirty  bool
	saving bool
	closed bool
	writes int

	// writeMu keeps writes to the key strictly sequential.
	writeMu sync.Mutex
	// notifyMu orders OnChange calls; each one reports the state at call time.
	notifyMu sync.Mutex
}

// New creates a pipeline in the Saved state.
func New(cfg Config) *Pipeline {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Source == nil {
		cfg.Source = func() domain.Graph { return domain.Graph{} }
	}
	return &Pipeline{
		writer:   cfg.Writer,
		key:      cfg.Key,
		source:   cfg.Source,
		delay:    cfg.Delay,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With(zap.String("key", cfg.Key)),
		onChange: cfg.OnChange,
	}
}

// MarkDirty flags the board as changed and (re)starts the debounce timer.
// Only the last of a burst of calls results in a write.
func (p *Pipeline) MarkDirty() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.dirty = true
	p.saving = true
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.timer = p.clock.AfterFunc(p.delay, func() { p.fire(gen) })
	p.mu.Unlock()

	p.notify()
}

// SaveNow cancels any pending timer and writes the current board right away.
func (p *Pipeline) SaveNow(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	gen := p.beginImmediateLocked()
	p.mu.Unlock()

	p.notify()
	return p.write(ctx, gen)
}

// Close flushes unsaved work once and stops the pipeline. Later MarkDirty
// calls are ignored and no timer can fire afterwards.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	needsFlush := p.dirty || p.saving
	var gen uint64
	if needsFlush {
		gen = p.beginImmediateLocked()
	} else {
		p.stopTimerLocked()
	}
	p.closed = true
	p.mu.Unlock()

	if !needsFlush {
		return nil
	}
	return p.write(ctx, gen)
}

// Abandon stops the pipeline without writing. Used when the project itself
// is being deleted.
func (p *Pipeline) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.gen++
	p.closed = true
}

// State returns the current save indicator.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Label returns the indicator text: Saved, Unsaved or Saving.
func (p *Pipeline) Label() string {
	return p.State().String()
}

// Dirty reports whether the board has changes not yet persisted.
func (p *Pipeline) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Writes returns how many successful writes the pipeline performed.
func (p *Pipeline) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Key returns the storage key the pipeline writes to.
func (p *Pipeline) Key() string {
	return p.key
}

func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.closed {
		// Superseded by a newer schedule, an immediate save, or teardown.
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = p.write(ctx, gen)
}

// beginImmediateLocked cancels the pending timer and claims a generation for
// a write that starts now.
func (p *Pipeline) beginImmediateLocked() uint64 {
	p.stopTimerLocked()
	p.gen++
	p.saving = true
	return p.gen
}

func (p *Pipeline) write(ctx context.Context, gen uint64) error {
	p.writeMu.Lock()
	err := p.persist(ctx)
	p.writeMu.Unlock()

	p.mu.Lock()
	if err == nil {
		p.writes++
	}
	current := gen == p.gen
	if current {
		// A newer edit arriving mid-write keeps its own dirty/saving flags.
		p.dirty = err != nil
		p.saving = false
		p.timer = nil
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("autosave write failed", zap.Error(err), zap.Uint64("generation", gen))
	} else {
		p.logger.Debug("autosave write complete", zap.Uint64("generation", gen))
	}
	if current {
		p.notify()
	}
	return err
}

func (p *Pipeline) persist(ctx context.Context) error {
	if p.writer == nil {
		return appErrors.New(appErrors.CodeStorageUnavailable, "autosave: no writer configured", nil)
	}
	payload, err := storage.EncodeGraph(p.source())
	if err != nil {
		return err
	}
	if err := p.writer.Set(ctx, p.key, payload); err != nil {
		return appErrors.New(appErrors.CodePersistFailed, "write graph "+p.key, err)
	}
	return nil
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) stateLocked() State {
	switch {
	case p.saving:
		return StateSaving
	case p.dirty:
		return StateUnsaved
	default:
		return StateSaved
	}
}

func (p *Pipeline) notify() {
	if p.onChange == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.onChange(p.State())
}
