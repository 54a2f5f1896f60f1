// Package session holds the live menu state shared by every view: the
// current catalog, the per-category selection and the latest analysis. It
// owns the spin engine and fans state changes out to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/spin"
)

var (
	ErrIncompleteSelection = errors.New("selection is incomplete")
	ErrBusy                = errors.New("operation already in progress")
	ErrAdvisorUnavailable  = errors.New("advisor unavailable")
	ErrSelectionChanged    = errors.New("selection changed while the analysis was running")
	ErrEmptyCategory       = errors.New("category has no items")
	ErrUnknownItem         = errors.New("item is not in the current catalog")
	ErrNotSettled          = errors.New("spin ended without a selection")
)

// Advisor produces catalogs and critiques. *advisor.Advisor satisfies it.
type Advisor interface {
	GenerateCatalog(ctx context.Context) (menu.Catalog, error)
	Critique(ctx context.Context, p profile.Profile, meal menu.Meal, drinks []menu.MenuItem) (menu.Analysis, error)
}

// ProfileSource supplies the profile used for critiques.
type ProfileSource interface {
	GetProfile() (profile.Profile, error)
}

type AnalysisStatus string

const (
	AnalysisIdle    AnalysisStatus = "idle"
	AnalysisPending AnalysisStatus = "pending"
	AnalysisReady   AnalysisStatus = "ready"
	AnalysisFailed  AnalysisStatus = "failed"
)

// AnalysisState is the critique slot. Result is set only when Status is
// ready; Error only when it is failed.
type AnalysisState struct {
	Status AnalysisStatus `json:"status" yaml:"status"`
	Result *menu.Analysis `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Ready wraps a finished critique.
func Ready(a menu.Analysis) AnalysisState {
	return AnalysisState{Status: AnalysisReady, Result: &a}
}

// State is a point-in-time copy of the session.
type State struct {
	Catalog      menu.Catalog           `json:"catalog"`
	Selection    menu.Selection         `json:"selection"`
	Analysis     AnalysisState          `json:"analysis"`
	Spinning     map[menu.Category]bool `json:"spinning"`
	Regenerating bool                   `json:"regenerating"`
	Revision     uint64                 `json:"revision"`
}

// Session is safe for concurrent use.
type Session struct {
	advisor  Advisor
	profiles ProfileSource
	engine   *spin.Engine
	now      func() time.Time

	mu           sync.Mutex
	catalog      menu.Catalog
	selection    menu.Selection
	revision     uint64
	analysis     AnalysisState
	analyzeSeq   uint64
	regenerating bool
	waiting      map[menu.Category]int

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// Option customizes a Session.
type Option func(*config)

type config struct {
	catalog  menu.Catalog
	spinOpts []spin.Option
	now      func() time.Time
}

// WithCatalog sets the starting catalog. The default catalog is used otherwise.
func WithCatalog(c menu.Catalog) Option { return func(cfg *config) { cfg.catalog = c } }

// WithSpinOptions passes options to the underlying spin engine.
func WithSpinOptions(opts ...spin.Option) Option {
	return func(cfg *config) { cfg.spinOpts = append(cfg.spinOpts, opts...) }
}

// WithClock sets the event timestamp source.
func WithClock(now func() time.Time) Option { return func(cfg *config) { cfg.now = now } }

// New creates a session. adv may be nil, in which case regeneration and
// analysis fail with ErrAdvisorUnavailable. profiles may be nil; the
// default profile is used then.
func New(adv Advisor, profiles ProfileSource, opts ...Option) *Session {
	cfg := config{catalog: menu.DefaultCatalog(), now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Session{
		advisor:  adv,
		profiles: profiles,
		now:      cfg.now,
		catalog:  cfg.catalog.Clone(),
		analysis: AnalysisState{Status: AnalysisIdle},
		waiting:  make(map[menu.Category]int),
		subs:     make(map[int]chan Event),
	}
	s.engine = spin.New(s.items, s.publish, cfg.spinOpts...)
	return s
}

func (s *Session) items(cat menu.Category) []menu.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Items(cat)
}

// Engine exposes the spin engine, mainly for its step count.
func (s *Session) Engine() *spin.Engine { return s.engine }

// Spin starts a spin for cat. See spin.Engine.Spin.
func (s *Session) Spin(cat menu.Category) bool { return s.engine.Spin(cat) }

// SpinAll starts all categories with staggered offsets.
func (s *Session) SpinAll() { s.engine.SpinAll() }

// SpinAndWait spins cat, or joins a spin already in flight, and blocks
// until that spin lands. It returns the final frame.
func (s *Session) SpinAndWait(ctx context.Context, cat menu.Category) (spin.Frame, error) {
	l := s.engine.SpinOrJoin(cat)
	if l == nil {
		if len(s.items(cat)) == 0 {
			return spin.Frame{}, fmt.Errorf("spinning %s: %w", cat, ErrEmptyCategory)
		}
		return spin.Frame{}, fmt.Errorf("spinning %s: %w", cat, ErrNotSettled)
	}

	s.mu.Lock()
	s.waiting[cat]++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.waiting[cat]--
		s.mu.Unlock()
	}()

	select {
	case <-l.Done():
	case <-ctx.Done():
		return spin.Frame{}, ctx.Err()
	}
	f, ok := l.Frame()
	if !ok || !s.inCatalog(f) {
		return spin.Frame{}, fmt.Errorf("spinning %s: %w", cat, ErrNotSettled)
	}
	return f, nil
}

func (s *Session) inCatalog(f spin.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Contains(f.Category, f.Item)
}

// publish is the spin engine sink.
func (s *Session) publish(f spin.Frame) {
	s.mu.Lock()
	if !s.catalog.Contains(f.Category, f.Item) {
		s.mu.Unlock()
		slog.Debug("dropping frame from stale catalog", "category", f.Category, "item", f.Item.ID)
		return
	}
	cleared := s.setSelectionLocked(f.Category, f.Item)
	s.mu.Unlock()

	s.broadcast(Event{Type: EventFrame, Frame: &f})
	if cleared {
		s.broadcast(Event{Type: EventAnalysis, Analysis: &AnalysisState{Status: AnalysisIdle}})
	}
}

// setSelectionLocked stores item, bumps the revision and clears the
// analysis. It reports whether an analysis (or failure marker) was cleared.
func (s *Session) setSelectionLocked(cat menu.Category, item menu.MenuItem) bool {
	s.selection = s.selection.With(cat, item)
	s.revision++
	cleared := s.analysis.Status != AnalysisIdle
	s.analysis = AnalysisState{Status: AnalysisIdle}
	return cleared
}

// Select sets cat to the catalog item with the given id.
func (s *Session) Select(cat menu.Category, id string) (menu.MenuItem, error) {
	s.mu.Lock()
	item, ok := s.catalog.Lookup(cat, id)
	if !ok {
		s.mu.Unlock()
		return menu.MenuItem{}, fmt.Errorf("selecting %s %q: %w", cat, id, ErrUnknownItem)
	}
	cleared := s.setSelectionLocked(cat, item)
	total := s.engine.Steps()
	s.mu.Unlock()

	s.broadcast(Event{Type: EventFrame, Frame: &spin.Frame{Category: cat, Item: item, Step: total, Total: total, Final: true}})
	if cleared {
		s.broadcast(Event{Type: EventAnalysis, Analysis: &AnalysisState{Status: AnalysisIdle}})
	}
	return item, nil
}

// SetCatalog validates c and replaces the current catalog with it.
func (s *Session) SetCatalog(c menu.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.replaceCatalog(c)
	return nil
}

func (s *Session) replaceCatalog(c menu.Catalog) {
	c = c.Clone()
	s.mu.Lock()
	s.catalog = c
	s.selection = menu.Selection{}
	s.revision++
	s.analysis = AnalysisState{Status: AnalysisIdle}
	s.mu.Unlock()

	slog.Info("catalog replaced", "version", c.Version, "items", c.Size())
	s.broadcast(Event{Type: EventCatalog, Catalog: &c})
	s.broadcast(Event{Type: EventAnalysis, Analysis: &AnalysisState{Status: AnalysisIdle}})
}

// Regenerate asks the advisor for a new catalog and installs it. Only one
// regeneration runs at a time.
func (s *Session) Regenerate(ctx context.Context) (menu.Catalog, error) {
	if s.advisor == nil {
		return menu.Catalog{}, fmt.Errorf("regenerating catalog: %w", ErrAdvisorUnavailable)
	}

	s.mu.Lock()
	if s.regenerating {
		s.mu.Unlock()
		return menu.Catalog{}, fmt.Errorf("regenerating catalog: %w", ErrBusy)
	}
	s.regenerating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.regenerating = false
		s.mu.Unlock()
	}()

	c, err := s.advisor.GenerateCatalog(ctx)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		slog.Warn("catalog regeneration failed", "error", err)
		return menu.Catalog{}, fmt.Errorf("%w: %w", ErrAdvisorUnavailable, err)
	}
	s.replaceCatalog(c)
	return c, nil
}

// Analyze requests a critique of the current selection. A result that
// arrives after the selection changed is discarded and ErrSelectionChanged
// is returned.
func (s *Session) Analyze(ctx context.Context) (menu.Analysis, error) {
	s.mu.Lock()
	meal, ok := s.selection.Meal()
	if !ok {
		s.mu.Unlock()
		return menu.Analysis{}, ErrIncompleteSelection
	}
	if s.advisor == nil {
		s.mu.Unlock()
		return menu.Analysis{}, fmt.Errorf("analyzing meal: %w", ErrAdvisorUnavailable)
	}
	rev := s.revision
	s.analyzeSeq++
	seq := s.analyzeSeq
	drinks := s.catalog.Items(menu.Drink)
	s.analysis = AnalysisState{Status: AnalysisPending}
	s.mu.Unlock()
	s.broadcast(Event{Type: EventAnalysis, Analysis: &AnalysisState{Status: AnalysisPending}})

	p := s.profile()
	result, err := s.advisor.Critique(ctx, p, meal, drinks)

	s.mu.Lock()
	if s.revision != rev {
		s.mu.Unlock()
		slog.Debug("discarding analysis for an old selection", "revision", rev)
		return menu.Analysis{}, ErrSelectionChanged
	}
	if seq != s.analyzeSeq {
		// A newer request for the same selection owns the slot.
		s.mu.Unlock()
		if err != nil {
			return menu.Analysis{}, fmt.Errorf("%w: %w", ErrAdvisorUnavailable, err)
		}
		return result, nil
	}
	var st AnalysisState
	if err != nil {
		st = AnalysisState{Status: AnalysisFailed, Error: err.Error()}
	} else {
		st = Ready(result)
	}
	s.analysis = st
	s.mu.Unlock()

	s.broadcast(Event{Type: EventAnalysis, Analysis: &st})
	if err != nil {
		slog.Warn("meal analysis failed", "error", err)
		return menu.Analysis{}, fmt.Errorf("%w: %w", ErrAdvisorUnavailable, err)
	}
	return result, nil
}

func (s *Session) profile() profile.Profile {
	if s.profiles == nil {
		return profile.Default()
	}
	p, err := s.profiles.GetProfile()
	if err != nil {
		slog.Warn("loading profile failed, using default", "error", err)
		return profile.Default()
	}
	return p
}

// Catalog returns the current catalog.
func (s *Session) Catalog() menu.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Clone()
}

// Selection returns the current selection.
func (s *Session) Selection() menu.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Analysis returns the current critique slot.
func (s *Session) Analysis() AnalysisState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// Snapshot returns a consistent copy of the whole state.
func (s *Session) Snapshot() State {
	spinning := s.engine.Spinning()
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Catalog:      s.catalog.Clone(),
		Selection:    s.selection,
		Analysis:     s.analysis,
		Spinning:     spinning,
		Regenerating: s.regenerating,
		Revision:     s.revision,
	}
}

// Close stops new spins and closes every subscriber channel.
func (s *Session) Close() {
	s.engine.Close()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
