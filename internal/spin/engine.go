// Package spin implements the randomized multi-step selection that makes a
// category's wheel appear to spin, slow down and land on one item.
package spin

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kalambet/nutriwheel/internal/menu"
)

const (
	DefaultSteps     = 25
	DefaultBaseDelay = 50 * time.Millisecond
	DefaultGrowth    = 1.2
	// DefaultSlowFrom is the fraction of steps after which delays grow.
	DefaultSlowFrom = 0.7

	// SpinAllStagger is the start offset between categories in SpinAll.
	SpinAllStagger = 300 * time.Millisecond
)

// Frame is one published draw of a spin.
type Frame struct {
	Category menu.Category `json:"category"`
	Item     menu.MenuItem `json:"item"`
	Step     int           `json:"step"`
	Total    int           `json:"total"`
	Final    bool          `json:"final"`
}

// Source returns the current item list for a category. It is consulted on
// every step so a spin always draws from the live catalog.
type Source func(cat menu.Category) []menu.MenuItem

// Sink receives every frame, intermediate and final. Implementations must not
// block for long; they run on scheduler goroutines.
type Sink func(f Frame)

// Clicker produces the per-step tick sound. Failures are ignored.
type Clicker interface {
	Click() error
}

// Engine runs independent spin chains per category.
type Engine struct {
	source    Source
	sink      Sink
	sched     Scheduler
	clicker   Clicker
	intn      func(n int) int
	steps     int
	baseDelay time.Duration
	growth    float64
	slowFrom  float64

	mu     sync.Mutex
	runs   map[menu.Category]*run
	closed bool
}

// Landing resolves when one spin chain ends. Everyone who starts or joins
// the same chain shares its Landing, and a later chain gets a new one.
type Landing struct {
	done   chan struct{}
	frame  Frame
	landed bool
}

// Done is closed when the chain has ended.
func (l *Landing) Done() <-chan struct{} { return l.done }

// Frame returns the final frame once Done is closed. ok is false when the
// final step had nothing to draw.
func (l *Landing) Frame() (f Frame, ok bool) {
	<-l.done
	return l.frame, l.landed
}

// Option customizes an Engine.
type Option func(*Engine)

// WithScheduler replaces the wall-clock scheduler (tests use a manual one).
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

// WithClicker sets the tick sound producer.
func WithClicker(c Clicker) Option { return func(e *Engine) { e.clicker = c } }

// WithRand sets the uniform index generator; intn(n) must return [0,n).
func WithRand(intn func(n int) int) Option { return func(e *Engine) { e.intn = intn } }

// WithSteps overrides the number of draws per spin. Values < 1 are ignored.
func WithSteps(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.steps = n
		}
	}
}

// WithBaseDelay overrides the initial inter-step delay. Values <= 0 are ignored.
func WithBaseDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.baseDelay = d
		}
	}
}

// New creates an Engine drawing from src and publishing to sink.
func New(src Source, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		source:    src,
		sink:      sink,
		sched:     realScheduler{},
		intn:      rand.IntN,
		steps:     DefaultSteps,
		baseDelay: DefaultBaseDelay,
		growth:    DefaultGrowth,
		slowFrom:  DefaultSlowFrom,
		runs:      make(map[menu.Category]*run),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Steps returns the number of draws per spin.
func (e *Engine) Steps() int { return e.steps }

// Spin starts a spin for cat. It returns false without side effects when the
// category list is empty, the category is already spinning, or the engine is
// closed. The first draw is published before Spin returns; the rest follow
// on the scheduler.
func (e *Engine) Spin(cat menu.Category) bool {
	_, started := e.start(cat, false)
	return started
}

// SpinOrJoin returns the Landing of cat's chain, starting one when none is
// in flight. It returns nil when the category is empty or the engine is
// closed and nothing is in flight.
func (e *Engine) SpinOrJoin(cat menu.Category) *Landing {
	l, _ := e.start(cat, true)
	return l
}

func (e *Engine) start(cat menu.Category, join bool) (*Landing, bool) {
	if len(e.source(cat)) == 0 {
		return e.joinable(cat, join), false
	}

	e.mu.Lock()
	if cur := e.runs[cat]; cur != nil || e.closed {
		e.mu.Unlock()
		if join && cur != nil {
			return cur.landing, false
		}
		return nil, false
	}
	r := &run{e: e, cat: cat, delay: e.baseDelay, landing: &Landing{done: make(chan struct{})}}
	e.runs[cat] = r
	e.mu.Unlock()

	r.step()
	return r.landing, true
}

func (e *Engine) joinable(cat menu.Category, join bool) *Landing {
	if !join {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.runs[cat]; r != nil {
		return r.landing
	}
	return nil
}

// SpinAll starts every category with a staggered start offset. Completion
// is not synchronized.
func (e *Engine) SpinAll() {
	for i, cat := range menu.Categories {
		if i == 0 {
			e.Spin(cat)
			continue
		}
		cat := cat
		e.sched.AfterFunc(time.Duration(i)*SpinAllStagger, func() { e.Spin(cat) })
	}
}

// IsSpinning reports whether cat has a chain in flight.
func (e *Engine) IsSpinning(cat menu.Category) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs[cat] != nil
}

// Spinning returns a snapshot of the in-flight flags for all categories.
func (e *Engine) Spinning() map[menu.Category]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[menu.Category]bool, len(menu.Categories))
	for _, c := range menu.Categories {
		out[c] = e.runs[c] != nil
	}
	return out
}

// Close stops new spins from starting. Chains already in flight finish.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// run is one spin chain for a single category.
type run struct {
	e       *Engine
	cat     menu.Category
	count   int
	delay   time.Duration
	landing *Landing
}

func (r *run) step() {
	e := r.e
	r.count++
	final := r.count >= e.steps

	var f Frame
	drawn := false
	if items := e.source(r.cat); len(items) > 0 {
		f = Frame{Category: r.cat, Item: items[e.intn(len(items))], Step: r.count, Total: e.steps, Final: final}
		drawn = true
		e.sink(f)
	}
	e.click()

	if final {
		r.landing.frame, r.landing.landed = f, drawn
		e.mu.Lock()
		delete(e.runs, r.cat)
		e.mu.Unlock()
		close(r.landing.done)
		return
	}

	if float64(r.count) > float64(e.steps)*e.slowFrom {
		r.delay = grow(r.delay, e.growth)
	}
	e.sched.AfterFunc(r.delay, r.step)
}

func (e *Engine) click() {
	if e.clicker == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Debug("tick sound panicked", "panic", p)
		}
	}()
	_ = e.clicker.Click()
}

// Delays returns the wait scheduled after each of the first n-1 steps.
func Delays(n int, base time.Duration, growth, slowFrom float64) []time.Duration {
	if n < 2 {
		return nil
	}
	out := make([]time.Duration, 0, n-1)
	d := base
	for count := 1; count < n; count++ {
		if float64(count) > float64(n)*slowFrom {
			d = grow(d, growth)
		}
		out = append(out, d)
	}
	return out
}

func grow(d time.Duration, factor float64) time.Duration {
	return time.Duration(math.Round(float64(d) * factor))
}
