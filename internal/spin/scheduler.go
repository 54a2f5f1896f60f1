package spin

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs f after d on some other goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// ManualScheduler is a deterministic Scheduler driven by Advance. Callbacks
// run synchronously on the goroutine calling Advance, in due-time order.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	queue []pending
}

type pending struct {
	at  time.Duration
	seq int
	f   func()
}

// NewManualScheduler returns a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.queue = append(m.queue, pending{at: m.now + d, seq: m.seq, f: f})
}

// Now returns the virtual time elapsed since creation.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of callbacks not yet run.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Advance moves virtual time forward by d, running every callback that
// becomes due, including ones scheduled by callbacks during the advance.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.queue, func(i, j int) bool {
			if m.queue[i].at != m.queue[j].at {
				return m.queue[i].at < m.queue[j].at
			}
			return m.queue[i].seq < m.queue[j].seq
		})
		if len(m.queue) == 0 || m.queue[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.queue[0]
		m.queue = m.queue[1:]
		m.now = next.at
		m.mu.Unlock()

		next.f()
	}
}

// RunAll advances until no callbacks remain.
func (m *ManualScheduler) RunAll() {
	for m.Pending() > 0 {
		m.mu.Lock()
		var latest time.Duration
		for _, p := range m.queue {
			if p.at > latest {
				latest = p.at
			}
		}
		d := latest - m.now
		m.mu.Unlock()
		m.Advance(d)
	}
}
