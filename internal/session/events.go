package session

import (
	"time"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/spin"
)

// EventType names what changed.
type EventType string

const (
	EventFrame    EventType = "frame"
	EventCatalog  EventType = "catalog"
	EventAnalysis EventType = "analysis"
	// EventSnapshot carries the whole state; streams open with one.
	EventSnapshot EventType = "snapshot"
)

// Event is broadcast to subscribers after every state change.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	Frame    *spin.Frame    `json:"frame,omitempty"`
	Catalog  *menu.Catalog  `json:"catalog,omitempty"`
	Analysis *AnalysisState `json:"analysis,omitempty"`
	State    *State         `json:"state,omitempty"`
}

// Subscribe registers a listener with a buffer of size buf. Events that do
// not fit are dropped for that listener. The returned func unsubscribes
// and closes the channel.
func (s *Session) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan Event, buf)

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) broadcast(ev Event) {
	ev.Time = s.now()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
