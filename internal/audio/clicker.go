// Package audio produces the short tick played on every spin step. It is
// strictly best effort: a missing device or player never surfaces as a spin
// failure.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/mattn/go-isatty"
)

// Mode selects how ticks are rendered.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModePCM  Mode = "pcm"
	ModeBell Mode = "bell"
	ModeOff  Mode = "off"
)

// ParseMode maps a config value to a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModePCM, ModeBell, ModeOff:
		return m, nil
	}
	return "", fmt.Errorf("unknown audio mode %q (want auto, pcm, bell or off)", s)
}

// ErrDisabled is returned by Click once the sink failed to open or the
// clicker was closed.
var ErrDisabled = errors.New("audio disabled")

const queueSize = 8

// sink consumes rendered ticks.
type sink interface {
	write(tone []byte) error
	close() error
}

// Clicker lazily opens its sink on the first Click and plays ticks from a
// small queue on a background goroutine.
type Clicker struct {
	mode Mode
	bell io.Writer
	// bellTTY reports whether bell reaches a terminal. Auto mode only rings
	// a terminal; a daemon's redirected stderr gets silence instead.
	bellTTY bool
	open    func(Mode) (sink, error)
	openPCM func() (sink, error)

	mu       sync.Mutex
	sink     sink
	queue    chan []byte
	done     chan struct{}
	disabled bool
}

// New returns a Clicker. Nothing is opened until the first Click.
func New(mode Mode) *Clicker {
	c := &Clicker{mode: mode, bell: os.Stderr, bellTTY: isTerminal(os.Stderr)}
	c.open = c.openSink
	c.openPCM = func() (sink, error) { return openPCM() }
	return c
}

// Click enqueues one tick. When the queue is full the tick is dropped.
func (c *Clicker) Click() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disabled {
		return ErrDisabled
	}
	if c.sink == nil {
		s, err := c.open(c.mode)
		if err != nil {
			c.disabled = true
			slog.Debug("tick sound unavailable", "mode", c.mode, "error", err)
			return fmt.Errorf("opening %s sink: %w", c.mode, err)
		}
		c.sink = s
		c.queue = make(chan []byte, queueSize)
		c.done = make(chan struct{})
		go c.play(c.sink, c.queue, c.done)
	}

	select {
	case c.queue <- Tone(MinFreq+rand.Float64()*(MaxFreq-MinFreq), ToneDuration):
	default:
	}
	return nil
}

func (c *Clicker) play(s sink, q <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for tone := range q {
		if err := s.write(tone); err != nil {
			slog.Debug("tick write failed", "error", err)
		}
	}
}

// Close stops playback and releases the sink. Further clicks return
// ErrDisabled.
func (c *Clicker) Close() error {
	c.mu.Lock()
	s, q, done := c.sink, c.queue, c.done
	c.sink, c.queue, c.done = nil, nil, nil
	c.disabled = true
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	close(q)
	<-done
	return s.close()
}

func (c *Clicker) openSink(mode Mode) (sink, error) {
	switch mode {
	case ModeOff:
		return nopSink{}, nil
	case ModeBell:
		return bellSink{w: c.bell}, nil
	case ModePCM:
		return c.openPCM()
	default:
		s, err := c.openPCM()
		if err == nil {
			return s, nil
		}
		if c.bellTTY {
			return bellSink{w: c.bell}, nil
		}
		slog.Debug("no audio player and stderr is not a terminal, ticks are silent", "error", err)
		return nopSink{}, nil
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopSink struct{}

func (nopSink) write([]byte) error { return nil }
func (nopSink) close() error       { return nil }

type bellSink struct{ w io.Writer }

func (b bellSink) write([]byte) error {
	_, err := b.w.Write([]byte{'\a'})
	return err
}

func (bellSink) close() error { return nil }

// pcmSink streams raw samples to a long-running aplay process.
type pcmSink struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func openPCM() (*pcmSink, error) {
	path, err := exec.LookPath("aplay")
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, "-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(SampleRate))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &pcmSink{cmd: cmd, stdin: stdin}, nil
}

func (p *pcmSink) write(tone []byte) error {
	_, err := p.stdin.Write(tone)
	return err
}

func (p *pcmSink) close() error {
	_ = p.stdin.Close()
	return p.cmd.Wait()
}
