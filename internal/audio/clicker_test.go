package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTone_LengthAndGain(t *testing.T) {
	buf := Tone(700, ToneDuration)
	want := 2 * SampleRate * 50 / 1000
	if len(buf) != want {
		t.Fatalf("len = %d, want %d", len(buf), want)
	}

	startGain := 0.05
	limit := int16(startGain*32767) + 1
	var peakHead, peakTail int16
	n := len(buf) / 2
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(buf[2*i:]))
		if v < 0 {
			v = -v
		}
		if v > limit {
			t.Fatalf("sample %d = %d exceeds start gain", i, v)
		}
		if i < n/10 && v > peakHead {
			peakHead = v
		}
		if i > n-n/10 && v > peakTail {
			peakTail = v
		}
	}
	if peakTail >= peakHead {
		t.Errorf("tail peak %d should be below head peak %d", peakTail, peakHead)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "auto", "pcm", "bell", "off"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMode("loud"); err == nil {
		t.Error("ParseMode(loud) should fail")
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestClicker_Bell(t *testing.T) {
	var out syncBuffer
	c := New(ModeBell)
	c.bell = &out

	if err := c.Click(); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if out.String() != "\a" {
		t.Errorf("bell output = %q, want BEL", out.String())
	}
	if err := c.Click(); !errors.Is(err, ErrDisabled) {
		t.Errorf("Click after Close = %v, want ErrDisabled", err)
	}
}

func TestClicker_OpensLazilyOnce(t *testing.T) {
	opens := 0
	c := New(ModeOff)
	c.open = func(Mode) (sink, error) {
		opens++
		return nopSink{}, nil
	}
	if opens != 0 {
		t.Fatal("sink opened before first click")
	}
	for i := 0; i < 3; i++ {
		if err := c.Click(); err != nil {
			t.Fatalf("Click: %v", err)
		}
	}
	if opens != 1 {
		t.Errorf("opens = %d, want 1", opens)
	}
	c.Close()
}

func TestClicker_OpenFailureDisables(t *testing.T) {
	opens := 0
	c := New(ModePCM)
	c.open = func(Mode) (sink, error) {
		opens++
		return nil, errors.New("no device")
	}
	if err := c.Click(); err == nil {
		t.Fatal("first Click should report the open failure")
	}
	if err := c.Click(); !errors.Is(err, ErrDisabled) {
		t.Errorf("second Click = %v, want ErrDisabled", err)
	}
	if opens != 1 {
		t.Errorf("opens = %d, want 1", opens)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on never-opened clicker: %v", err)
	}
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	writes  int
}

func (b *blockingSink) write([]byte) error {
	<-b.release
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()
	return nil
}

func (b *blockingSink) close() error { return nil }

func TestClicker_DropsWhenQueueFull(t *testing.T) {
	bs := &blockingSink{release: make(chan struct{})}
	c := New(ModePCM)
	c.open = func(Mode) (sink, error) { return bs, nil }

	total := queueSize * 4
	for i := 0; i < total; i++ {
		if err := c.Click(); err != nil {
			t.Fatalf("Click %d: %v", i, err)
		}
	}
	close(bs.release)
	c.Close()

	// At most one tone in flight plus a full queue.
	if bs.writes > queueSize+1 {
		t.Errorf("writes = %d, want <= %d", bs.writes, queueSize+1)
	}
	if bs.writes == 0 {
		t.Error("no ticks played")
	}
}

func TestClicker_AutoFallback(t *testing.T) {
	noPlayer := func() (sink, error) { return nil, errors.New("aplay not found") }

	tests := []struct {
		name     string
		terminal bool
		want     string
	}{
		{"terminal rings the bell", true, "\a"},
		{"redirected stderr stays silent", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out syncBuffer
			c := New(ModeAuto)
			c.bell = &out
			c.bellTTY = tt.terminal
			c.openPCM = noPlayer

			for i := 0; i < 3; i++ {
				if err := c.Click(); err != nil {
					t.Fatalf("Click: %v", err)
				}
			}
			if err := c.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if got := out.String(); got != strings.Repeat(tt.want, 3) {
				t.Errorf("output = %q", got)
			}
		})
	}
}

func TestClicker_ExplicitBellIgnoresTerminal(t *testing.T) {
	var out syncBuffer
	c := New(ModeBell)
	c.bell = &out
	c.bellTTY = false

	c.Click()
	c.Close()
	if out.String() != "\a" {
		t.Errorf("bell mode output = %q", out.String())
	}
}
