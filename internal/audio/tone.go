package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	SampleRate   = 44100
	ToneDuration = 50 * time.Millisecond
	MinFreq      = 600.0
	MaxFreq      = 800.0

	startGain = 0.05
	endGain   = 0.001
)

// Tone renders a triangle wave at freq Hz as signed 16-bit little-endian
// mono PCM. The gain decays exponentially from 0.05 to 0.001 over d.
func Tone(freq float64, d time.Duration) []byte {
	n := int(float64(SampleRate) * d.Seconds())
	if n <= 0 {
		return nil
	}
	buf := make([]byte, 2*n)
	ratio := endGain / startGain
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		progress := float64(i) / float64(n)
		gain := startGain * math.Pow(ratio, progress)

		// Triangle in [-1,1]: 2*|2*(phase - floor(phase + 0.5))| - 1
		phase := t * freq
		tri := 2*math.Abs(2*(phase-math.Floor(phase+0.5))) - 1

		v := int16(math.Round(tri * gain * math.MaxInt16))
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}
