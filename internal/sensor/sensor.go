// Package sensor provides the accelerometer capability the capture state
// machine samples from: synthetic sources for tests and the simulator, and
// an MPU-9250 driver for real hardware.
package sensor

import (
	"errors"
	"math"
	"sync"
)

// Reading is one 3-axis acceleration sample in g.
type Reading struct {
	X, Y, Z float64
}

// Sensor reads the current acceleration. Implementations must be safe to
// call from the node's single control loop; they are not required to be
// goroutine safe.
type Sensor interface {
	Read() (Reading, error)
}

// ErrExhausted is returned by a Scripted sensor once its readings run out.
var ErrExhausted = errors.New("sensor: scripted readings exhausted")

// Scripted replays a fixed series of readings, then fails with
// ErrExhausted. Tests use it to feed exact values through a capture and to
// provoke sensor faults at a chosen sample index.
type Scripted struct {
	mu       sync.Mutex
	readings []Reading
	next     int
}

func NewScripted(readings []Reading) *Scripted {
	return &Scripted{readings: readings}
}

func (s *Scripted) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.readings) {
		return Reading{}, ErrExhausted
	}
	r := s.readings[s.next]
	s.next++
	return r, nil
}

// Synthetic generates a smooth, bounded waveform resembling a wrist
// gesture: phase-shifted sinusoids per axis with gravity on Z. It never
// fails and never runs out, which suits the node simulator.
type Synthetic struct {
	mu sync.Mutex
	t  int
}

func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

func (s *Synthetic) Read() (Reading, error) {
	s.mu.Lock()
	i := s.t
	s.t++
	s.mu.Unlock()

	phase := float64(i) * 2 * math.Pi / 50
	return Reading{
		X: 0.6 * math.Sin(phase),
		Y: 0.4 * math.Sin(1.7*phase+0.5),
		Z: 1.0 + 0.2*math.Cos(phase),
	}, nil
}
