// Package node implements the sensor-node side of the capture protocol:
// the fixed-rate sample scheduler, the countdown/record/transmit state
// machine, and the cooperative loop that services one host link.
//
// The machine holds no timers and never sleeps; it is advanced by explicit
// Advance(now) calls and keeps deadlines as stored timestamps, so the same
// code runs under a real clock or a test clock.
package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/openglyph/gesturelink/internal/gunit"
	"github.com/openglyph/gesturelink/internal/link"
	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/sensor"
	"github.com/openglyph/gesturelink/internal/wire"
)

// ErrSensorFault marks a sensor read failure mid-capture. It is fatal to
// the node process; the machine signals StatusError and resets to Idle
// before returning it.
var ErrSensorFault = errors.New("node: sensor fault")

// State enumerates the capture state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingReady
	StateCountdown
	StateRecording
	StateTransmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateCountdown:
		return "countdown"
	case StateRecording:
		return "recording"
	case StateTransmitting:
		return "transmitting"
	}
	return "unknown"
}

// Config carries the per-capture timing and transfer agreement.
type Config struct {
	Plan          wire.TransferPlan
	SamplePeriod  time.Duration
	CountdownStep time.Duration
	// Drain is how long the machine lingers in Transmitting after the last
	// chunk so link-layer queues empty before the completion status.
	Drain time.Duration
}

// Machine is one sensor node's capture state machine. It owns the capture
// buffer exclusively; slots are written once, in index order, and the
// buffer is replaced wholesale on each new capture.
type Machine struct {
	cfg    Config
	sensor sensor.Sensor
	link   link.NodeLink

	state        State
	countLeft    int
	stepDeadline time.Time
	clock        *SampleClock
	buf          []wire.Sample
	nextChunk    int
	chunks       []wire.Chunk
	drainUntil   time.Time
}

// NewMachine validates the plan and returns a machine in Idle.
func NewMachine(cfg Config, s sensor.Sensor, l link.NodeLink) (*Machine, error) {
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	if cfg.SamplePeriod <= 0 {
		return nil, fmt.Errorf("node: sample period %v", cfg.SamplePeriod)
	}
	if cfg.CountdownStep <= 0 {
		return nil, fmt.Errorf("node: countdown step %v", cfg.CountdownStep)
	}
	return &Machine{cfg: cfg, sensor: s, link: l, state: StateIdle}, nil
}

// State returns the current machine state.
func (m *Machine) State() State { return m.state }

// Recorded returns how many samples the current capture has filled.
func (m *Machine) Recorded() int { return len(m.buf) }

// Begin marks the link-level connection established: the machine moves to
// AwaitingReady and tells the host it is ready. No command is involved.
func (m *Machine) Begin() error {
	if m.state != StateIdle {
		return nil
	}
	if err := m.link.NotifyStatus(wire.StatusReady); err != nil {
		return err
	}
	m.state = StateAwaitingReady
	return nil
}

// HandleCommand processes one host command at time now. A start received
// while a capture is in flight is ignored with a Busy write-back; it never
// queues, restarts, or touches the in-progress buffer.
func (m *Machine) HandleCommand(c wire.Command, now time.Time) error {
	if c != wire.CmdStartCapture {
		return nil
	}
	if m.state != StateAwaitingReady && m.state != StateIdle {
		monitoring.Logf("node: start ignored in state %v", m.state)
		return m.link.Ack(wire.CmdBusy)
	}

	m.buf = make([]wire.Sample, 0, m.cfg.Plan.Capacity)
	m.chunks = nil
	m.nextChunk = 0
	m.clock = NewSampleClock(m.cfg.SamplePeriod, m.cfg.Plan.Capacity)

	m.state = StateCountdown
	m.countLeft = 3
	m.stepDeadline = now.Add(m.cfg.CountdownStep)
	if err := m.link.Ack(wire.CmdBusy); err != nil {
		return m.reset(err)
	}
	if err := m.link.NotifyStatus(wire.StatusCountdown3); err != nil {
		return m.reset(err)
	}
	return nil
}

// Advance moves the machine forward to time now. It performs at most a
// bounded amount of work per call (overdue sample slots, one outgoing
// chunk) so a single control loop can keep servicing the link.
func (m *Machine) Advance(now time.Time) error {
	switch m.state {
	case StateCountdown:
		return m.advanceCountdown(now)
	case StateRecording:
		return m.advanceRecording(now)
	case StateTransmitting:
		return m.advanceTransmitting(now)
	}
	return nil
}

func (m *Machine) advanceCountdown(now time.Time) error {
	if now.Before(m.stepDeadline) {
		return nil
	}
	m.countLeft--
	m.stepDeadline = m.stepDeadline.Add(m.cfg.CountdownStep)

	if m.countLeft > 0 {
		status := wire.StatusCountdown3 + wire.Status(3-m.countLeft)
		if err := m.link.NotifyStatus(status); err != nil {
			return m.reset(err)
		}
		return nil
	}

	// Final delay elapsed: recording begins now.
	m.state = StateRecording
	m.clock.Start(now)
	if err := m.link.NotifyStatus(wire.StatusCapturing); err != nil {
		return m.reset(err)
	}
	return nil
}

func (m *Machine) advanceRecording(now time.Time) error {
	for m.clock.Due(now) {
		r, err := m.sensor.Read()
		if err != nil {
			// Visible error signal, then halt; no auto-recovery.
			if nerr := m.link.NotifyStatus(wire.StatusError); nerr != nil {
				monitoring.Logf("node: error status lost: %v", nerr)
			}
			m.resetState()
			return fmt.Errorf("%w: %v", ErrSensorFault, err)
		}
		m.clock.Take()
		m.buf = append(m.buf, wire.Sample{
			X: gunit.ToMilliG(r.X),
			Y: gunit.ToMilliG(r.Y),
			Z: gunit.ToMilliG(r.Z),
		})
	}

	// Termination is index-driven: capacity samples recorded, regardless
	// of how long the wall clock took.
	if len(m.buf) < m.cfg.Plan.Capacity {
		return nil
	}

	chunks, err := wire.EncodeChunks(m.buf, m.cfg.Plan)
	if err != nil {
		return m.reset(err)
	}
	m.chunks = chunks
	m.nextChunk = 0
	m.state = StateTransmitting
	// Start-of-transmission signal; the status vocabulary has no dedicated
	// transmit code, so the node re-notifies Capturing (harmless to the
	// host, which keys transfer progress off data notifications).
	if err := m.link.NotifyStatus(wire.StatusCapturing); err != nil {
		return m.reset(err)
	}
	return nil
}

func (m *Machine) advanceTransmitting(now time.Time) error {
	if m.nextChunk < len(m.chunks) {
		payload, err := m.chunks[m.nextChunk].Encode()
		if err != nil {
			return m.reset(err)
		}
		if err := m.link.NotifyData(payload); err != nil {
			return m.reset(err)
		}
		m.nextChunk++
		if m.nextChunk == len(m.chunks) {
			m.drainUntil = now.Add(m.cfg.Drain)
		}
		return nil
	}

	if now.Before(m.drainUntil) {
		return nil
	}

	if err := m.link.NotifyStatus(wire.StatusComplete); err != nil {
		return m.reset(err)
	}
	if err := m.link.Ack(wire.CmdIdle); err != nil {
		return m.reset(err)
	}
	m.resetState()
	return nil
}

// reset abandons the capture and returns err. Used for link failures,
// where no completion must be emitted; the host detects the loss itself.
func (m *Machine) reset(err error) error {
	m.resetState()
	return err
}

func (m *Machine) resetState() {
	m.state = StateIdle
	m.buf = nil
	m.chunks = nil
	m.nextChunk = 0
	m.clock = nil
}
