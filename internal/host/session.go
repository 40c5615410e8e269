package host

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openglyph/gesturelink/internal/link"
	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/timeutil"
	"github.com/openglyph/gesturelink/internal/wire"
)

var (
	// ErrTimeout reports a capture that did not finish within the session
	// deadline.
	ErrTimeout = errors.New("host: capture timed out")
	// ErrDisconnected reports the link dropping mid-session.
	ErrDisconnected = errors.New("host: link disconnected")
	// ErrSessionBusy reports a Run call while another capture is in flight
	// on the same session.
	ErrSessionBusy = errors.New("host: capture already in progress")
	// ErrNodeFault reports the node signalling its error status.
	ErrNodeFault = errors.New("host: node reported a fault")
)

// Metadata identifies one stored capture.
type Metadata struct {
	ID          uuid.UUID `json:"id"`
	Participant string    `json:"participant,omitempty"`
	Label       string    `json:"label,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Capture is one completed recording in engineering units. Samples[i] is
// {x, y, z} acceleration in g for sample index i.
type Capture struct {
	Metadata Metadata     `json:"metadata"`
	Samples  [][3]float64 `json:"samples"`
}

// CaptureConsumer receives completed captures, for live display or
// downstream processing.
type CaptureConsumer interface {
	Consume(ctx context.Context, c *Capture) error
}

// CaptureStore persists completed captures.
type CaptureStore interface {
	Save(ctx context.Context, c *Capture) error
	Load(ctx context.Context, id uuid.UUID) (*Capture, error)
}

// Options label one capture run.
type Options struct {
	Participant string
	Label       string
}

// Session drives captures over one host link. A session survives across
// captures; each Run uses a fresh reassembler, so a failed capture leaves
// no residue in the next one.
type Session struct {
	link    link.HostLink
	plan    wire.TransferPlan
	clock   timeutil.Clock
	timeout time.Duration

	// OnStatus, if set, observes every node status as it arrives.
	OnStatus func(wire.Status)
	// OnProgress, if set, observes transfer progress as (received, total)
	// distinct chunks.
	OnProgress func(received, total int)

	running atomic.Bool
}

// NewSession validates the plan and returns a session. timeout bounds one
// whole capture, countdown through transfer.
func NewSession(l link.HostLink, plan wire.TransferPlan, clock timeutil.Clock, timeout time.Duration) (*Session, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("host: session timeout %v", timeout)
	}
	return &Session{link: l, plan: plan, clock: clock, timeout: timeout}, nil
}

// Run requests one capture and blocks until it completes, fails, or times
// out. All link events are consumed in this single goroutine; callbacks
// run inline and must not block.
func (s *Session) Run(ctx context.Context, opts Options) (*Capture, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	defer s.running.Store(false)

	reasm, err := NewReassembler(s.plan)
	if err != nil {
		return nil, err
	}

	// Events buffered since the previous run belong to an abandoned
	// capture; nothing is shared between two sessions.
	s.drainLink()

	if err := s.link.SendCommand(ctx, wire.CmdStartCapture); err != nil {
		return nil, err
	}
	startedAt := s.clock.Now()
	deadline := s.clock.After(s.timeout)
	completeSeen := false

	for {
		if completeSeen && reasm.Complete() {
			samples, err := reasm.Materialize()
			if err != nil {
				return nil, err
			}
			if reasm.Duplicates() > 0 {
				monitoring.Logf("host: capture complete with %d duplicate deliveries", reasm.Duplicates())
			}
			return &Capture{
				Metadata: Metadata{
					ID:          uuid.New(),
					Participant: opts.Participant,
					Label:       opts.Label,
					CapturedAt:  startedAt,
				},
				Samples: samples,
			}, nil
		}

		// Statuses take priority over data so a countdown observed on an
		// ordered status channel discards strays before any chunk that
		// followed it is slotted in.
		select {
		case st := <-s.link.Status():
			if fail := s.handleStatus(st, reasm, &completeSeen); fail != nil {
				return nil, fail
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.link.Done():
			return nil, ErrDisconnected
		case <-deadline:
			if missing := reasm.Missing(); len(missing) > 0 {
				return nil, fmt.Errorf("%w: missing chunks %v", ErrTimeout, missing)
			}
			return nil, ErrTimeout
		case st := <-s.link.Status():
			if fail := s.handleStatus(st, reasm, &completeSeen); fail != nil {
				return nil, fail
			}
		case c := <-s.link.Acks():
			monitoring.Logf("host: node acknowledged %v", c)
		case p := <-s.link.Data():
			// Malformed chunks are link noise, not session failures.
			if err := reasm.Add(p); err != nil {
				monitoring.Logf("host: chunk rejected: %v", err)
				continue
			}
			if s.OnProgress != nil {
				s.OnProgress(reasm.Received(), s.plan.TotalChunks())
			}
		}
	}
}

// handleStatus applies one node status to the run's state. A countdown
// means the node has not transmitted anything for this capture yet, so
// whatever is already slotted came from an earlier, abandoned one.
func (s *Session) handleStatus(st wire.Status, reasm *Reassembler, completeSeen *bool) error {
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
	switch st {
	case wire.StatusCountdown3, wire.StatusCountdown2, wire.StatusCountdown1:
		if reasm.Received() > 0 {
			monitoring.Logf("host: countdown with %d stale chunks slotted, starting over", reasm.Received())
			reasm.Reset()
		}
	case wire.StatusError:
		return ErrNodeFault
	case wire.StatusComplete:
		*completeSeen = true
	}
	return nil
}

// drainLink discards every buffered link event without blocking.
func (s *Session) drainLink() {
	for {
		select {
		case <-s.link.Status():
		case <-s.link.Data():
		case <-s.link.Acks():
		default:
			return
		}
	}
}
