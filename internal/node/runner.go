package node

import (
	"context"
	"time"

	"github.com/openglyph/gesturelink/internal/link"
	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/timeutil"
)

// DefaultPoll bounds how long the runner sleeps between machine advances
// while a capture is in flight. It must stay well under the sample period.
const DefaultPoll = 2 * time.Millisecond

// Runner drives a Machine against one host link until the context ends,
// the link drops, or the machine reports a fatal error.
type Runner struct {
	machine *Machine
	link    link.NodeLink
	clock   timeutil.Clock
	poll    time.Duration
}

func NewRunner(m *Machine, l link.NodeLink, clock timeutil.Clock) *Runner {
	return &Runner{machine: m, link: l, clock: clock, poll: DefaultPoll}
}

// Run services the link. Commands are applied as they arrive and the
// machine is advanced on a short poll tick; a disconnect mid-capture
// abandons the capture silently, as the peer cannot hear anything anyway.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.machine.Begin(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.link.Done():
			monitoring.Logf("node: link closed in state %v", r.machine.State())
			r.machine.resetState()
			return nil
		case c := <-r.link.Commands():
			if err := r.machine.HandleCommand(c, r.clock.Now()); err != nil {
				return err
			}
		case <-r.clock.After(r.poll):
		}
		if err := r.machine.Advance(r.clock.Now()); err != nil {
			return err
		}
		// Re-arm after a finished capture so the next start is accepted
		// without a reconnect.
		if r.machine.State() == StateIdle {
			if err := r.machine.Begin(); err != nil {
				return err
			}
		}
	}
}
