package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/openglyph/gesturelink/internal/wire"
)

// FaultAction controls what a loopback fault hook does with one delivery.
type FaultAction int

const (
	// Deliver passes the notification through unchanged.
	Deliver FaultAction = iota
	// Drop loses the notification, as a lossy link would.
	Drop
	// Duplicate delivers the notification twice.
	Duplicate
)

// Loopback is an in-memory link pair used by tests and the in-process
// simulator. Both ends share one set of channels; Close on either end
// drops the whole link, mirroring a wireless disconnect.
type Loopback struct {
	cmd    chan wire.Command
	ack    chan wire.Command
	status chan wire.Status
	data   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// DataFault, if set before traffic starts, is consulted for every data
	// notification with its 0-based delivery index. Status and commands are
	// always delivered.
	DataFault func(i int, payload []byte) FaultAction

	dataCount int
	faultMu   sync.Mutex
}

// NewLoopback creates a connected in-memory link. Buffers are sized so a
// full default capture (42 chunks) never blocks the node.
func NewLoopback() *Loopback {
	return &Loopback{
		cmd:    make(chan wire.Command, 4),
		ack:    make(chan wire.Command, 4),
		status: make(chan wire.Status, 16),
		data:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// HostEnd returns the host's side of the pair.
func (l *Loopback) HostEnd() HostLink { return (*loopbackHost)(l) }

// NodeEnd returns the node's side of the pair.
func (l *Loopback) NodeEnd() NodeLink { return (*loopbackNode)(l) }

// Disconnect simulates the radio dropping out from under both sides.
func (l *Loopback) Disconnect() {
	l.closeOnce.Do(func() { close(l.done) })
}

type loopbackHost Loopback

func (h *loopbackHost) SendCommand(ctx context.Context, c wire.Command) error {
	select {
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case h.cmd <- c:
		return nil
	}
}

func (h *loopbackHost) Status() <-chan wire.Status { return h.status }
func (h *loopbackHost) Data() <-chan []byte        { return h.data }
func (h *loopbackHost) Acks() <-chan wire.Command  { return h.ack }
func (h *loopbackHost) Done() <-chan struct{}      { return h.done }

func (h *loopbackHost) Close() error {
	(*Loopback)(h).Disconnect()
	return nil
}

type loopbackNode Loopback

func (n *loopbackNode) Commands() <-chan wire.Command { return n.cmd }
func (n *loopbackNode) Done() <-chan struct{}         { return n.done }

func (n *loopbackNode) NotifyStatus(s wire.Status) error {
	select {
	case <-n.done:
		return ErrClosed
	case n.status <- s:
		return nil
	}
}

func (n *loopbackNode) NotifyData(p []byte) error {
	if len(p) > wire.MaxNotificationBytes {
		return fmt.Errorf("link: %d byte payload exceeds notification budget", len(p))
	}
	l := (*Loopback)(n)
	l.faultMu.Lock()
	i := l.dataCount
	l.dataCount++
	action := Deliver
	if l.DataFault != nil {
		action = l.DataFault(i, p)
	}
	l.faultMu.Unlock()

	deliveries := 0
	switch action {
	case Drop:
		// Lost on the air; the sender never learns.
		return nil
	case Duplicate:
		deliveries = 2
	default:
		deliveries = 1
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	for k := 0; k < deliveries; k++ {
		select {
		case <-n.done:
			return ErrClosed
		case n.data <- buf:
		}
	}
	return nil
}

func (n *loopbackNode) Ack(c wire.Command) error {
	select {
	case <-n.done:
		return ErrClosed
	case n.ack <- c:
		return nil
	}
}

func (n *loopbackNode) Close() error {
	(*Loopback)(n).Disconnect()
	return nil
}
