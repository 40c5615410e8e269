package link

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/wire"
)

// stream carries the three logical channels over one byte stream using the
// wire frame codec. Each side writes only its own direction, so the channel
// byte alone routes received frames: command frames arriving at the host are
// node write-backs, command frames arriving at the node are host commands.
type stream struct {
	rwc io.ReadWriteCloser

	writeMu sync.Mutex

	cmd    chan wire.Command
	ack    chan wire.Command
	status chan wire.Status
	data   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newStream(rwc io.ReadWriteCloser) *stream {
	s := &stream{
		rwc:    rwc,
		cmd:    make(chan wire.Command, 4),
		ack:    make(chan wire.Command, 4),
		status: make(chan wire.Status, 16),
		data:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// readLoop drains frames until the stream errors, then drops the link.
// Malformed frames never surface here; the frame reader discards them.
func (s *stream) readLoop() {
	defer s.drop()
	fr := wire.NewFrameReader(s.rwc)
	for {
		ch, payload, err := fr.Next()
		if err != nil {
			if err != io.EOF {
				monitoring.Logf("link: stream read: %v", err)
			}
			return
		}
		switch ch {
		case wire.ChannelCommand:
			if len(payload) != 1 {
				continue
			}
			c := wire.Command(payload[0])
			if !c.Valid() {
				continue
			}
			// Route by direction: host commands vs node write-backs share
			// the channel byte, and each side only ever receives its peer's.
			select {
			case s.cmd <- c:
			case <-s.done:
				return
			}
		case wire.ChannelStatus:
			if len(payload) != 1 || !wire.Status(payload[0]).Valid() {
				continue
			}
			select {
			case s.status <- wire.Status(payload[0]):
			case <-s.done:
				return
			}
		case wire.ChannelData:
			select {
			case s.data <- payload:
			case <-s.done:
				return
			}
		}
	}
}

func (s *stream) writeFrame(ch wire.Channel, payload []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.rwc.Write(wire.EncodeFrame(ch, payload)); err != nil {
		s.drop()
		return fmt.Errorf("link: stream write: %w", err)
	}
	return nil
}

func (s *stream) drop() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.rwc.Close()
	})
}

// StreamHostLink runs the host side of the protocol over rwc (a serial
// port, a socket, anything byte-stream shaped). The link owns rwc and
// closes it when the link drops.
type StreamHostLink struct {
	*stream
}

func NewStreamHostLink(rwc io.ReadWriteCloser) *StreamHostLink {
	return &StreamHostLink{stream: newStream(rwc)}
}

func (h *StreamHostLink) SendCommand(ctx context.Context, c wire.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.writeFrame(wire.ChannelCommand, []byte{byte(c)})
}

func (h *StreamHostLink) Status() <-chan wire.Status { return h.status }
func (h *StreamHostLink) Data() <-chan []byte        { return h.data }

// Acks delivers the node's command write-backs; on a stream transport they
// arrive as command frames.
func (h *StreamHostLink) Acks() <-chan wire.Command { return h.cmd }

func (h *StreamHostLink) Done() <-chan struct{} { return h.done }

func (h *StreamHostLink) Close() error {
	h.drop()
	return nil
}

// StreamNodeLink runs the node side of the protocol over rwc.
type StreamNodeLink struct {
	*stream
}

func NewStreamNodeLink(rwc io.ReadWriteCloser) *StreamNodeLink {
	return &StreamNodeLink{stream: newStream(rwc)}
}

func (n *StreamNodeLink) Commands() <-chan wire.Command { return n.cmd }

func (n *StreamNodeLink) NotifyStatus(s wire.Status) error {
	return n.writeFrame(wire.ChannelStatus, []byte{byte(s)})
}

func (n *StreamNodeLink) NotifyData(p []byte) error {
	if len(p) > wire.MaxNotificationBytes {
		return fmt.Errorf("link: %d byte payload exceeds notification budget", len(p))
	}
	return n.writeFrame(wire.ChannelData, p)
}

func (n *StreamNodeLink) Ack(c wire.Command) error {
	return n.writeFrame(wire.ChannelCommand, []byte{byte(c)})
}

func (n *StreamNodeLink) Done() <-chan struct{} { return n.done }

func (n *StreamNodeLink) Close() error {
	n.drop()
	return nil
}
