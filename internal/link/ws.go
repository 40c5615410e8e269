package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/wire"
)

// wsLink carries the protocol over one websocket connection. Each binary
// message is one notification: a channel byte followed by the payload.
// The CRC framing of the byte-stream transport is unnecessary here, the
// websocket layer already delimits and checksums messages.
type wsLink struct {
	conn *websocket.Conn

	cmd    chan wire.Command
	ack    chan wire.Command
	status chan wire.Status
	data   chan []byte

	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newWSLink(conn *websocket.Conn) *wsLink {
	l := &wsLink{
		conn:   conn,
		cmd:    make(chan wire.Command, 4),
		ack:    make(chan wire.Command, 4),
		status: make(chan wire.Status, 16),
		data:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go l.readLoop()
	return l
}

func (l *wsLink) readLoop() {
	defer l.drop()
	for {
		kind, msg, err := l.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				monitoring.Logf("link: websocket read: %v", err)
			}
			return
		}
		if kind != websocket.BinaryMessage || len(msg) < 1 {
			continue
		}
		ch, payload := wire.Channel(msg[0]), msg[1:]
		switch ch {
		case wire.ChannelCommand:
			if len(payload) != 1 || !wire.Command(payload[0]).Valid() {
				continue
			}
			select {
			case l.cmd <- wire.Command(payload[0]):
			case <-l.done:
				return
			}
		case wire.ChannelStatus:
			if len(payload) != 1 || !wire.Status(payload[0]).Valid() {
				continue
			}
			select {
			case l.status <- wire.Status(payload[0]):
			case <-l.done:
				return
			}
		case wire.ChannelData:
			if len(payload) > wire.MaxNotificationBytes {
				continue
			}
			buf := make([]byte, len(payload))
			copy(buf, payload)
			select {
			case l.data <- buf:
			case <-l.done:
				return
			}
		}
	}
}

func (l *wsLink) write(ch wire.Channel, payload []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	msg := make([]byte, 0, 1+len(payload))
	msg = append(msg, byte(ch))
	msg = append(msg, payload...)
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		l.drop()
		return fmt.Errorf("link: websocket write: %w", err)
	}
	return nil
}

func (l *wsLink) drop() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

func (l *wsLink) Done() <-chan struct{} { return l.done }

func (l *wsLink) Close() error {
	l.drop()
	return nil
}

// WSHostLink runs the host side over an established websocket connection.
type WSHostLink struct {
	*wsLink
}

func NewWSHostLink(conn *websocket.Conn) *WSHostLink {
	return &WSHostLink{wsLink: newWSLink(conn)}
}

// DialWSHost connects to a node serving the protocol at url
// (ws://host:port/link) and returns the host end.
func DialWSHost(ctx context.Context, url string) (*WSHostLink, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("link: websocket dial %s: %w", url, err)
	}
	return NewWSHostLink(conn), nil
}

func (h *WSHostLink) SendCommand(ctx context.Context, c wire.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.write(wire.ChannelCommand, []byte{byte(c)})
}

func (h *WSHostLink) Status() <-chan wire.Status { return h.status }
func (h *WSHostLink) Data() <-chan []byte        { return h.data }

// Acks delivers the node's command write-backs; on the websocket transport
// they arrive as command messages.
func (h *WSHostLink) Acks() <-chan wire.Command { return h.cmd }

// WSNodeLink runs the node side over an established websocket connection,
// typically accepted by an http handler with websocket.Upgrader.
type WSNodeLink struct {
	*wsLink
}

func NewWSNodeLink(conn *websocket.Conn) *WSNodeLink {
	return &WSNodeLink{wsLink: newWSLink(conn)}
}

func (n *WSNodeLink) Commands() <-chan wire.Command { return n.cmd }

func (n *WSNodeLink) NotifyStatus(s wire.Status) error {
	return n.write(wire.ChannelStatus, []byte{byte(s)})
}

func (n *WSNodeLink) NotifyData(p []byte) error {
	if len(p) > wire.MaxNotificationBytes {
		return fmt.Errorf("link: %d byte payload exceeds notification budget", len(p))
	}
	return n.write(wire.ChannelData, p)
}

func (n *WSNodeLink) Ack(c wire.Command) error {
	return n.write(wire.ChannelCommand, []byte{byte(c)})
}
