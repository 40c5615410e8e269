// Package link abstracts the wireless channel between host and sensor node.
//
// The protocol only assumes three logical channels (command, status, data)
// with small opaque payloads and no delivery guarantee. Implementations in
// this package and its subpackages carry those channels over an in-memory
// pair (tests, simulator), a framed byte stream (serial), MQTT topics, or
// WebSocket messages. The underlying wireless stack itself is a
// collaborator, never reimplemented here.
package link

import (
	"context"
	"errors"

	"github.com/openglyph/gesturelink/internal/wire"
)

// ErrClosed is returned by any send on a link whose peer is gone.
var ErrClosed = errors.New("link: closed")

// HostLink is the host's view of one connected sensor node.
//
// Receive channels are never closed; consumers must also select on Done,
// which is closed when the link drops. Payloads received on Data are owned
// by the receiver.
type HostLink interface {
	// SendCommand writes a command byte to the node, blocking until the
	// link confirms the write, ctx is done, or the link drops.
	SendCommand(ctx context.Context, c wire.Command) error

	// Status delivers node status notifications.
	Status() <-chan wire.Status

	// Data delivers raw data notifications (encoded chunks).
	Data() <-chan []byte

	// Acks delivers command values written back by the node (Busy, Idle).
	Acks() <-chan wire.Command

	// Done is closed when the link disconnects, whichever side initiated.
	Done() <-chan struct{}

	Close() error
}

// NodeLink is the sensor node's view of its host connection.
type NodeLink interface {
	// Commands delivers command bytes written by the host.
	Commands() <-chan wire.Command

	// NotifyStatus publishes a status notification.
	NotifyStatus(s wire.Status) error

	// NotifyData publishes one data notification. The payload must not
	// exceed wire.MaxNotificationBytes.
	NotifyData(p []byte) error

	// Ack writes a command value back to the host (Busy rejection,
	// Idle on completion).
	Ack(c wire.Command) error

	// Done is closed when the link disconnects.
	Done() <-chan struct{}

	Close() error
}
