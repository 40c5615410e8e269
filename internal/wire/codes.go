// Package wire owns the gesture-capture wire contract: the one-byte command
// and status codes, the chunked sample payload, and the frame codec used when
// all three logical channels share one byte stream.
//
// The contract mirrors the BLE characteristic layout of the original capture
// hardware: commands are host to node, status and data notifications are node
// to host, and no notification payload exceeds MaxNotificationBytes.
package wire

// Command is a host-to-node command byte.
type Command byte

const (
	// CmdIdle acknowledges completion and returns the node to idle.
	CmdIdle Command = 0
	// CmdStartCapture asks the node to begin a countdown-and-record cycle.
	CmdStartCapture Command = 1
	// CmdBusy is written back by the node when a start arrives mid-capture.
	CmdBusy Command = 2
)

// Valid reports whether c is a defined command code.
func (c Command) Valid() bool { return c <= CmdBusy }

// Status is a node-to-host status notification byte.
type Status byte

const (
	StatusReady      Status = 0
	StatusCountdown3 Status = 1
	StatusCountdown2 Status = 2
	StatusCountdown1 Status = 3
	StatusCapturing  Status = 4
	StatusComplete   Status = 5
	StatusError      Status = 6
)

// Valid reports whether s is a defined status code.
func (s Status) Valid() bool { return s <= StatusError }

// Terminal reports whether s ends a capture attempt from the host's view.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusError }

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusCountdown3:
		return "countdown-3"
	case StatusCountdown2:
		return "countdown-2"
	case StatusCountdown1:
		return "countdown-1"
	case StatusCapturing:
		return "capturing"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	}
	return "unknown"
}
