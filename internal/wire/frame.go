package wire

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Channel selects which logical BLE-style channel a stream frame carries
// when command, status, and data share one byte stream (serial, WebSocket).
type Channel byte

const (
	ChannelCommand Channel = 0x01
	ChannelStatus  Channel = 0x02
	ChannelData    Channel = 0x03
)

// Valid reports whether ch is a defined channel byte.
func (ch Channel) Valid() bool { return ch >= ChannelCommand && ch <= ChannelData }

// Stream frame layout: Magic(1) | Channel(1) | Len(1) | Payload(Len) | CRC32(4, LE).
// CRC covers Channel, Len, and Payload. Frames that fail any check are
// skipped byte-by-byte until the next magic, matching lossy-link semantics:
// a corrupt notification is a dropped notification, never a stream error.
const (
	FrameMagic    = 0xA7
	frameOverhead = 3 + 4

	// MaxFramePayload bounds Len; nothing the protocol sends exceeds one
	// notification.
	MaxFramePayload = MaxNotificationBytes
)

// EncodeFrame wraps one notification payload for a byte-stream transport.
// Oversized payloads are truncated to MaxFramePayload; callers uphold the
// notification budget before framing.
func EncodeFrame(ch Channel, payload []byte) []byte {
	if len(payload) > MaxFramePayload {
		payload = payload[:MaxFramePayload]
	}
	buf := make([]byte, frameOverhead+len(payload))
	buf[0] = FrameMagic
	buf[1] = byte(ch)
	buf[2] = byte(len(payload))
	copy(buf[3:], payload)
	crc := crc32.ChecksumIEEE(buf[1 : 3+len(payload)])
	binary.LittleEndian.PutUint32(buf[3+len(payload):], crc)
	return buf
}

// FrameReader decodes frames from a byte stream, resynchronizing past any
// garbage between frames.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 4*(frameOverhead+MaxFramePayload))}
}

// Next returns the next intact frame. Malformed or corrupt frames are
// silently discarded; only I/O errors (including EOF on link close) are
// returned.
func (fr *FrameReader) Next() (Channel, []byte, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		if b != FrameMagic {
			continue
		}

		head, err := fr.r.Peek(2)
		if err != nil {
			return 0, nil, err
		}
		ch := Channel(head[0])
		n := int(head[1])
		if !ch.Valid() || n > MaxFramePayload {
			// Not a real frame start; keep scanning from the next byte.
			continue
		}

		body, err := fr.r.Peek(2 + n + 4)
		if err != nil {
			if err == io.EOF {
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, err
		}
		want := binary.LittleEndian.Uint32(body[2+n:])
		if crc32.ChecksumIEEE(body[:2+n]) != want {
			continue
		}

		payload := make([]byte, n)
		copy(payload, body[2:2+n])
		if _, err := fr.r.Discard(2 + n + 4); err != nil {
			return 0, nil, err
		}
		return ch, payload, nil
	}
}
