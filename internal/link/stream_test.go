package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/openglyph/gesturelink/internal/wire"
)

func newStreamPair(t *testing.T) (*StreamHostLink, *StreamNodeLink) {
	t.Helper()
	hc, nc := net.Pipe()
	host := NewStreamHostLink(hc)
	node := NewStreamNodeLink(nc)
	t.Cleanup(func() {
		host.Close()
		node.Close()
	})
	return host, node
}

func TestStreamLinkRoundTrip(t *testing.T) {
	host, node := newStreamPair(t)

	done := make(chan error, 1)
	go func() { done <- host.SendCommand(context.Background(), wire.CmdStartCapture) }()

	select {
	case c := <-node.Commands():
		if c != wire.CmdStartCapture {
			t.Fatalf("command = %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("command not delivered")
	}
	if err := <-done; err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	if err := node.NotifyStatus(wire.StatusCountdown3); err != nil {
		t.Fatalf("NotifyStatus: %v", err)
	}
	select {
	case s := <-host.Status():
		if s != wire.StatusCountdown3 {
			t.Fatalf("status = %v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("status not delivered")
	}

	chunk, err := wire.Chunk{Seq: 3, Samples: []wire.Sample{{X: 1, Y: 2, Z: 3}}}.Encode()
	if err != nil {
		t.Fatalf("encode chunk: %v", err)
	}
	if err := node.NotifyData(chunk); err != nil {
		t.Fatalf("NotifyData: %v", err)
	}
	select {
	case d := <-host.Data():
		decoded, err := wire.DecodeChunk(d)
		if err != nil {
			t.Fatalf("decode received chunk: %v", err)
		}
		if decoded.Seq != 3 || decoded.Samples[0] != (wire.Sample{X: 1, Y: 2, Z: 3}) {
			t.Fatalf("chunk = %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("data not delivered")
	}

	if err := node.Ack(wire.CmdBusy); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	select {
	case a := <-host.Acks():
		if a != wire.CmdBusy {
			t.Fatalf("ack = %v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("ack not delivered")
	}
}

func TestStreamLinkPeerCloseSignalsDone(t *testing.T) {
	host, node := newStreamPair(t)
	node.Close()

	select {
	case <-host.Done():
	case <-time.After(time.Second):
		t.Fatal("host Done not closed after peer close")
	}
	if err := host.SendCommand(context.Background(), wire.CmdIdle); err == nil {
		t.Fatal("expected error sending on dropped link")
	}
}

func TestStreamLinkIgnoresInvalidCodes(t *testing.T) {
	hc, nc := net.Pipe()
	host := NewStreamHostLink(hc)
	t.Cleanup(func() { host.Close() })

	go func() {
		// A status frame with an undefined code, then a valid one.
		nc.Write(wire.EncodeFrame(wire.ChannelStatus, []byte{0x7F}))
		nc.Write(wire.EncodeFrame(wire.ChannelStatus, []byte{byte(wire.StatusReady)}))
	}()

	select {
	case s := <-host.Status():
		if s != wire.StatusReady {
			t.Fatalf("status = %v, want ready", s)
		}
	case <-time.After(time.Second):
		t.Fatal("valid status not delivered")
	}
}
