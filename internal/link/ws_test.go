package link

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openglyph/gesturelink/internal/testutil"
	"github.com/openglyph/gesturelink/internal/wire"
)

// wsPair dials a host link against an in-process node endpoint.
func wsPair(t *testing.T) (*WSHostLink, *WSNodeLink) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	nodes := make(chan *WSNodeLink, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		nodes <- NewWSNodeLink(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/link"
	host, err := DialWSHost(context.Background(), url)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { host.Close() })

	select {
	case n := <-nodes:
		t.Cleanup(func() { n.Close() })
		return host, n
	case <-time.After(time.Second):
		t.Fatal("node end never accepted")
		return nil, nil
	}
}

func TestWSLinkRoundTrip(t *testing.T) {
	host, node := wsPair(t)

	testutil.AssertNoError(t, host.SendCommand(context.Background(), wire.CmdStartCapture))
	select {
	case c := <-node.Commands():
		if c != wire.CmdStartCapture {
			t.Fatalf("command = %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("command not delivered")
	}

	testutil.AssertNoError(t, node.Ack(wire.CmdBusy))
	select {
	case c := <-host.Acks():
		if c != wire.CmdBusy {
			t.Fatalf("ack = %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("ack not delivered")
	}

	testutil.AssertNoError(t, node.NotifyStatus(wire.StatusCountdown3))
	testutil.WaitStatus(t, host.Status(), wire.StatusCountdown3, time.Second)

	payload := []byte{0, 1, 1, 0, 2, 0, 3, 0}
	testutil.AssertNoError(t, node.NotifyData(payload))
	select {
	case p := <-host.Data():
		c, err := wire.DecodeChunk(p)
		testutil.AssertNoError(t, err)
		if c.Seq != 0 || len(c.Samples) != 1 {
			t.Fatalf("chunk = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("data not delivered")
	}
}

func TestWSLinkRejectsOversizeData(t *testing.T) {
	_, node := wsPair(t)
	testutil.AssertError(t, node.NotifyData(make([]byte, wire.MaxNotificationBytes+1)))
}

func TestWSLinkPeerCloseSignalsDone(t *testing.T) {
	host, node := wsPair(t)
	node.Close()
	select {
	case <-host.Done():
	case <-time.After(time.Second):
		t.Fatal("host never observed peer close")
	}
	if err := host.SendCommand(context.Background(), wire.CmdIdle); err == nil {
		t.Fatal("send succeeded on a dropped link")
	}
}

func TestWSLinkIgnoresNoise(t *testing.T) {
	host, node := wsPair(t)

	// Text frames, unknown channels, and invalid codes are all discarded.
	node.writeMu.Lock()
	testutil.AssertNoError(t, node.conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	testutil.AssertNoError(t, node.conn.WriteMessage(websocket.BinaryMessage, []byte{0x7F, 1, 2}))
	testutil.AssertNoError(t, node.conn.WriteMessage(websocket.BinaryMessage, []byte{byte(wire.ChannelStatus), 99}))
	node.writeMu.Unlock()

	testutil.AssertNoError(t, node.NotifyStatus(wire.StatusReady))
	select {
	case s := <-host.Status():
		if s != wire.StatusReady {
			t.Fatalf("status = %v, want %v (noise leaked through)", s, wire.StatusReady)
		}
	case <-time.After(time.Second):
		t.Fatal("status not delivered")
	}
}
