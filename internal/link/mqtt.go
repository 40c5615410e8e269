package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/wire"
)

// MQTTConfig locates the broker and the topic namespace one node pair
// shares. Topics under the prefix are command, command/ack, status, and
// data, each carrying the raw protocol bytes.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

func (c MQTTConfig) topic(leaf string) string {
	return c.TopicPrefix + "/" + leaf
}

const mqttConnectTimeout = 10 * time.Second

// mqttLink holds the shared channel plumbing for both MQTT ends.
type mqttLink struct {
	client mqtt.Client
	cfg    MQTTConfig

	cmd    chan wire.Command
	ack    chan wire.Command
	status chan wire.Status
	data   chan []byte

	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func dialMQTT(cfg MQTTConfig, suffix string) (*mqttLink, error) {
	l := &mqttLink{
		cfg:    cfg,
		cmd:    make(chan wire.Command, 4),
		ack:    make(chan wire.Command, 4),
		status: make(chan wire.Status, 16),
		data:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-" + suffix).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			monitoring.Logf("link: mqtt connection lost: %v", err)
			l.drop()
		})
	l.client = mqtt.NewClient(opts)
	token := l.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("link: mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("link: mqtt connect: %w", err)
	}
	return l, nil
}

func (l *mqttLink) subscribe(leaf string, handler mqtt.MessageHandler) error {
	token := l.client.Subscribe(l.cfg.topic(leaf), 1, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		l.drop()
		return fmt.Errorf("link: mqtt subscribe %s: %w", l.cfg.topic(leaf), err)
	}
	return nil
}

func (l *mqttLink) publish(leaf string, payload []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	token := l.client.Publish(l.cfg.topic(leaf), 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		l.drop()
		return fmt.Errorf("link: mqtt publish %s: %w", l.cfg.topic(leaf), err)
	}
	return nil
}

func (l *mqttLink) drop() {
	l.closeOnce.Do(func() {
		close(l.done)
		go l.client.Disconnect(250)
	})
}

func (l *mqttLink) Done() <-chan struct{} { return l.done }

func (l *mqttLink) Close() error {
	l.drop()
	return nil
}

// MQTTHostLink runs the host side over an MQTT broker.
type MQTTHostLink struct {
	*mqttLink
}

// DialMQTTHost connects to the broker and subscribes to the node-to-host
// topics.
func DialMQTTHost(cfg MQTTConfig) (*MQTTHostLink, error) {
	l, err := dialMQTT(cfg, "host")
	if err != nil {
		return nil, err
	}
	if err := l.subscribe("status", func(_ mqtt.Client, m mqtt.Message) {
		p := m.Payload()
		if len(p) != 1 || !wire.Status(p[0]).Valid() {
			return
		}
		select {
		case l.status <- wire.Status(p[0]):
		case <-l.done:
		}
	}); err != nil {
		return nil, err
	}
	if err := l.subscribe("command/ack", func(_ mqtt.Client, m mqtt.Message) {
		p := m.Payload()
		if len(p) != 1 || !wire.Command(p[0]).Valid() {
			return
		}
		select {
		case l.ack <- wire.Command(p[0]):
		case <-l.done:
		}
	}); err != nil {
		return nil, err
	}
	if err := l.subscribe("data", func(_ mqtt.Client, m mqtt.Message) {
		p := m.Payload()
		if len(p) > wire.MaxNotificationBytes {
			return
		}
		buf := make([]byte, len(p))
		copy(buf, p)
		select {
		case l.data <- buf:
		case <-l.done:
		}
	}); err != nil {
		return nil, err
	}
	return &MQTTHostLink{mqttLink: l}, nil
}

func (h *MQTTHostLink) SendCommand(ctx context.Context, c wire.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.publish("command", []byte{byte(c)})
}

func (h *MQTTHostLink) Status() <-chan wire.Status { return h.status }
func (h *MQTTHostLink) Data() <-chan []byte        { return h.data }
func (h *MQTTHostLink) Acks() <-chan wire.Command  { return h.ack }

// MQTTNodeLink runs the node side over an MQTT broker.
type MQTTNodeLink struct {
	*mqttLink
}

// DialMQTTNode connects to the broker and subscribes to the command topic.
func DialMQTTNode(cfg MQTTConfig) (*MQTTNodeLink, error) {
	l, err := dialMQTT(cfg, "node")
	if err != nil {
		return nil, err
	}
	if err := l.subscribe("command", func(_ mqtt.Client, m mqtt.Message) {
		p := m.Payload()
		if len(p) != 1 || !wire.Command(p[0]).Valid() {
			return
		}
		select {
		case l.cmd <- wire.Command(p[0]):
		case <-l.done:
		}
	}); err != nil {
		return nil, err
	}
	return &MQTTNodeLink{mqttLink: l}, nil
}

func (n *MQTTNodeLink) Commands() <-chan wire.Command { return n.cmd }

func (n *MQTTNodeLink) NotifyStatus(s wire.Status) error {
	return n.publish("status", []byte{byte(s)})
}

func (n *MQTTNodeLink) NotifyData(p []byte) error {
	if len(p) > wire.MaxNotificationBytes {
		return fmt.Errorf("link: %d byte payload exceeds notification budget", len(p))
	}
	return n.publish("data", p)
}

func (n *MQTTNodeLink) Ack(c wire.Command) error {
	return n.publish("command/ack", []byte{byte(c)})
}
