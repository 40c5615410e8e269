// gesturenode runs the sensor-node side of the capture protocol: it reads
// an accelerometer at a fixed rate on command and streams the capture back
// to the host in chunks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openglyph/gesturelink/internal/config"
	"github.com/openglyph/gesturelink/internal/link"
	"github.com/openglyph/gesturelink/internal/node"
	"github.com/openglyph/gesturelink/internal/sensor"
	"github.com/openglyph/gesturelink/internal/timeutil"
	"github.com/openglyph/gesturelink/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	transport := flag.String("transport", "", "override transport (serial, mqtt, ws)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *transport != "" {
		cfg.Transport = transport
	}

	if err := run(cfg); err != nil {
		log.Fatalf("gesturenode: %v", err)
	}
}

func run(cfg *config.Config) error {
	sens, err := buildSensor(cfg)
	if err != nil {
		return err
	}

	nodeCfg := node.Config{
		Plan:          cfg.Plan(),
		SamplePeriod:  cfg.GetSamplePeriod(),
		CountdownStep: cfg.GetCountdownStep(),
		Drain:         cfg.GetDrain(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.GetTransport() {
	case config.TransportSerial:
		return serveReconnect(ctx, nodeCfg, sens, func() (link.NodeLink, error) {
			return link.OpenSerialNode(cfg.GetSerialDevice(), cfg.GetSerialBaud())
		})
	case config.TransportMQTT:
		return serveReconnect(ctx, nodeCfg, sens, func() (link.NodeLink, error) {
			return link.DialMQTTNode(link.MQTTConfig{
				Broker:      cfg.GetMQTTBroker(),
				ClientID:    cfg.GetMQTTClientID(),
				TopicPrefix: cfg.GetMQTTPrefix(),
			})
		})
	case config.TransportWS:
		return serveWS(ctx, cfg.GetWSAddr(), nodeCfg, sens)
	default:
		return fmt.Errorf("transport %q is not usable on a standalone node", cfg.GetTransport())
	}
}

const reconnectDelay = time.Second

// serveReconnect keeps the node available indefinitely: when the link
// drops or cannot be opened it waits and tries again, exiting only on
// shutdown or a fatal node error such as a sensor fault.
func serveReconnect(ctx context.Context, nodeCfg node.Config, sens sensor.Sensor, open func() (link.NodeLink, error)) error {
	for {
		l, err := open()
		if err != nil {
			log.Printf("link open: %v (retrying)", err)
		} else {
			err = serve(ctx, nodeCfg, sens, l)
			l.Close()
			if err != nil {
				return err
			}
			if ctx.Err() == nil {
				log.Printf("link closed, waiting for host")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func buildSensor(cfg *config.Config) (sensor.Sensor, error) {
	switch cfg.GetSensor() {
	case "mpu9250":
		return sensor.NewMPU9250(cfg.GetSPIDevice(), sensor.Range2G)
	default:
		log.Printf("using synthetic sensor")
		return sensor.NewSynthetic(), nil
	}
}

func serve(ctx context.Context, nodeCfg node.Config, sens sensor.Sensor, l link.NodeLink) error {
	m, err := node.NewMachine(nodeCfg, sens, l)
	if err != nil {
		return err
	}
	log.Printf("serving captures: %d samples in %d chunks", nodeCfg.Plan.Capacity, nodeCfg.Plan.TotalChunks())
	err = node.NewRunner(m, l, timeutil.RealClock{}).Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// serveWS accepts one host at a time over websocket and runs the protocol
// until the connection drops, then waits for the next host.
func serveWS(ctx context.Context, addr string, nodeCfg node.Config, sens sensor.Sensor) error {
	upgrader := websocket.Upgrader{}
	var sessionMu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/link", func(w http.ResponseWriter, r *http.Request) {
		// One sensor, one host.
		if !sessionMu.TryLock() {
			http.Error(w, "capture session already active", http.StatusConflict)
			return
		}
		defer sessionMu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade: %v", err)
			return
		}
		l := link.NewWSNodeLink(conn)
		defer l.Close()
		if err := serve(ctx, nodeCfg, sens, l); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session ended: %v", err)
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Printf("listening on ws://%s/link", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
