// gesturehost requests captures from a sensor node, reassembles the
// streamed chunks, and stores each completed capture as a JSON document.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openglyph/gesturelink/internal/config"
	"github.com/openglyph/gesturelink/internal/host"
	"github.com/openglyph/gesturelink/internal/link"
	"github.com/openglyph/gesturelink/internal/node"
	"github.com/openglyph/gesturelink/internal/sensor"
	"github.com/openglyph/gesturelink/internal/timeutil"
	"github.com/openglyph/gesturelink/internal/version"
	"github.com/openglyph/gesturelink/internal/wire"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	participant := flag.String("participant", "", "participant identifier stored with each capture")
	label := flag.String("label", "", "gesture label stored with each capture")
	count := flag.Int("count", 1, "number of captures to record")
	outDir := flag.String("out", "captures", "directory for stored captures")
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

	if err := run(cfg, *outDir, *count, host.Options{
		Participant: *participant,
		Label:       *label,
	}); err != nil {
		log.Fatalf("gesturehost: %v", err)
	}
}

func run(cfg *config.Config, outDir string, count int, opts host.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	store, err := host.NewDirStore(outDir)
	if err != nil {
		return err
	}

	session, err := host.NewSession(l, cfg.Plan(), timeutil.RealClock{}, cfg.GetSessionTimeout())
	if err != nil {
		return err
	}
	session.OnStatus = func(s wire.Status) {
		switch s {
		case wire.StatusCountdown3, wire.StatusCountdown2, wire.StatusCountdown1:
			fmt.Printf("  %d...\n", wire.StatusCountdown3-s+3)
		case wire.StatusCapturing:
			fmt.Println("  capturing")
		}
	}
	session.OnProgress = func(received, total int) {
		if received%10 == 0 || received == total {
			fmt.Printf("  transferred %d/%d chunks\n", received, total)
		}
	}

	for i := 0; i < count; i++ {
		log.Printf("capture %d of %d", i+1, count)
		c, err := session.Run(ctx, opts)
		if err != nil {
			return fmt.Errorf("capture %d: %w", i+1, err)
		}
		if err := store.Save(ctx, c); err != nil {
			return err
		}
		log.Printf("saved %d samples as %s", len(c.Samples), c.Metadata.ID)
	}
	return nil
}

// openLink builds the host end for the configured transport. Loopback runs
// a synthetic in-process node, useful for trying the pipeline without
// hardware.
func openLink(ctx context.Context, cfg *config.Config) (link.HostLink, error) {
	switch cfg.GetTransport() {
	case config.TransportLoopback:
		lb := link.NewLoopback()
		m, err := node.NewMachine(node.Config{
			Plan:          cfg.Plan(),
			SamplePeriod:  cfg.GetSamplePeriod(),
			CountdownStep: cfg.GetCountdownStep(),
			Drain:         cfg.GetDrain(),
		}, sensor.NewSynthetic(), lb.NodeEnd())
		if err != nil {
			return nil, err
		}
		go node.NewRunner(m, lb.NodeEnd(), timeutil.RealClock{}).Run(ctx)
		return lb.HostEnd(), nil
	case config.TransportSerial:
		return link.OpenSerialHost(cfg.GetSerialDevice(), cfg.GetSerialBaud())
	case config.TransportMQTT:
		return link.DialMQTTHost(link.MQTTConfig{
			Broker:      cfg.GetMQTTBroker(),
			ClientID:    cfg.GetMQTTClientID(),
			TopicPrefix: cfg.GetMQTTPrefix(),
		})
	case config.TransportWS:
		return link.DialWSHost(ctx, "ws://"+cfg.GetWSAddr()+"/link")
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.GetTransport())
	}
}
