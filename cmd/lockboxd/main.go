package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/s-piovesan/lockbox/internal/config"
	"github.com/s-piovesan/lockbox/internal/feedback"
	"github.com/s-piovesan/lockbox/internal/journal"
	"github.com/s-piovesan/lockbox/internal/link"
	"github.com/s-piovesan/lockbox/internal/protocol"
	"github.com/s-piovesan/lockbox/internal/session"
	"github.com/s-piovesan/lockbox/internal/target"
	"github.com/s-piovesan/lockbox/internal/telemetry"
)

// #region main

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Journal is optional; the game runs fine without persistence.
	var rec session.Recorder
	var store *journal.Store
	if cfg.Journal.Path != "" {
		store, err = journal.NewStore(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("open journal %s: %v", cfg.Journal.Path, err)
		}
		defer store.Close()
		rec = store
	}

	pub, err := telemetry.Connect(telemetry.Config{
		Broker: cfg.Telemetry.Broker,
		Topic:  cfg.Telemetry.Topic,
	})
	if err != nil {
		// Telemetry is a side channel; a dead broker must not stop the game.
		log.Printf("[MQTT] disabled: %v", err)
		pub = nil
	}
	defer pub.Close()

	linkCfg := link.DefaultConfig()
	linkCfg.URL = cfg.Link.URL
	linkCfg.BackoffBase = cfg.Link.BackoffBase
	linkCfg.BackoffMax = cfg.Link.BackoffMax
	linkCfg.Debug = cfg.Debug

	// Wiring order: the emitter writes through the link, the engine drives
	// the emitter, and the link's inbound handler drives the engine.
	var mgr *link.Manager
	emitCfg := feedback.DefaultConfig()
	emitCfg.Debug = cfg.Debug
	emitter := feedback.NewEmitter(senderFunc(func(data []byte) bool {
		return mgr.Send(data)
	}), sinkOrNil(pub), emitCfg)

	sessCfg := session.DefaultConfig()
	sessCfg.ResetDelay = cfg.Session.ResetDelay
	sessCfg.Debug = cfg.Debug
	d, err := target.ParseDifficulty(cfg.Session.Difficulty)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	sessCfg.Difficulty = d

	eng := session.NewEngine(sessCfg, emitter, rec)
	defer eng.Close()

	sendErr := func(msg string) {
		mgr.Send(protocol.EncodeError(msg))
	}
	mgr = link.NewManager(linkCfg, routeInbound(eng, emitter, sendErr))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mgr.Run(ctx)
	})
	if cfg.Metrics.Port > 0 {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics.Port)
		})
	}

	log.Printf("[MAIN] lockboxd up: bridge=%s difficulty=%s journal=%q",
		cfg.Link.URL, cfg.Session.Difficulty, cfg.Journal.Path)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[MAIN] exit: %v", err)
	}
	log.Printf("[MAIN] shutdown complete")
}

// #endregion main

// #region routing

// routeInbound maps each parsed message onto the engine or the emitter.
// Joystick updates and state snapshots both feed the sample path; a snapshot
// after reconnect is just a slightly stale sample.
func routeInbound(eng *session.Engine, emitter *feedback.Emitter, sendErr func(string)) link.Handler {
	return func(msg protocol.Inbound) {
		switch msg.Kind {
		case protocol.KindJoystickUpdate, protocol.KindStateSnapshot:
			eng.HandleSample(msg.Joysticks)

		case protocol.KindLedControl:
			emitter.Override(msg.Leds)

		case protocol.KindSetDifficulty:
			if err := eng.SetDifficulty(msg.Difficulty); err != nil {
				sendErr(err.Error())
			}

		case protocol.KindReset:
			eng.Reset()

		case protocol.KindLedUpdate:
			// Device echo of our own led_control; nothing to do.
		}
	}
}

// senderFunc adapts a closure to feedback.Sender.
type senderFunc func(data []byte) bool

func (f senderFunc) Send(data []byte) bool { return f(data) }

// sinkOrNil avoids handing the emitter a typed nil.
func sinkOrNil(p *telemetry.Publisher) feedback.EventSink {
	if p == nil {
		return nil
	}
	return p
}

// #endregion routing

// #region helpers

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// #endregion helpers
