package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/grid-monitor/internal/config"
	"github.com/sweeney/grid-monitor/internal/connectivity"
	"github.com/sweeney/grid-monitor/internal/controller"
	"github.com/sweeney/grid-monitor/internal/gpio"
	"github.com/sweeney/grid-monitor/internal/metrics"
	"github.com/sweeney/grid-monitor/internal/mqtt"
	"github.com/sweeney/grid-monitor/internal/network"
	"github.com/sweeney/grid-monitor/internal/sensor"
	"github.com/sweeney/grid-monitor/internal/status"
	"github.com/sweeney/grid-monitor/internal/watchdog"
	"github.com/sweeney/grid-monitor/internal/web"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			err = runDaemon(cmd.Context(), cfg)
			if errors.Is(err, controller.ErrRestartRequested) {
				return reexec()
			}
			return err
		},
	}
	a.bindDaemonFlags(cmd.Flags())
	return cmd
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		DeviceID:    cfg.DeviceID,
		High:        cfg.Detector.High,
		Low:         cfg.Detector.Low,
		MinStable:   cfg.Detector.MinStable,
		Samples:     cfg.Sampler.Samples,
		Trim:        cfg.Sampler.Trim,
		CycleMs:     cfg.Loop.Cycle.Milliseconds(),
		HeartbeatMs: cfg.Loop.Heartbeat.Milliseconds(),
		Broker:      cfg.Connectivity().Broker.BrokerURL(),
		HTTPAddr:    cfg.HTTPAddr,
		Simulated:   cfg.Sampler.Simulate,
	}
}

// openOutputs claims the relay and optional LED lines.
func openOutputs(cfg config.Config) (relay, led gpio.Output, err error) {
	r, err := gpio.NewLineOutput(cfg.GPIO.Chip, cfg.GPIO.RelayPin, cfg.GPIO.ActiveLow)
	if err != nil {
		return nil, nil, fmt.Errorf("init relay: %w", err)
	}
	if cfg.GPIO.LEDPin < 0 {
		return r, gpio.Discard{}, nil
	}
	l, err := gpio.NewLineOutput(cfg.GPIO.Chip, cfg.GPIO.LEDPin, cfg.GPIO.ActiveLow)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("init led: %w", err)
	}
	return r, l, nil
}

func runDaemon(parent context.Context, cfg config.Config) error {
	adc, err := openADC(cfg)
	if err != nil {
		return err
	}

	relay, led, err := openOutputs(cfg)
	if err != nil {
		return err
	}
	if cfg.GPIO.SelfTest {
		log.Printf("relay self-test: pulse %v", cfg.GPIO.SelfTestPulse)
		if err := gpio.Pulse(relay, cfg.GPIO.SelfTestPulse, time.Sleep); err != nil {
			log.Printf("relay self-test failed: %v", err)
		}
	}

	var dog watchdog.Feeder = watchdog.Noop{}
	if cfg.Watchdog != "" {
		d, err := watchdog.OpenDevice(cfg.Watchdog)
		if err != nil {
			relay.Close()
			led.Close()
			return err
		}
		dog = d
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	bootID := uuid.NewString()
	tracker := status.NewTracker(time.Now(), bootID, statusConfig(cfg))

	mgr := connectivity.NewManager(cfg.Connectivity(), network.NewInterfaceLink(cfg.WiFi.Interface), mqtt.NewPahoTransport(), m)
	ctrl := controller.New(controller.Options{
		DeviceID:     cfg.DeviceID,
		BootID:       bootID,
		Thresholds:   cfg.Thresholds(),
		StatusTopic:  cfg.Topics().Status,
		Retained:     cfg.MQTT.Retained,
		Heartbeat:    cfg.Loop.Heartbeat,
		ErrorBackoff: cfg.Loop.ErrorBackoff,
		HealthEvery:  cfg.Loop.HealthEvery,
		HistorySize:  cfg.Loop.History,
	}, controller.Deps{
		Sampler:  sensor.NewSampler(adc, cfg.SamplerSettings(), time.Sleep),
		Conn:     mgr,
		Relay:    relay,
		LED:      led,
		Watchdog: dog,
		Tracker:  tracker,
		Metrics:  m,
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var srv *web.Server
	if cfg.HTTPAddr != "" {
		srv = web.New(cfg.HTTPAddr, tracker, reg)
		g.Go(func() error {
			log.Printf("http status server listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// The page is optional; monitoring carries on without it.
				log.Printf("http server error: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Loop.Cycle)
		defer ticker.Stop()

		log.Printf("started: device=%s boot=%s high=%d low=%d min_stable=%d cycle=%v heartbeat=%v",
			cfg.DeviceID, bootID, cfg.Detector.High, cfg.Detector.Low, cfg.Detector.MinStable, cfg.Loop.Cycle, cfg.Loop.Heartbeat)
		err := ctrl.Run(gctx, ticker.C)

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}
		return err
	})

	err = g.Wait()
	reason := "signal"
	if errors.Is(err, controller.ErrRestartRequested) {
		reason = "restart command"
	}
	ctrl.Shutdown(reason)
	return err
}
