// Package controller runs the grid-monitor control loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/grid-monitor/internal/connectivity"
	"github.com/sweeney/grid-monitor/internal/gpio"
	"github.com/sweeney/grid-monitor/internal/logic"
	"github.com/sweeney/grid-monitor/internal/metrics"
	"github.com/sweeney/grid-monitor/internal/mqtt"
	"github.com/sweeney/grid-monitor/internal/sensor"
	"github.com/sweeney/grid-monitor/internal/status"
	"github.com/sweeney/grid-monitor/internal/watchdog"
)

// ErrRestartRequested is returned by Run after a RESTART command once the
// final status has been flushed.
var ErrRestartRequested = errors.New("restart requested")

// Sampler produces one filtered reading per call.
type Sampler interface {
	Burst() sensor.Reading
}

// Connection is the session the controller talks through.
// *connectivity.Manager implements it.
type Connection interface {
	EnsureConnected() connectivity.State
	Sessions() int
	Poll() (mqtt.Message, bool)
	Publish(topic string, payload []byte, retained bool) (bool, error)
	Close() error
}

// Options configures a DeviceController.
type Options struct {
	DeviceID     string
	BootID       string
	Thresholds   logic.Thresholds
	StatusTopic  string
	Retained     bool
	Heartbeat    time.Duration
	ErrorBackoff time.Duration
	HealthEvery  int // cycles between health checks, 0 disables
	HistorySize  int
}

// Deps are the collaborators a DeviceController drives. Tracker, Metrics and
// Watchdog may be nil.
type Deps struct {
	Sampler  Sampler
	Conn     Connection
	Relay    gpio.Output
	LED      gpio.Output
	Watchdog watchdog.Feeder
	Tracker  *status.Tracker
	Metrics  *metrics.Metrics

	Now    func() time.Time
	Sleep  func(time.Duration)
	Memory func() Memory
}

// DeviceController owns all process state: verdict, relay mode,
// connectivity view and history. Only the loop goroutine touches it.
type DeviceController struct {
	opts     Options
	deps     Deps
	detector *logic.Detector
	mode     logic.RelayMode
	relayOn  bool
	history  *sensor.History
	pub      *status.Publisher

	start          time.Time
	reading        int
	conn           connectivity.State
	sessions       int
	cycles         int
	mem            Memory
	restartPending bool
	flushed        bool
	counts         status.Counts
	lastChange     time.Time
}

// New creates a controller starting in Auto mode with an Offline verdict.
func New(opts Options, deps Deps) *DeviceController {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Memory == nil {
		deps.Memory = ReadMemory
	}
	if deps.Watchdog == nil {
		deps.Watchdog = watchdog.Noop{}
	}
	if deps.LED == nil {
		deps.LED = gpio.Discard{}
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}

	start := deps.Now()
	return &DeviceController{
		opts:     opts,
		deps:     deps,
		detector: logic.NewDetector(opts.Thresholds),
		mode:     logic.AutoMode(),
		history:  sensor.NewHistory(opts.HistorySize),
		pub:      status.NewPublisher(deps.Conn, opts.StatusTopic, opts.Retained, opts.Heartbeat, start, deps.Metrics),
		start:    start,
		conn:     connectivity.NetworkDown,
	}
}

// Verdict returns the confirmed grid verdict.
func (c *DeviceController) Verdict() logic.Verdict { return c.detector.Confirmed() }

// Mode returns the current relay mode.
func (c *DeviceController) Mode() logic.RelayMode { return c.mode }

// RelayOn returns the relay output applied in the last cycle.
func (c *DeviceController) RelayOn() bool { return c.relayOn }

// Cycle runs one pass of the control loop at now: connectivity, at most one
// command, sample, detect, actuate, publish, health check, watchdog.
// It returns ErrRestartRequested at the end of a cycle that received RESTART.
func (c *DeviceController) Cycle(now time.Time) error {
	cycleStart := now
	c.cycles++
	var errs []error

	c.conn = c.deps.Conn.EnsureConnected()
	force := false
	if s := c.deps.Conn.Sessions(); c.conn == connectivity.Connected && s != c.sessions {
		c.sessions = s
		force = true
		log.Printf("controller: broker session %d, forcing status publish", s)
	}

	if c.conn == connectivity.Connected {
		if msg, ok := c.deps.Conn.Poll(); ok {
			if c.handleCommand(msg) {
				force = true
			}
		}
	}

	r := c.deps.Sampler.Burst()
	c.reading = r.Value
	c.history.Push(r.Value)
	c.deps.Metrics.SensorReadErrors(r.Errors)

	if ev := c.detector.Update(r.Value); ev != nil {
		log.Printf("*** grid %s (reading=%d) ***", ev.To, ev.Reading)
		c.deps.Metrics.StateChanged(string(ev.To))
		c.counts.StateChanges++
		c.lastChange = now
		force = true
	}

	verdict := c.detector.Confirmed()
	c.relayOn = logic.EffectiveOutput(c.mode, verdict)
	if err := c.deps.Relay.Set(c.relayOn); err != nil {
		errs = append(errs, fmt.Errorf("relay: %w", err))
	}
	if err := c.deps.LED.Set(logic.IndicatorOutput(verdict)); err != nil {
		errs = append(errs, fmt.Errorf("led: %w", err))
	}

	if c.cycles == 1 || (c.opts.HealthEvery > 0 && c.cycles%c.opts.HealthEvery == 0) {
		c.healthCheck()
	}

	if c.restartPending {
		force = true
	}
	sent, err := c.pub.Publish(now, c.record(now), force)
	if err != nil {
		errs = append(errs, err)
	}
	if sent {
		c.counts.Publishes++
		if c.restartPending {
			c.flushed = true
		}
	}

	log.Printf("reading n=%d v=%d avg=%d grid=%s stable=%d/%d",
		c.cycles, r.Value, c.history.Mean(), verdict, c.detector.StabilityCount(), c.opts.Thresholds.MinStable)

	if err := c.deps.Watchdog.Feed(); err != nil {
		errs = append(errs, err)
	}

	c.deps.Metrics.Connectivity(int(c.conn))
	c.deps.Metrics.ObserveCycle(r.Value, c.detector.StabilityCount(), verdict.Online(), c.relayOn,
		c.mode.Manual, c.deps.Now().Sub(cycleStart).Seconds())
	c.updateTracker()

	if c.restartPending {
		errs = append(errs, ErrRestartRequested)
	}
	return errors.Join(errs...)
}

// handleCommand applies one inbound command and reports whether it calls
// for an immediate status publish.
func (c *DeviceController) handleCommand(msg mqtt.Message) bool {
	cmd := logic.Interpret(string(msg.Payload))
	c.deps.Metrics.Command(string(cmd.Kind))
	c.counts.Commands++

	switch cmd.Kind {
	case logic.CommandUnknown:
		c.counts.Unknown++
		log.Printf("command: ignoring unknown %q", cmd.Raw)
		return false
	case logic.CommandStatus:
		log.Printf("command: status requested")
		return true
	case logic.CommandRestart:
		log.Printf("command: restart requested, finishing cycle")
		c.restartPending = true
		return true
	}

	prev := c.mode
	c.mode = logic.ApplyCommand(c.mode, cmd)
	log.Printf("command: %s, relay mode %s -> %s", cmd.Kind, prev, c.mode)
	return c.mode != prev
}

func (c *DeviceController) healthCheck() {
	c.mem = c.deps.Memory()
	c.deps.Metrics.Health(c.mem.HeapAlloc, c.mem.Available)
	log.Printf("health: heap=%d available=%d cycles=%d", c.mem.HeapAlloc, c.mem.Available, c.cycles)
}

func (c *DeviceController) record(now time.Time) status.Record {
	return status.Record{
		DeviceID:   c.opts.DeviceID,
		BootID:     c.opts.BootID,
		Grid:       c.detector.Confirmed(),
		RelayOn:    c.relayOn,
		Mode:       c.mode,
		Uptime:     now.Sub(c.start),
		FreeMemory: c.mem.Available,
		Reading:    c.reading,
	}
}

func (c *DeviceController) updateTracker() {
	if c.deps.Tracker == nil {
		return
	}
	c.deps.Tracker.Update(func(s *status.Snapshot) {
		s.Grid = c.detector.Confirmed()
		s.Pending = c.detector.Pending()
		s.Stability = c.detector.StabilityCount()
		s.RelayOn = c.relayOn
		s.Mode = c.mode
		s.Reading = c.reading
		s.History = c.history.Values()
		s.HistoryMean = c.history.Mean()
		s.Connectivity = c.conn.String()
		s.LastChange = c.lastChange
		s.LastPublish = c.pub.LastPublished()
		s.Counts = c.counts
	})
}

// safeCycle runs Cycle, turning a panic into an error.
func (c *DeviceController) safeCycle(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return c.Cycle(now)
}

// Run executes a cycle immediately and then once per tick until ctx is
// cancelled or a restart is requested. A failed cycle is logged and
// followed by the error back-off; it never stops the loop.
func (c *DeviceController) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		err := c.safeCycle(c.deps.Now())
		switch {
		case errors.Is(err, ErrRestartRequested):
			return ErrRestartRequested
		case err != nil:
			log.Printf("controller: cycle failed: %v", err)
			c.deps.Metrics.CycleError()
			c.counts.CycleErrors++
			c.updateTracker()
			c.deps.Sleep(c.opts.ErrorBackoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}

// Shutdown flushes a final status unless a restart already did, marks the
// device unavailable and releases the outputs and watchdog.
func (c *DeviceController) Shutdown(reason string) {
	log.Printf("controller: shutting down: %s", reason)

	if !c.flushed {
		now := c.deps.Now()
		if _, err := c.pub.Publish(now, c.record(now), true); err != nil {
			log.Printf("controller: final status: %v", err)
		}
	}
	if err := c.deps.Conn.Close(); err != nil {
		log.Printf("controller: close connection: %v", err)
	}
	if err := c.deps.Relay.Close(); err != nil {
		log.Printf("controller: release relay: %v", err)
	}
	if err := c.deps.LED.Close(); err != nil {
		log.Printf("controller: release led: %v", err)
	}
	if err := c.deps.Watchdog.Close(); err != nil {
		log.Printf("controller: close watchdog: %v", err)
	}
}
