// Package metrics exposes grid-monitor runtime state as Prometheus collectors.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_monitor"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultDropped = "dropped"
)

// Metrics holds the registered collectors.
type Metrics struct {
	filteredReading  prometheus.Gauge
	gridOnline       prometheus.Gauge
	relayOn          prometheus.Gauge
	manualMode       prometheus.Gauge
	stabilityCount   prometheus.Gauge
	connectivity     prometheus.Gauge
	heapBytes        prometheus.Gauge
	memAvailable     prometheus.Gauge
	stateChanges     *prometheus.CounterVec
	commands         *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	connectAttempts  *prometheus.CounterVec
	sensorReadErrors prometheus.Counter
	cycleErrors      prometheus.Counter
	cycleDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		filteredReading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filtered_reading",
			Help:      "Last outlier-trimmed sensor reading (raw ADC units).",
		}),
		gridOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_online",
			Help:      "1 if the confirmed verdict is online, 0 otherwise.",
		}),
		relayOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_on",
			Help:      "1 if the relay output is energized.",
		}),
		manualMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_manual",
			Help:      "1 if the relay is under manual override.",
		}),
		stabilityCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stability_count",
			Help:      "Consecutive readings agreeing with the pending verdict.",
		}),
		connectivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectivity_state",
			Help:      "0 = network down, 1 = broker down, 2 = connected.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Go heap in use at the last health check.",
		}),
		memAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mem_available_bytes",
			Help:      "System available memory at the last health check.",
		}),
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Confirmed grid verdict changes by new verdict.",
		}, []string{"to"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound commands by kind.",
		}, []string{"command"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_publishes_total",
			Help:      "Status publish attempts by result.",
		}, []string{"result"}),
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by layer and result.",
		}, []string{"layer", "result"}),
		sensorReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_read_errors_total",
			Help:      "Raw ADC reads that failed and were counted as zero.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Control cycles that failed or panicked.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one control cycle, excluding the inter-cycle sleep.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.filteredReading, m.gridOnline, m.relayOn, m.manualMode, m.stabilityCount,
		m.connectivity, m.heapBytes, m.memAvailable, m.stateChanges, m.commands,
		m.publishes, m.connectAttempts, m.sensorReadErrors, m.cycleErrors, m.cycleDuration,
	)
	return m
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ObserveCycle records the outcome of one control cycle.
func (m *Metrics) ObserveCycle(reading, stability int, online, relay, manual bool, seconds float64) {
	if m == nil {
		return
	}
	m.filteredReading.Set(float64(reading))
	m.stabilityCount.Set(float64(stability))
	m.gridOnline.Set(boolGauge(online))
	m.relayOn.Set(boolGauge(relay))
	m.manualMode.Set(boolGauge(manual))
	m.cycleDuration.Observe(seconds)
}

// StateChanged counts a confirmed verdict change.
func (m *Metrics) StateChanged(to string) {
	if m == nil {
		return
	}
	m.stateChanges.WithLabelValues(to).Inc()
}

// Command counts an inbound command.
func (m *Metrics) Command(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

// Publish counts a status publish attempt. sent=false with err=nil means dropped while offline.
func (m *Metrics) Publish(sent bool, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.publishes.WithLabelValues(resultError).Inc()
	case sent:
		m.publishes.WithLabelValues(resultSuccess).Inc()
	default:
		m.publishes.WithLabelValues(resultDropped).Inc()
	}
}

// ConnectAttempt counts a connection attempt at layer ("network" or "broker").
func (m *Metrics) ConnectAttempt(layer string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.connectAttempts.WithLabelValues(layer, result).Inc()
}

// Connectivity records the connectivity state as its ordinal.
func (m *Metrics) Connectivity(state int) {
	if m == nil {
		return
	}
	m.connectivity.Set(float64(state))
}

// SensorReadErrors adds n failed raw reads.
func (m *Metrics) SensorReadErrors(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sensorReadErrors.Add(float64(n))
}

// CycleError counts a failed cycle.
func (m *Metrics) CycleError() {
	if m == nil {
		return
	}
	m.cycleErrors.Inc()
}

// Health records the results of a resource health check.
func (m *Metrics) Health(heapAlloc, memAvailable uint64) {
	if m == nil {
		return
	}
	m.heapBytes.Set(float64(heapAlloc))
	if memAvailable > 0 {
		m.memAvailable.Set(float64(memAvailable))
	}
}
