package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/grid-monitor/internal/config"
	"github.com/sweeney/grid-monitor/internal/sensor"
)

// app holds flag values shared by the subcommands.
type app struct {
	configPath string
	preset     string
	deviceID   string
	high       int
	low        int
	minStable  int
	samples    int
	trim       int
	adcPath    string
	simulate   bool

	mqttHost  string
	mqttPort  int
	mqttUser  string
	retained  bool
	ssid      string
	iface     string
	cycle     time.Duration
	heartbeat time.Duration
	httpAddr  string
	gpioChip  string
	relayPin  int
	ledPin    int
	activeLow bool
	selfTest  bool
	watchdog  string

	getenv func(string) string
}

func newApp() *app {
	return &app{getenv: os.Getenv}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grid-monitor",
		Short:         "Mains presence monitor with backup relay and MQTT reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.preset, "preset", "", "calibration preset (see 'presets')")
	pf.StringVar(&a.deviceID, "device-id", "", "device id used in MQTT topics")
	pf.IntVar(&a.high, "high", 0, "threshold to confirm grid online")
	pf.IntVar(&a.low, "low", 0, "threshold to confirm grid offline")
	pf.IntVar(&a.minStable, "min-stable", 0, "consecutive agreeing readings to flip")
	pf.IntVar(&a.samples, "samples", 0, "raw samples per reading")
	pf.IntVar(&a.trim, "trim", 0, "outliers dropped per reading (half from each end)")
	pf.StringVar(&a.adcPath, "adc", sensor.DefaultIIOPath, "IIO sysfs file for the ADC channel")
	pf.BoolVar(&a.simulate, "simulate", false, "use a simulated ADC")

	root.AddCommand(a.runCmd(), a.readCmd(), a.calibrateCmd(), a.presetsCmd(), a.configCmd())
	return root
}

func (a *app) bindDaemonFlags(f *pflag.FlagSet) {
	f.StringVar(&a.mqttHost, "mqtt-host", "", "MQTT broker host")
	f.IntVar(&a.mqttPort, "mqtt-port", 0, "MQTT broker port")
	f.StringVar(&a.mqttUser, "mqtt-user", "", "MQTT username (password from "+config.EnvMQTTPassword+")")
	f.BoolVar(&a.retained, "retained", false, "publish status retained")
	f.StringVar(&a.ssid, "ssid", "", "WiFi SSID to join (password from "+config.EnvWiFiPassword+")")
	f.StringVar(&a.iface, "iface", "", "network interface to watch")
	f.DurationVar(&a.cycle, "cycle", 0, "control loop period")
	f.DurationVar(&a.heartbeat, "heartbeat", 0, "status heartbeat interval")
	f.StringVar(&a.httpAddr, "http", "", `HTTP status address ("off" disables)`)
	f.StringVar(&a.gpioChip, "gpio-chip", "", "GPIO chip name")
	f.IntVar(&a.relayPin, "relay-pin", 0, "BCM pin driving the relay")
	f.IntVar(&a.ledPin, "led-pin", 0, "BCM pin driving the indicator LED (-1 disables)")
	f.BoolVar(&a.activeLow, "active-low", false, "outputs are active low")
	f.BoolVar(&a.selfTest, "self-test", true, "pulse the relay once at startup")
	f.StringVar(&a.watchdog, "watchdog", "", "watchdog device to feed (e.g. /dev/watchdog)")
}

// loadConfig resolves the effective configuration: file, then preset, then
// explicitly set flags, then environment secrets. It validates the result.
func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return cfg, err
	}

	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if set("preset") {
		if err := cfg.ApplyPreset(a.preset); err != nil {
			return cfg, &config.FatalConfigurationError{Err: err}
		}
	}
	if set("device-id") {
		cfg.DeviceID = a.deviceID
	}
	if set("high") {
		cfg.Detector.High = a.high
	}
	if set("low") {
		cfg.Detector.Low = a.low
	}
	if set("min-stable") {
		cfg.Detector.MinStable = a.minStable
	}
	if set("samples") {
		cfg.Sampler.Samples = a.samples
	}
	if set("trim") {
		cfg.Sampler.Trim = a.trim
	}
	if set("adc") {
		cfg.Sampler.Path = a.adcPath
	}
	if set("simulate") {
		cfg.Sampler.Simulate = a.simulate
	}
	if set("mqtt-host") {
		cfg.MQTT.Host = a.mqttHost
	}
	if set("mqtt-port") {
		cfg.MQTT.Port = a.mqttPort
	}
	if set("mqtt-user") {
		cfg.MQTT.Username = a.mqttUser
	}
	if set("retained") {
		cfg.MQTT.Retained = a.retained
	}
	if set("ssid") {
		cfg.WiFi.SSID = a.ssid
	}
	if set("iface") {
		cfg.WiFi.Interface = a.iface
	}
	if set("cycle") {
		cfg.Loop.Cycle = a.cycle
	}
	if set("heartbeat") {
		cfg.Loop.Heartbeat = a.heartbeat
	}
	if set("http") {
		cfg.HTTPAddr = a.httpAddr
		if a.httpAddr == "off" {
			cfg.HTTPAddr = ""
		}
	}
	if set("gpio-chip") {
		cfg.GPIO.Chip = a.gpioChip
	}
	if set("relay-pin") {
		cfg.GPIO.RelayPin = a.relayPin
	}
	if set("led-pin") {
		cfg.GPIO.LEDPin = a.ledPin
	}
	if set("active-low") {
		cfg.GPIO.ActiveLow = a.activeLow
	}
	if set("self-test") {
		cfg.GPIO.SelfTest = a.selfTest
	}
	if set("watchdog") {
		cfg.Watchdog = a.watchdog
	}

	cfg.ApplyEnv(a.getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openADC(cfg config.Config) (sensor.ADC, error) {
	if cfg.Sampler.Simulate {
		return sensor.NewSimulatedADC(time.Now().UnixNano()), nil
	}
	adc, err := sensor.NewIIOReader(cfg.Sampler.Path)
	if err != nil {
		return nil, fmt.Errorf("open adc: %w", err)
	}
	return adc, nil
}
