// Package config loads, overrides and validates grid-monitor settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/grid-monitor/internal/connectivity"
	"github.com/sweeney/grid-monitor/internal/gpio"
	"github.com/sweeney/grid-monitor/internal/logic"
	"github.com/sweeney/grid-monitor/internal/mqtt"
	"github.com/sweeney/grid-monitor/internal/sensor"
)

// Environment variables that override secrets from the file or flags.
const (
	EnvMQTTPassword = "GRID_MQTT_PASSWORD"
	EnvWiFiPassword = "GRID_WIFI_PASSWORD"
)

// Config is the complete daemon configuration.
type Config struct {
	DeviceID string         `yaml:"device_id" validate:"required,max=64"`
	Preset   string         `yaml:"preset" validate:"omitempty,preset"`
	Detector DetectorConfig `yaml:"detector"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Loop     LoopConfig     `yaml:"loop"`
	WiFi     WiFiConfig     `yaml:"wifi"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	HTTPAddr string         `yaml:"http_addr"`
	Watchdog string         `yaml:"watchdog"`
}

// DetectorConfig holds the hysteresis thresholds and debounce count.
type DetectorConfig struct {
	High      int `yaml:"high" validate:"gtfield=Low,lte=65535"`
	Low       int `yaml:"low" validate:"gte=0"`
	MinStable int `yaml:"min_stable" validate:"gte=1,lte=1000"`
}

// SamplerConfig describes the ADC and the sampling burst.
type SamplerConfig struct {
	Path     string        `yaml:"path"`
	Simulate bool          `yaml:"simulate"`
	Samples  int           `yaml:"samples" validate:"gte=1,lte=1000"`
	Trim     int           `yaml:"trim" validate:"gte=0,ltfield=Samples"`
	Delay    time.Duration `yaml:"delay" validate:"gte=0"`
	MaxRaw   int           `yaml:"max_raw" validate:"gt=0"`
}

// LoopConfig sets control loop pacing.
type LoopConfig struct {
	Cycle        time.Duration `yaml:"cycle" validate:"gt=0"`
	Heartbeat    time.Duration `yaml:"heartbeat" validate:"gtefield=Cycle"`
	ErrorBackoff time.Duration `yaml:"error_backoff" validate:"gte=0"`
	HealthEvery  int           `yaml:"health_every" validate:"gte=0"`
	History      int           `yaml:"history" validate:"gte=1,lte=1000"`
}

// WiFiConfig configures the network layer. An empty SSID means the
// interface is managed elsewhere and only its state is checked.
type WiFiConfig struct {
	Interface string        `yaml:"interface" validate:"required"`
	SSID      string        `yaml:"ssid"`
	Password  string        `yaml:"password"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
}

// MQTTConfig configures the broker session.
type MQTTConfig struct {
	Host      string        `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port      int           `yaml:"port" validate:"gte=1,lte=65535"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	KeepAlive time.Duration `yaml:"keepalive" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	Retained  bool          `yaml:"retained"`
}

// GPIOConfig selects the output lines.
type GPIOConfig struct {
	Chip          string        `yaml:"chip" validate:"required"`
	RelayPin      int           `yaml:"relay_pin" validate:"gte=0"`
	LEDPin        int           `yaml:"led_pin" validate:"gte=-1"`
	ActiveLow     bool          `yaml:"active_low"`
	SelfTest      bool          `yaml:"relay_self_test"`
	SelfTestPulse time.Duration `yaml:"self_test_pulse" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DeviceID: "GRID_MONITOR_C3B",
		Detector: DetectorConfig{High: 2750, Low: 2650, MinStable: 3},
		Sampler: SamplerConfig{
			Path:    sensor.DefaultIIOPath,
			Samples: 20,
			Trim:    4,
			Delay:   20 * time.Millisecond,
			MaxRaw:  sensor.MaxRaw,
		},
		Loop: LoopConfig{
			Cycle:        2 * time.Second,
			Heartbeat:    300 * time.Second,
			ErrorBackoff: 5 * time.Second,
			HealthEvery:  50,
			History:      10,
		},
		WiFi: WiFiConfig{
			Interface: "wlan0",
			Timeout:   30 * time.Second,
		},
		MQTT: MQTTConfig{
			Host:      "192.168.1.100",
			Port:      1883,
			KeepAlive: 60 * time.Second,
			Timeout:   10 * time.Second,
		},
		GPIO: GPIOConfig{
			Chip:          "gpiochip0",
			RelayPin:      gpio.DefaultPinRelay,
			LEDPin:        gpio.DefaultPinLED,
			SelfTest:      true,
			SelfTestPulse: 500 * time.Millisecond,
		},
		HTTPAddr: ":8080",
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults. A preset named in the file is applied first, so
// thresholds set explicitly in the same file win over it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if head.Preset != "" {
		if err := cfg.ApplyPreset(head.Preset); err != nil {
			return cfg, &FatalConfigurationError{Err: err}
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets from the environment. getenv is os.Getenv in production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvMQTTPassword); v != "" {
		c.MQTT.Password = v
	}
	if v := getenv(EnvWiFiPassword); v != "" {
		c.WiFi.Password = v
	}
}

// FatalConfigurationError reports settings the daemon cannot start with.
type FatalConfigurationError struct {
	Err error
}

func (e *FatalConfigurationError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *FatalConfigurationError) Unwrap() error {
	return e.Err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
		_, ok := presets[fl.Field().String()]
		return ok
	})
	return v
}

// Validate checks c and returns a *FatalConfigurationError describing every
// failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &FatalConfigurationError{Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &FatalConfigurationError{Err: errors.New(strings.Join(msgs, "; "))}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "gtfield":
		return fmt.Sprintf("%s (%v) must be greater than %s", field, fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s (%v) must be at least %s", field, fe.Value(), fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s (%v) must be less than %s", field, fe.Value(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "preset":
		return fmt.Sprintf("%s: unknown preset %q", field, fe.Value())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s (%v) fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s (%v) fails %s", field, fe.Value(), fe.Tag())
}

// Thresholds returns the detector thresholds.
func (c Config) Thresholds() logic.Thresholds {
	return logic.Thresholds{
		High:      c.Detector.High,
		Low:       c.Detector.Low,
		MinStable: c.Detector.MinStable,
	}
}

// SamplerSettings returns the sampling burst shape.
func (c Config) SamplerSettings() sensor.SamplerConfig {
	return sensor.SamplerConfig{
		Samples: c.Sampler.Samples,
		Trim:    c.Sampler.Trim,
		Delay:   c.Sampler.Delay,
		MaxRaw:  c.Sampler.MaxRaw,
	}
}

// Topics returns the MQTT topics for this device.
func (c Config) Topics() mqtt.Topics {
	return mqtt.TopicsFor(c.DeviceID)
}

// Connectivity returns the connection manager settings.
func (c Config) Connectivity() connectivity.Config {
	topics := c.Topics()
	return connectivity.Config{
		SSID:         c.WiFi.SSID,
		WiFiPassword: c.WiFi.Password,
		WiFiTimeout:  c.WiFi.Timeout,
		Broker: mqtt.ConnectOptions{
			Host:        c.MQTT.Host,
			Port:        c.MQTT.Port,
			ClientID:    c.DeviceID,
			Username:    c.MQTT.Username,
			Password:    c.MQTT.Password,
			KeepAlive:   c.MQTT.KeepAlive,
			Timeout:     c.MQTT.Timeout,
			WillTopic:   topics.Availability,
			WillPayload: mqtt.AvailabilityOffline,
		},
		CommandTopic:      topics.Command,
		AvailabilityTopic: topics.Availability,
	}
}
