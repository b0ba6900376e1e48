package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/grid-monitor/internal/config"
)

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.getenv = func(k string) string { return env[k] }
	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func effectiveConfig(t *testing.T, env map[string]string, args ...string) config.Config {
	t.Helper()
	out, err := execute(t, env, append([]string{"config"}, args...)...)
	if err != nil {
		t.Fatalf("config %v: %v", args, err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("parse output: %v\n%s", err, out)
	}
	return cfg
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg := effectiveConfig(t, nil)
	if cfg != config.Default() {
		t.Errorf("defaults changed through the CLI:\n got %+v\nwant %+v", cfg, config.Default())
	}
}

func TestFlagsOverrideFileAndPreset(t *testing.T) {
	path := writeFile(t, "c.yaml", "device_id: FROM_FILE\ndetector:\n  high: 3100\n  low: 2100\n")
	cfg := effectiveConfig(t, nil,
		"--config", path,
		"--preset", "industrial_220v",
		"--low", "2400",
		"--cycle", "1s",
		"--http", "off",
	)

	if cfg.DeviceID != "FROM_FILE" {
		t.Errorf("device id: got %q", cfg.DeviceID)
	}
	// Preset flag replaces the file's thresholds; the explicit flag wins over the preset.
	if cfg.Detector.High != 2900 || cfg.Detector.Low != 2400 || cfg.Detector.MinStable != 5 {
		t.Errorf("detector: got %+v", cfg.Detector)
	}
	if cfg.Loop.Cycle != time.Second {
		t.Errorf("cycle: got %v", cfg.Loop.Cycle)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("http should be disabled, got %q", cfg.HTTPAddr)
	}
}

func TestEnvSecretsRedacted(t *testing.T) {
	out, err := execute(t, map[string]string{config.EnvMQTTPassword: "s3cret"}, "config")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "s3cret") {
		t.Error("password leaked in config output")
	}
	if !strings.Contains(out, redacted) {
		t.Error("expected redacted password marker")
	}
}

func TestInvalidThresholdsAreFatal(t *testing.T) {
	_, err := execute(t, nil, "config", "--high", "2600", "--low", "2650")
	var fatal *config.FatalConfigurationError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalConfigurationError, got %v", err)
	}
}

func TestUnknownPresetFlag(t *testing.T) {
	_, err := execute(t, nil, "config", "--preset", "coastal")
	var fatal *config.FatalConfigurationError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalConfigurationError, got %v", err)
	}
}

func TestRunRejectsBadConfigBeforeStarting(t *testing.T) {
	_, err := execute(t, nil, "run", "--simulate", "--min-stable", "0")
	var fatal *config.FatalConfigurationError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalConfigurationError, got %v", err)
	}
}

func TestPresetsCommand(t *testing.T) {
	out, err := execute(t, nil, "presets")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "residential_220v", "rural_unstable", "2300"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReadSimulated(t *testing.T) {
	out, err := execute(t, nil, "read", "--simulate", "--samples", "3", "--trim", "0", "-n", "2")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 readings, got %q", out)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "reading=") || !strings.Contains(l, "band=") {
			t.Errorf("unexpected line %q", l)
		}
	}
}

func TestReadMissingADC(t *testing.T) {
	_, err := execute(t, nil, "read", "--adc", filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing ADC channel")
	}
}

func TestBand(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		v    int
		want string
	}{
		{2751, "above-high"},
		{2750, "hysteresis"},
		{2651, "hysteresis"},
		{2650, "below-low"},
	}
	for _, tt := range tests {
		if got := band(cfg, tt.v); got != tt.want {
			t.Errorf("band(%d): got %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestCalibrateCommand(t *testing.T) {
	on := writeFile(t, "on.txt", "2900 2950\n3000, 2850\n")
	off := writeFile(t, "off.txt", "1000\n1100\n1200\n900\n")
	history := writeFile(t, "history.txt", "2800 2810 2805 2790 2800 2820 2815 2800 2795 2805\n")

	out, err := execute(t, nil, "calibrate", "--on", on, "--off", off, "--history", history)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"high=2662 low=1387", "stability:  100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCalibrateNeedsInput(t *testing.T) {
	if _, err := execute(t, nil, "calibrate", "--on", "x"); err == nil {
		t.Error("expected error without --off or --history")
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	sc := statusConfig(cfg)
	if sc.Broker != "tcp://192.168.1.100:1883" {
		t.Errorf("broker: got %q", sc.Broker)
	}
	if sc.CycleMs != 2000 || sc.HeartbeatMs != 300000 {
		t.Errorf("timings: %+v", sc)
	}
}
