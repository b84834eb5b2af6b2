package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/panel"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval: got %v, want 1s", cfg.TickInterval)
	}
	if got, want := cfg.Settings(), panel.DefaultSettings(); got != want {
		t.Errorf("Settings: got %+v, want %+v", got, want)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.MQTT.Broker != "" || cfg.MQTT.ClientID != "microwave" {
		t.Errorf("MQTT: got %+v", cfg.MQTT)
	}
	if cfg.GPIO.Enabled {
		t.Error("gpio should default to disabled")
	}
	if cfg.GPIO.Pins.Board() != gpio.DefaultPins {
		t.Errorf("pins: got %+v, want %+v", cfg.GPIO.Pins.Board(), gpio.DefaultPins)
	}
	if cfg.GPIO.Debounce != 30*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.GPIO.Debounce)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "microwave.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
tick_interval: 250ms
max_power: 1000
power_step: 100
time_step: 30
door_policy: resume
log_level: debug
mqtt:
  broker: tcp://broker.local:1883
history:
  path: ""
gpio:
  enabled: true
  debounce: 10ms
  pins:
    door: 26
`)
	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval: got %v", cfg.TickInterval)
	}
	want := panel.Settings{PowerStep: 100, MaxPower: 1000, TimeStep: 30, DoorPolicy: panel.DoorResume}
	if got := cfg.Settings(); got != want {
		t.Errorf("Settings: got %+v, want %+v", got, want)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.History.Path != "" {
		t.Errorf("history path: got %q, want empty", cfg.History.Path)
	}
	if !cfg.GPIO.Enabled || cfg.GPIO.Debounce != 10*time.Millisecond {
		t.Errorf("gpio: got %+v", cfg.GPIO)
	}
	if cfg.GPIO.Pins.Door != 26 || cfg.GPIO.Pins.Power != gpio.DefaultPins.Power {
		t.Errorf("pins: got %+v", cfg.GPIO.Pins)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "max_power: 1000\nmqtt:\n  broker: tcp://file:1883\n")
	t.Setenv("MICROWAVE_MAX_POWER", "800")
	t.Setenv("MICROWAVE_MQTT_BROKER", "tcp://env:1883")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxPower != 800 {
		t.Errorf("MaxPower: got %d, want 800", cfg.MaxPower)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("got %v, want read config error", err)
	}
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tick", func(c *Config) { c.TickInterval = 0 }, "tick_interval"},
		{"power step", func(c *Config) { c.PowerStep = 0 }, "power_step"},
		{"max below step", func(c *Config) { c.MaxPower = 10 }, "max_power"},
		{"step does not divide max", func(c *Config) { c.PowerStep = 300; c.MaxPower = 700 }, "not a multiple of power_step"},
		{"time step", func(c *Config) { c.TimeStep = -5 }, "time_step"},
		{"door policy", func(c *Config) { c.DoorPolicy = "ignore" }, "door policy"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"gpio chip", func(c *Config) { c.GPIO.Enabled = true; c.GPIO.Chip = "" }, "gpio.chip"},
		{"gpio pins", func(c *Config) { c.GPIO.Enabled = true; c.GPIO.Pins.Door = c.GPIO.Pins.Power }, "door"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}

	// Pin clashes are only checked when the board is in use.
	cfg := base
	cfg.GPIO.Pins.Door = cfg.GPIO.Pins.Power
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled gpio should skip pin checks: %v", err)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg, _ := Load(New(), "")
	cfg.TimeStep = 0
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"time_step", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}
