// Package config loads daemon settings from defaults, an optional YAML file
// and MICROWAVE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/panel"
)

// EnvPrefix is prepended to every environment override, e.g.
// MICROWAVE_MQTT_BROKER.
const EnvPrefix = "MICROWAVE"

// Config is the full daemon configuration.
type Config struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MaxPower     int           `mapstructure:"max_power"`
	PowerStep    int           `mapstructure:"power_step"`
	TimeStep     int           `mapstructure:"time_step"`
	DoorPolicy   string        `mapstructure:"door_policy"`
	LogLevel     string        `mapstructure:"log_level"`
	HTTPAddr     string        `mapstructure:"http_addr"`
	MQTT         MQTT          `mapstructure:"mqtt"`
	History      History       `mapstructure:"history"`
	GPIO         GPIO          `mapstructure:"gpio"`
}

// MQTT configures the broker connection. An empty broker disables it.
type MQTT struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
}

// History configures the session database. An empty path disables it.
type History struct {
	Path string `mapstructure:"path"`
}

// GPIO configures the physical panel.
type GPIO struct {
	Enabled  bool          `mapstructure:"enabled"`
	Chip     string        `mapstructure:"chip"`
	Debounce time.Duration `mapstructure:"debounce"`
	Pins     Pins          `mapstructure:"pins"`
}

// Pins are BCM line offsets.
type Pins struct {
	Power       int `mapstructure:"power"`
	Time        int `mapstructure:"time"`
	StartCancel int `mapstructure:"start_cancel"`
	Door        int `mapstructure:"door"`
	Tube        int `mapstructure:"tube"`
	Light       int `mapstructure:"light"`
}

func setDefaults(v *viper.Viper) {
	s := panel.DefaultSettings()
	v.SetDefault("tick_interval", time.Second)
	v.SetDefault("max_power", s.MaxPower)
	v.SetDefault("power_step", s.PowerStep)
	v.SetDefault("time_step", s.TimeStep)
	v.SetDefault("door_policy", string(s.DoorPolicy))
	v.SetDefault("log_level", logger.InfoLevel)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "microwave")
	v.SetDefault("history.path", "microwave.db")
	v.SetDefault("gpio.enabled", false)
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.debounce", 30*time.Millisecond)
	v.SetDefault("gpio.pins.power", gpio.DefaultPins.Power)
	v.SetDefault("gpio.pins.time", gpio.DefaultPins.Time)
	v.SetDefault("gpio.pins.start_cancel", gpio.DefaultPins.StartCancel)
	v.SetDefault("gpio.pins.door", gpio.DefaultPins.Door)
	v.SetDefault("gpio.pins.tube", gpio.DefaultPins.Tube)
	v.SetDefault("gpio.pins.light", gpio.DefaultPins.Light)
}

// New returns a viper instance with defaults and environment binding set.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (when non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values the oven cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}
	if c.PowerStep <= 0 {
		errs = append(errs, fmt.Errorf("power_step must be positive, got %d", c.PowerStep))
	}
	if c.MaxPower < c.PowerStep {
		errs = append(errs, fmt.Errorf("max_power %d is below power_step %d", c.MaxPower, c.PowerStep))
	} else if c.PowerStep > 0 && c.MaxPower%c.PowerStep != 0 {
		errs = append(errs, fmt.Errorf("max_power %d is not a multiple of power_step %d", c.MaxPower, c.PowerStep))
	}
	if c.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("time_step must be positive, got %d", c.TimeStep))
	}
	if _, err := panel.ParseDoorPolicy(c.DoorPolicy); err != nil {
		errs = append(errs, err)
	}
	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.GPIO.Enabled {
		if c.GPIO.Chip == "" {
			errs = append(errs, errors.New("gpio.chip is required when gpio is enabled"))
		}
		if c.GPIO.Debounce < 0 {
			errs = append(errs, fmt.Errorf("gpio.debounce must not be negative, got %v", c.GPIO.Debounce))
		}
		if err := c.GPIO.Pins.Board().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Settings returns the panel settings.
func (c Config) Settings() panel.Settings {
	policy, _ := panel.ParseDoorPolicy(c.DoorPolicy)
	return panel.Settings{
		PowerStep:  c.PowerStep,
		MaxPower:   c.MaxPower,
		TimeStep:   c.TimeStep,
		DoorPolicy: policy,
	}
}

// Board converts the pin block to gpio.Pins.
func (p Pins) Board() gpio.Pins {
	return gpio.Pins{
		Power:       p.Power,
		Time:        p.Time,
		StartCancel: p.StartCancel,
		Door:        p.Door,
		Tube:        p.Tube,
		Light:       p.Light,
	}
}
