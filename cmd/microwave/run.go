package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/history"
	"github.com/sweeney/microwave/internal/mqtt"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the oven daemon",
		Long: `Run the oven with its HTTP API, and optionally the GPIO panel, the MQTT
forwarder and the session history database.`,
		Example: `  # Run with a config file
  microwave run -c /etc/microwave.yaml

  # Run against a broker without GPIO
  microwave run --broker tcp://192.168.1.200:1883`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyRunFlags(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runDaemon(a)
		},
	}

	cmd.Flags().String("http", "", "HTTP listen address (overrides http_addr)")
	cmd.Flags().String("broker", "", "MQTT broker URL (overrides mqtt.broker)")
	cmd.Flags().Bool("gpio", false, "drive the GPIO panel (overrides gpio.enabled)")
	cmd.Flags().String("db", "", "session history database (overrides history.path)")
	cmd.Flags().Duration("tick", 0, "countdown step (overrides tick_interval)")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	if f.Changed("http") {
		a.cfg.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("broker") {
		a.cfg.MQTT.Broker, _ = f.GetString("broker")
	}
	if f.Changed("gpio") {
		a.cfg.GPIO.Enabled, _ = f.GetBool("gpio")
	}
	if f.Changed("db") {
		a.cfg.History.Path, _ = f.GetString("db")
	}
	if f.Changed("tick") {
		a.cfg.TickInterval, _ = f.GetDuration("tick")
	}
}

func runDaemon(a *app) error {
	cfg, log := a.cfg, a.log
	d := &daemon{cfg: cfg, log: log}

	if cfg.History.Path != "" {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		d.store = history.NewStore(db)
	}

	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, log.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		d.pub, d.conn = pub, pub
	}

	if cfg.GPIO.Enabled {
		board, err := gpio.NewBoard(cfg.GPIO.Chip, cfg.GPIO.Pins.Board(), cfg.GPIO.Debounce)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer func() {
			if err := board.Close(); err != nil {
				log.Warnw("close gpio", "err", err)
			}
		}()
		d.inputs = board
		d.tube, d.light = board.TubeSwitch(), board.LightSwitch()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return d.run(sigCh)
}
