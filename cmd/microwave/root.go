package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sweeney/microwave/internal/config"
	"github.com/sweeney/microwave/internal/logger"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     config.Config
	log     *logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "microwave",
		Short: "Microwave oven controller",
		Long: `Microwave drives a front panel, power tube, light and display.

Inputs come from GPIO buttons, the HTTP API or the keyboard. Every actuator
change is logged as an output record and can be forwarded to MQTT.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file path")
	root.PersistentFlags().String("log-level", logger.InfoLevel, "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCommand(a))
	root.AddCommand(newSimCommand(a))
	root.AddCommand(newReplayCommand(a))
	root.AddCommand(newHistoryCommand(a))

	return root
}
