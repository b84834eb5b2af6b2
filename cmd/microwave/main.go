// Command microwave runs the oven controller as a daemon, a terminal
// simulator or a scripted replay.
package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/panel"
	"github.com/sweeney/microwave/internal/status"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// eventFor maps a physical input to the panel event it raises.
func eventFor(in gpio.Input) (panel.Event, bool) {
	switch in {
	case gpio.InputPower:
		return panel.EventPowerPressed, true
	case gpio.InputTime:
		return panel.EventTimePressed, true
	case gpio.InputStartCancel:
		return panel.EventStartCancelPressed, true
	case gpio.InputDoorOpened:
		return panel.EventDoorOpened, true
	case gpio.InputDoorClosed:
		return panel.EventDoorClosed, true
	default:
		return "", false
	}
}
