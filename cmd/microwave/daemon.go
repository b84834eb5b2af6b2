package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sweeney/microwave/internal/config"
	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/history"
	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/metrics"
	"github.com/sweeney/microwave/internal/mqtt"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/status"
	"github.com/sweeney/microwave/internal/web"
)

const shutdownTimeout = 5 * time.Second

// daemon owns one oven and everything attached to it. Optional parts are
// nil when disabled.
type daemon struct {
	cfg    config.Config
	log    *logger.Logger
	now    func() time.Time
	inputs gpio.Source
	tube   hw.Switch
	light  hw.Switch
	pub    mqtt.Publisher
	conn   mqtt.ConnectionStatus
	store  *history.Store
	ln     net.Listener // overrides cfg.HTTPAddr when set

	// started is called once the oven is running. Tests use it.
	started func(*oven.Oven, *status.Tracker)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		TickMs:     cfg.TickInterval.Milliseconds(),
		MaxPower:   cfg.MaxPower,
		PowerStep:  cfg.PowerStep,
		TimeStep:   cfg.TimeStep,
		DoorPolicy: cfg.DoorPolicy,
		Broker:     cfg.MQTT.Broker,
		HTTPPort:   cfg.HTTPAddr,
		GPIO:       cfg.GPIO.Enabled,
	}
}

// run starts the oven and its attachments, then blocks until a signal
// arrives or the input source fails.
func (d *daemon) run(sig <-chan os.Signal) error {
	log := logger.OrNop(d.log)
	now := d.now
	if now == nil {
		now = time.Now
	}

	tracker := status.NewTracker(now(), statusConfig(d.cfg))
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}
	m := metrics.New()

	outs := []hw.Output{hw.NewLogOutput(log.Named("output"))}
	var fw *mqtt.Forwarder
	if d.pub != nil {
		fw = mqtt.NewForwarder(d.pub, log.Named("mqtt"))
		outs = append(outs, fw)
	}

	opts := []oven.Option{
		oven.WithInterval(d.cfg.TickInterval),
		oven.WithSettings(d.cfg.Settings()),
		oven.WithSwitches(d.tube, d.light),
		oven.WithLogger(log.Named("oven")),
		oven.WithCookObserver(tracker),
		oven.WithCookObserver(m),
		oven.WithPanelObserver(tracker),
		oven.WithPanelObserver(m),
		oven.WithListener(d.stateListener(tracker, fw)),
	}
	var rec *history.Recorder
	if d.store != nil {
		rec = history.NewRecorder(d.store, log.Named("history"))
		opts = append(opts, oven.WithCookObserver(rec))
	}
	ov := oven.New(hw.Tee(outs...), opts...)

	d.publishSystem(tracker, "STARTUP", "")

	ovenCtx, stopOven := context.WithCancel(context.Background())
	defer stopOven()
	ovenDone := make(chan error, 1)
	go func() { ovenDone <- ov.Run(ovenCtx) }()

	// Sinks outlive the oven so its last records and sessions are written.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	defer stopSinks()
	var sinks sync.WaitGroup
	if fw != nil {
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			fw.Run(sinkCtx)
		}()
	}
	if rec != nil {
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			rec.Run(sinkCtx)
		}()
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	watchErr := make(chan error, 1)
	if d.inputs != nil {
		go func() {
			watchErr <- d.inputs.Watch(watchCtx, func(in gpio.Input) {
				ev, ok := eventFor(in)
				if !ok {
					log.Warnw("unknown input", "input", in)
					return
				}
				log.Debugw("input", "input", in, "event", ev)
				if err := ov.Submit(watchCtx, ev); err != nil && !errors.Is(err, context.Canceled) {
					log.Warnw("submit input", "input", in, "err", err)
				}
			})
		}()
	}

	var srv *web.Server
	if d.ln != nil || d.cfg.HTTPAddr != "" {
		webOpts := []web.Option{web.WithMetrics(m.Handler()), web.WithLogger(log.Named("web"))}
		if d.store != nil {
			webOpts = append(webOpts, web.WithHistory(d.store))
		}
		srv = web.New(d.cfg.HTTPAddr, tracker, ov, webOpts...)
		go func() {
			var err error
			if d.ln != nil {
				err = srv.Serve(d.ln)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "err", err)
			}
		}()
		log.Infow("http server listening", "addr", d.cfg.HTTPAddr)
	}

	log.Infow("started",
		"tick", d.cfg.TickInterval,
		"max_power", d.cfg.MaxPower,
		"door_policy", d.cfg.DoorPolicy,
		"mqtt", d.pub != nil,
		"gpio", d.inputs != nil,
		"history", d.store != nil,
	)
	if d.started != nil {
		d.started(ov, tracker)
	}

	var runErr error
	reason := "UNKNOWN"
	select {
	case s := <-sig:
		reason = signalName(s)
		log.Infow("received signal, shutting down", "signal", s)
	case err := <-watchErr:
		reason = "GPIO_ERROR"
		if err != nil {
			runErr = fmt.Errorf("watch inputs: %w", err)
		}
	}

	// Inputs first so nothing new arrives, then the oven so its final state
	// reaches the sinks before they drain.
	stopWatch()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			log.Warnw("http shutdown", "err", err)
		}
		cancel()
	}
	stopOven()
	ovenErr := <-ovenDone
	stopSinks()
	sinks.Wait()

	d.publishSystem(tracker, "SHUTDOWN", reason)
	return errors.Join(runErr, ovenErr)
}

// stateListener keeps the tracker current and forwards a STATE event when
// the oven's visible state changes. It runs on the oven goroutine.
func (d *daemon) stateListener(tracker *status.Tracker, fw *mqtt.Forwarder) oven.Listener {
	var last []byte
	return func(s oven.State) {
		tracker.Update(s)
		if d.conn != nil {
			tracker.SetMQTTConnected(d.conn.IsConnected())
		}
		if fw == nil {
			return
		}
		snap := tracker.Snapshot()
		key := status.FormatOvenJSON(snap)
		if bytes.Equal(key, last) {
			return
		}
		last = key
		fw.State(status.FormatStatusEvent(snap, "STATE"))
	}
}

func (d *daemon) publishSystem(tracker *status.Tracker, event, reason string) {
	if d.pub == nil {
		return
	}
	log := logger.OrNop(d.log)
	if d.conn != nil {
		tracker.SetMQTTConnected(d.conn.IsConnected())
	}
	snap := tracker.Snapshot()
	err := d.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event),
	})
	if err != nil {
		log.Warnw("failed to publish system event", "event", event, "err", err)
		return
	}
	log.Infow("published system event", "event", event, "reason", reason)
}
