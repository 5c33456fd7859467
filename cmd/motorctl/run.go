package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/motorctl/internal/config"
	"github.com/sweeney/motorctl/internal/control"
	"github.com/sweeney/motorctl/internal/gpio"
	"github.com/sweeney/motorctl/internal/mqtt"
	"github.com/sweeney/motorctl/internal/sim"
	"github.com/sweeney/motorctl/internal/status"
	"github.com/sweeney/motorctl/internal/web"
)

// telemetryQueue is the number of samples buffered between the loop and
// the MQTT worker.
const telemetryQueue = 64

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
	if heartbeat >= 0 {
		cfg.MQTT.Heartbeat = heartbeat
	}
	return run(cfg, dryRun)
}

func run(cfg *config.Config, dryRun bool) error {
	cc := cfg.ControlConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		source   gpio.EdgeSource
		actuator control.Actuator
	)
	if dryRun {
		motor := sim.NewMotor(plantFor(cc), time.Second)
		defer motor.Close()
		go motor.RunRealtime(ctx, time.Millisecond)
		source, actuator = motor, motor
		log.Printf("dry run: driving simulated motor")
	} else {
		pins := cfg.GPIOPins()
		enc, err := gpio.NewRealEncoder(pins)
		if err != nil {
			return fmt.Errorf("init encoder: %w", err)
		}
		defer enc.Close()
		bridge, err := gpio.NewRealHBridge(pins)
		if err != nil {
			return fmt.Errorf("init h-bridge: %w", err)
		}
		defer bridge.Close()
		source, actuator = enc, bridge
	}

	encoder := control.NewEncoderState(cc.MinEventGap)
	if err := source.Start(recordEdges(encoder)); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, dryRun))
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	worker := mqtt.NewTelemetryWorker(publisher, cfg.MQTT.TelemetryInterval, telemetryQueue)
	go worker.Run(ctx)
	defer func() {
		cancel()
		<-worker.Done()
	}()

	log.Printf("started: kp=%g ki=%g kd=%g tick=%v report=%v broker=%s heartbeat=%v",
		cc.Kp, cc.Ki, cc.Kd, cc.TickInterval, cc.ReportInterval, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cc.TickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		cfg:        cc,
		encoder:    encoder,
		actuator:   actuator,
		telemetry:  worker,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
	}
	return d.runLoop(ticker.C, sigCh)
}

// daemon holds the collaborators of the control loop. Optional fields
// (telemetry, mqttStatus, tracker) may be nil.
type daemon struct {
	cfg        control.Config
	encoder    *control.EncoderState
	actuator   control.Actuator
	telemetry  *mqtt.TelemetryWorker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
}

func (d *daemon) runLoop(tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := d.now()
	loop := control.NewLoop(d.cfg, d.encoder, d.actuator, startTime)
	reporter := control.NewReporter(d.cfg.ReportInterval)
	lastHeartbeat := startTime
	actuatorFailing := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := loop.Stop(); err != nil {
				log.Printf("failed to stop motor: %v", err)
			} else {
				log.Printf("motor commanded to neutral")
			}

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     mqtt.EventShutdown,
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshConnection()
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, mqtt.EventShutdown, signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			sample, err := loop.Step(t)
			if err != nil {
				// Log the first failure of a streak only; the loop runs at 1 kHz.
				if !actuatorFailing {
					log.Printf("actuator error: %v", err)
				}
				actuatorFailing = true
			} else if actuatorFailing {
				log.Printf("actuator recovered")
				actuatorFailing = false
			}

			if d.telemetry != nil {
				d.telemetry.Offer(sample)
			}
			if d.tracker != nil {
				d.tracker.Update(sample)
			}

			if reporter.Due(t) {
				log.Print(control.FormatSample(sample))
				d.refreshConnection()
			}

			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				d.publishHeartbeat(t, sample)
			}
		}
	}
}

func (d *daemon) publishHeartbeat(t time.Time, sample control.Sample) {
	log.Printf("heartbeat: uptime=%v steps=%d rejected=%d", sample.Elapsed.Truncate(time.Second), sample.Steps, sample.Rejected)

	hbEvent := mqtt.SystemEvent{
		Timestamp: t,
		Event:     mqtt.EventHeartbeat,
	}
	if d.tracker != nil {
		d.refreshConnection()
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			d.tracker.SetNetwork(net)
		}
		snap := d.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, mqtt.EventHeartbeat, "")
	}
	if err := d.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (d *daemon) refreshConnection() {
	if d.tracker != nil && d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// recordEdges adapts the hardware edge callback to the shared encoder record.
func recordEdges(enc *control.EncoderState) func(gpio.Edge) {
	return func(e gpio.Edge) {
		enc.Record(control.Edge{Time: e.Time, Partner: e.Partner})
	}
}

// plantFor matches the simulated encoder to the configured resolution.
func plantFor(cc control.Config) sim.PlantConfig {
	plant := sim.DefaultPlantConfig()
	plant.StepsPerRevolution = cc.StepsPerRevolution
	plant.UnitsPerRevolution = cc.UnitsPerRevolution
	return plant
}

func statusConfig(cfg *config.Config, dryRun bool) status.Config {
	cc := cfg.Control
	return status.Config{
		Kp:                 cc.Kp,
		Ki:                 cc.Ki,
		Kd:                 cc.Kd,
		SetpointHigh:       cc.SetpointHigh,
		SetpointLow:        cc.SetpointLow,
		StepsPerRevolution: cc.StepsPerRevolution,
		HoldMs:             cc.HoldPeriod.Milliseconds(),
		TickMs:             cc.TickInterval.Milliseconds(),
		ReportMs:           cc.ReportInterval.Milliseconds(),
		TelemetryMs:        cfg.MQTT.TelemetryInterval.Milliseconds(),
		HeartbeatMs:        cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:             cfg.MQTT.Broker,
		HTTPAddr:           cfg.HTTP.Addr,
		DryRun:             dryRun,
	}
}
