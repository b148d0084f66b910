package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podctl/internal/config"
	"podctl/internal/motor"
	"podctl/internal/nav"
	"podctl/internal/pod"
	"podctl/internal/rendezvous"
	"podctl/internal/runlog"
	"podctl/internal/sensors"
	"podctl/internal/sim"
	"podctl/internal/statemachine"
	"podctl/internal/telemetry"
)

func main() {
	var configPath string
	var summaryPath string
	flag.StringVar(&configPath, "config", "./podctl.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of the given run-log database and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printRunSummary(summaryPath); err != nil {
			log.Fatalf("run summary failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lockMemory()

	store := pod.NewStore()
	barrier, err := rendezvous.New(2)
	if err != nil {
		log.Fatalf("rendezvous init failed: %v", err)
	}
	machine := statemachine.New(store)

	engine, err := nav.New(cfg.Nav, store, barrier)
	if err != nil {
		log.Fatalf("navigation init failed: %v", err)
	}
	driver, err := motor.New(cfg.Motor, store, barrier)
	if err != nil {
		log.Fatalf("motor init failed: %v", err)
	}

	var scenario *sim.Scenario
	if cfg.Sim.Enable {
		script, err := sim.LoadScenarioScript(cfg.Sim.Scenario)
		if err != nil {
			log.Fatalf("scenario load failed: %v", err)
		}
		scenario, err = sim.NewScenario(script)
		if err != nil {
			log.Fatalf("scenario invalid: %v", err)
		}
		log.Printf("sim scenario=%s duration=%s", cfg.Sim.Scenario, scenario.Duration())
	}
	rig, err := sensors.NewRig(cfg.Sim.Rig, scenario)
	if err != nil {
		log.Fatalf("sensor rig init failed: %v", err)
	}

	var stripes *sensors.StripeCounter
	if cfg.Stripe.Enable {
		stripes, err = sensors.NewStripeCounter(sensors.StripeConfig{Chip: cfg.Stripe.Chip, Offset: cfg.Stripe.Offset})
		if err != nil {
			log.Fatalf("stripe counter init failed: %v", err)
		}
		defer stripes.Close()
	}

	var recorder *runlog.Recorder
	if cfg.Runlog.Enable {
		recorder, err = runlog.Open(cfg.Runlog.Path)
		if err != nil {
			log.Fatalf("runlog init failed: %v", err)
		}
		defer recorder.Close()
		id, err := recorder.Begin(ctx, time.Now())
		if err != nil {
			log.Fatalf("runlog begin failed: %v", err)
		}
		log.Printf("runlog path=%s run=%s", cfg.Runlog.Path, id)
	}

	if cfg.Telemetry.Enable {
		broadcaster, err := telemetry.NewBroadcaster(cfg.Telemetry.Dest)
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		defer broadcaster.Close()
		publisher, err := telemetry.NewPublisher(store, broadcaster, cfg.Telemetry.Interval, cfg.Nav.ForwardAxis)
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		log.Printf("telemetry dest=%s interval=%s", cfg.Telemetry.Dest, cfg.Telemetry.Interval)
		go func() {
			if err := publisher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("telemetry stopped: %v", err)
			}
		}()
	}

	log.Printf("podctl starting")
	log.Printf("track max_distance=%.1f run_length=%.1f tube_length=%.1f",
		cfg.Track.MaxDistance, cfg.Track.RunLength, cfg.Track.TubeLength)

	go func() {
		if err := driver.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("motor driver stopped: %v", err)
			cancel()
		}
	}()

	sup := &supervisor{
		cfg:       cfg,
		store:     store,
		machine:   machine,
		engine:    engine,
		rig:       rig,
		batteries: sensors.NewFakeBatteries(cfg.Sim.Batteries),
		stripes:   stripes,
		recorder:  recorder,
	}
	runErr := sup.Run(ctx)

	if recorder != nil {
		if err := recorder.Finish(context.Background(), time.Now()); err != nil {
			log.Printf("runlog finish: %v", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		log.Fatalf("run failed: %v", runErr)
	}
	log.Printf("podctl stopping")
}
