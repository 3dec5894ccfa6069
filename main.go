package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fadeefcom/Aggregator/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt, syscall.SIGTERM}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregatorCfg := service.AggregatorConfig{
		Symbols:       cfg.Symbols,
		Timeframes:    cfg.Timeframes,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalSeconds) * time.Second,
		DedupTTL:      time.Duration(cfg.DedupTTLSeconds) * time.Second,
		ShutdownGrace: time.Duration(cfg.ShutdownGraceSeconds) * time.Second,
		QueueCapacity: cfg.QueueCapacity,
		ListenAddr:    cfg.ListenAddr,
		DBEndpoint:    cfg.DBEndpoint,
		DBUser:        cfg.DBUser,
		DBPass:        cfg.DBPass,
		AlertLogPath:  cfg.AlertLogPath,
		Rules:         cfg.Settings.Rules,
		RESTSources:   cfg.Settings.RESTSources,
		SocketSources: cfg.Settings.SocketSources,
		Cancel:        cancel,
	}
	aggregator, err := service.NewAggregator(ctx, &aggregatorCfg)
	if err != nil {
		log.Printf("creating aggregator service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	aggregator.Run(ctx)
}
