// Package service wires the aggregator components together and manages their
// lifecycles.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Fadeefcom/Aggregator/alert"
	"github.com/Fadeefcom/Aggregator/candle"
	"github.com/Fadeefcom/Aggregator/database"
	"github.com/Fadeefcom/Aggregator/dedup"
	"github.com/Fadeefcom/Aggregator/ingest"
	"github.com/Fadeefcom/Aggregator/notify"
	"github.com/Fadeefcom/Aggregator/pipeline"
	"github.com/Fadeefcom/Aggregator/server"
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/Fadeefcom/Aggregator/status"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// AggregatorConfig represents the configuration struct for the aggregator
// service.
type AggregatorConfig struct {
	// Symbols represents the allowed instrument set.
	Symbols []string
	// Timeframes represents the candle timeframes (eg. "1m", "5m", "1h").
	Timeframes []string
	// BatchSize is the tick buffer size triggering a commit.
	BatchSize int
	// FlushInterval is the periodic commit trigger.
	FlushInterval time.Duration
	// DedupTTL is the tick fingerprint retention window.
	DedupTTL time.Duration
	// ShutdownGrace bounds the final flush on shutdown.
	ShutdownGrace time.Duration
	// QueueCapacity bounds the ingestion queue.
	QueueCapacity int
	// ListenAddr is the api server listen address.
	ListenAddr string
	// DBEndpoint represents the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// AlertLogPath is the file alert channel path, disabled when empty.
	AlertLogPath string
	// Rules represents the ordered alert rule declarations.
	Rules []alert.RuleSpec
	// RESTSources represents the polled exchange sources.
	RESTSources []ingest.RESTSource
	// SocketSources represents the streamed exchange sources.
	SocketSources []ingest.SocketSource
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *AggregatorConfig) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for aggregator service"))
	}
	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Aggregator represents the market tick aggregation service.
type Aggregator struct {
	cfg          *AggregatorConfig
	queue        *ingest.Queue
	tracker      *status.Tracker
	dispatcher   *notify.Dispatcher
	coordinator  *pipeline.Coordinator
	poller       *ingest.Poller
	socketWorker *ingest.SocketWorker
	apiServer    *server.Server
	fileChannel  *notify.FileChannel
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewAggregator initializes a new aggregator service.
func NewAggregator(ctx context.Context, cfg *AggregatorConfig) (*Aggregator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "aggregator").Logger()

	symbols := make([]shared.Symbol, 0, len(cfg.Symbols))
	for idx := range cfg.Symbols {
		symbol, err := shared.NewSymbol(cfg.Symbols[idx])
		if err != nil {
			return nil, fmt.Errorf("parsing allowed symbol: %v", err)
		}

		symbols = append(symbols, symbol)
	}

	timeframes, err := shared.ParseTimeframes(cfg.Timeframes)
	if err != nil {
		return nil, fmt.Errorf("parsing timeframes: %v", err)
	}

	rules, err := alert.NewRules(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("building alert rules: %v", err)
	}

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DBEndpoint,
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %v", err)
	}

	channels := []shared.NotificationChannel{notify.NewConsoleChannel(os.Stdout)}
	var fileChannel *notify.FileChannel
	if cfg.AlertLogPath != "" {
		fileChannel, err = notify.NewFileChannel(cfg.AlertLogPath)
		if err != nil {
			return nil, fmt.Errorf("creating file alert channel: %v", err)
		}

		channels = append(channels, fileChannel)
	}

	dispatcherLogger := logger.With().Str("component", "dispatcher").Logger()
	dispatcher := notify.NewDispatcher(&notify.DispatcherConfig{
		Channels: channels,
		Logger:   &dispatcherLogger,
	})

	queue := ingest.NewQueue(cfg.QueueCapacity)
	tracker := status.NewTracker()

	engineLogger := logger.With().Str("component", "alertengine").Logger()
	alertEngine := alert.NewEngine(&alert.EngineConfig{
		Rules:  rules,
		Logger: &engineLogger,
	})

	aggLogger := logger.With().Str("component", "candleaggregator").Logger()
	aggregator := candle.NewAggregator(&candle.AggregatorConfig{
		Timeframes: timeframes,
		Logger:     &aggLogger,
	})

	processorLogger := logger.With().Str("component", "processor").Logger()
	processor := pipeline.NewProcessor(&pipeline.ProcessorConfig{
		AllowedSymbols: symbols,
		Dedup:          dedup.NewDeduplicator(cfg.DedupTTL),
		Tracker:        tracker,
		Alerts:         alertEngine,
		Aggregator:     aggregator,
		PublishAlert:   dispatcher.Publish,
		Logger:         &processorLogger,
	})

	coordinatorLogger := logger.With().Str("component", "coordinator").Logger()
	coordinator := pipeline.NewCoordinator(&pipeline.CoordinatorConfig{
		Queue:         queue,
		Processor:     processor,
		Storage:       db,
		Tracker:       tracker,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		ShutdownGrace: cfg.ShutdownGrace,
		Logger:        &coordinatorLogger,
	})

	pollerLogger := logger.With().Str("component", "poller").Logger()
	poller := ingest.NewPoller(&ingest.PollerConfig{
		Sources:      cfg.RESTSources,
		Symbols:      cfg.Symbols,
		Queue:        queue,
		MarkOffline:  tracker.MarkOffline,
		JobScheduler: gocron.NewScheduler(time.UTC),
		Logger:       &pollerLogger,
	})

	socketLogger := logger.With().Str("component", "socketworker").Logger()
	socketWorker := ingest.NewSocketWorker(&ingest.SocketWorkerConfig{
		Sources:     cfg.SocketSources,
		Queue:       queue,
		MarkOffline: tracker.MarkOffline,
		Logger:      &socketLogger,
	})

	serverLogger := logger.With().Str("component", "apiserver").Logger()
	apiServer := server.NewServer(&server.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		Queue:      queue,
		Tracker:    tracker,
		Logger:     &serverLogger,
	})

	return &Aggregator{
		cfg:          cfg,
		queue:        queue,
		tracker:      tracker,
		dispatcher:   dispatcher,
		coordinator:  coordinator,
		poller:       poller,
		socketWorker: socketWorker,
		apiServer:    apiServer,
		fileChannel:  fileChannel,
		logger:       &logger,
	}, nil
}

// Run starts every component of the service and blocks until the provided
// context is cancelled and the shutdown sequence completes: intake stops, the
// queue closes for new writes, the coordinator drains and flushes, and the
// dispatcher delivers what remains.
func (a *Aggregator) Run(ctx context.Context) {
	a.wg.Add(5)

	go func() {
		defer a.wg.Done()
		a.poller.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.socketWorker.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.apiServer.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.dispatcher.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.coordinator.Run(ctx)
	}()

	a.logger.Info().Msg("aggregator service started")

	<-ctx.Done()

	// Stop intake before the coordinator performs its final drain.
	a.queue.Close()
	a.wg.Wait()

	if a.fileChannel != nil {
		a.fileChannel.Close()
	}

	a.logger.Info().Msg("aggregator service stopped")
}
