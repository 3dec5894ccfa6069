package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Fadeefcom/Aggregator/metrics"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// defaultPollIntervalSeconds is the poll cadence used when a source does
	// not configure one.
	defaultPollIntervalSeconds = 1
	// fetchTimeout bounds a single ticker fetch.
	fetchTimeout = 5 * time.Second
)

// RESTSource describes a polled REST exchange source.
type RESTSource struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	IntervalSeconds int      `yaml:"intervalSeconds"`
	Symbols         []string `yaml:"symbols"`
}

// PollerConfig represents the REST poller configuration.
type PollerConfig struct {
	// Sources represents the polled exchange sources.
	Sources []RESTSource
	// Symbols is the global symbol set polled when a source declares none.
	Symbols []string
	// Queue is the ingestion queue fed by the poller.
	Queue *Queue
	// MarkOffline records a delivery failure for a source.
	MarkOffline func(sourceName string, cause string)
	// JobScheduler schedules the polling jobs.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Poller polls REST exchange sources for ticker payloads on a fixed schedule
// and feeds them into the ingestion queue.
type Poller struct {
	cfg   *PollerConfig
	httpc *http.Client
}

// NewPoller initializes a new REST poller.
func NewPoller(cfg *PollerConfig) *Poller {
	return &Poller{
		cfg:   cfg,
		httpc: &http.Client{Timeout: fetchTimeout},
	}
}

// fetch retrieves the ticker payload at the provided url.
func (p *Poller) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating ticker request: %v", err)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected ticker response status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ticker response: %v", err)
	}

	return body, nil
}

// poll fetches the latest ticker payload for every symbol of the provided
// source and enqueues the resulting ticks, blocking on queue backpressure.
func (p *Poller) poll(ctx context.Context, source *RESTSource) {
	symbols := source.Symbols
	if len(symbols) == 0 {
		symbols = p.cfg.Symbols
	}

	for idx := range symbols {
		url := fmt.Sprintf("%s/%s?source=%s", source.URL, symbols[idx], source.Name)
		payload, err := p.fetch(ctx, url)
		if err != nil {
			p.cfg.MarkOffline(source.Name, err.Error())
			p.cfg.Logger.Error().Msgf("polling %s: %v", source.Name, err)
			continue
		}

		tick, err := ParseTick(payload, source.Name)
		if err != nil {
			p.cfg.Logger.Error().Msgf("parsing ticker payload from %s: %v", source.Name, err)
			continue
		}

		metrics.TicksReceived.WithLabelValues(tick.Source).Inc()

		err = p.cfg.Queue.Enqueue(ctx, tick)
		switch {
		case errors.Is(err, ErrQueueClosed):
			return
		case err != nil:
			p.cfg.Logger.Error().Msgf("enqueueing tick from %s: %v", source.Name, err)
		}
	}
}

// Run schedules polling jobs for every configured source and blocks until the
// provided context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for idx := range p.cfg.Sources {
		source := p.cfg.Sources[idx]
		interval := source.IntervalSeconds
		if interval <= 0 {
			interval = defaultPollIntervalSeconds
		}

		_, err := p.cfg.JobScheduler.Every(interval).Seconds().Do(func() {
			p.poll(ctx, &source)
		})
		if err != nil {
			p.cfg.Logger.Error().Msgf("scheduling polling job for %s: %v", source.Name, err)
		}
	}

	p.cfg.JobScheduler.StartAsync()
	<-ctx.Done()
	p.cfg.JobScheduler.Stop()
}
