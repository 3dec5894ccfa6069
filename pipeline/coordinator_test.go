package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fadeefcom/Aggregator/ingest"
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

// fakeStorage implements the stage-then-commit storage contract in memory.
type fakeStorage struct {
	mtx sync.Mutex

	pendingTicks    []shared.Tick
	pendingCandles  []shared.Candle
	pendingStatuses []shared.SourceStatus

	ticks    []shared.Tick
	statuses []shared.SourceStatus
	commits  int
	failures int

	failCommit bool
}

func (f *fakeStorage) AddTicksBatch(ctx context.Context, ticks []shared.Tick) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.pendingTicks = append(f.pendingTicks, ticks...)
	return nil
}

func (f *fakeStorage) AddCandlesBatch(ctx context.Context, candles []shared.Candle) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.pendingCandles = append(f.pendingCandles, candles...)
	return nil
}

func (f *fakeStorage) UpsertSourceStatus(ctx context.Context, status shared.SourceStatus) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.pendingStatuses = append(f.pendingStatuses, status)
	return nil
}

func (f *fakeStorage) Commit(ctx context.Context) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	pendingTicks, pendingStatuses := f.pendingTicks, f.pendingStatuses
	f.pendingTicks, f.pendingCandles, f.pendingStatuses = nil, nil, nil

	if f.failCommit {
		f.failures++
		return errors.New("storage unavailable")
	}

	f.ticks = append(f.ticks, pendingTicks...)
	f.statuses = append(f.statuses, pendingStatuses...)
	f.commits++
	return nil
}

func (f *fakeStorage) setFailCommit(fail bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.failCommit = fail
}

func (f *fakeStorage) snapshot() (int, int, int) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.ticks), f.commits, f.failures
}

// Ensure the in-memory fake satisfies the storage contract.
var _ shared.BatchStorage = (*fakeStorage)(nil)

func newTestCoordinator(t *testing.T, storage shared.BatchStorage, batchSize int,
	flushInterval time.Duration) (*Coordinator, *ingest.Queue) {
	t.Helper()

	logger := zerolog.Nop()
	processor, tracker := newTestProcessor(t, nil)
	queue := ingest.NewQueue(ingest.DefaultQueueCapacity)

	coordinator := NewCoordinator(&CoordinatorConfig{
		Queue:         queue,
		Processor:     processor,
		Storage:       storage,
		Tracker:       tracker,
		BatchSize:     batchSize,
		FlushInterval: flushInterval,
		ShutdownGrace: time.Second,
		Logger:        &logger,
	})

	return coordinator, queue
}

func waitForStorage(t *testing.T, check func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("timed out waiting on storage state")
}

func TestCoordinatorBatchCommits(t *testing.T) {
	storage := &fakeStorage{}
	coordinator, queue := newTestCoordinator(t, storage, 500, time.Minute)

	done := make(chan struct{})
	go func() {
		coordinator.Run(context.Background())
		close(done)
	}()

	// Four producers enqueue 2500 ticks with unique fingerprints.
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for producer := 0; producer < 4; producer++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for idx := 0; idx < 625; idx++ {
				offset := time.Duration(producer*625+idx) * time.Millisecond
				tick := newTestTick(t, "BTCUSD", 150, base.Add(offset))
				assert.NoError(t, queue.Enqueue(context.Background(), tick))
			}
		}(producer)
	}
	wg.Wait()

	queue.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after queue close")
	}

	ticks, commits, failures := storage.snapshot()

	// Ensure every accepted tick was persisted across at least five commits.
	assert.Equal(t, 2500, ticks)
	assert.GreaterThan(t, commits, 4)
	assert.Equal(t, 0, failures)
}

func TestCoordinatorShutdownFlush(t *testing.T) {
	storage := &fakeStorage{}
	coordinator, queue := newTestCoordinator(t, storage, 1000, time.Minute)

	// Enqueue well under the batch size so only the shutdown flush commits.
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	for idx := 0; idx < 7; idx++ {
		tick := newTestTick(t, "BTCUSD", 150, base.Add(time.Duration(idx)*time.Second))
		assert.NoError(t, queue.Enqueue(context.Background(), tick))
	}

	queue.Close()

	done := make(chan struct{})
	go func() {
		coordinator.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after queue close")
	}

	// Ensure the remaining ticks and source statuses were flushed on the way
	// out.
	ticks, commits, _ := storage.snapshot()
	assert.Equal(t, 7, ticks)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 1, len(storage.statuses))
	assert.Equal(t, "test", storage.statuses[0].SourceName)
}

func TestCoordinatorContextCancelFlushes(t *testing.T) {
	storage := &fakeStorage{}
	coordinator, queue := newTestCoordinator(t, storage, 1000, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coordinator.Run(ctx)
		close(done)
	}()

	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	for idx := 0; idx < 3; idx++ {
		tick := newTestTick(t, "BTCUSD", 150, base.Add(time.Duration(idx)*time.Second))
		assert.NoError(t, queue.Enqueue(context.Background(), tick))
	}

	// Ensure the periodic flush persists a partial batch while running.
	waitForStorage(t, func() bool {
		ticks, _, _ := storage.snapshot()
		return ticks == 3
	})

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after cancellation")
	}
}

func TestCoordinatorDropsFailedBatch(t *testing.T) {
	storage := &fakeStorage{failCommit: true}
	coordinator, queue := newTestCoordinator(t, storage, 2, time.Minute)

	done := make(chan struct{})
	go func() {
		coordinator.Run(context.Background())
		close(done)
	}()

	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	enqueue := func(offset time.Duration) {
		tick := newTestTick(t, "BTCUSD", 150, base.Add(offset))
		assert.NoError(t, queue.Enqueue(context.Background(), tick))
	}

	enqueue(0)
	enqueue(time.Second)

	// Ensure the failed batch is dropped, not retried.
	waitForStorage(t, func() bool {
		_, _, failures := storage.snapshot()
		return failures == 1
	})

	// Ensure the coordinator keeps committing subsequent batches.
	storage.setFailCommit(false)
	enqueue(2 * time.Second)
	enqueue(3 * time.Second)

	waitForStorage(t, func() bool {
		ticks, _, _ := storage.snapshot()
		return ticks == 2
	})

	queue.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after queue close")
	}

	ticks, commits, failures := storage.snapshot()
	assert.Equal(t, 2, ticks)
	assert.Equal(t, 1, failures)
	assert.GreaterThan(t, commits, 1)
}
