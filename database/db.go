// Package database persists pipeline output to rqlite in batched transactions.
package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTickTableSQL         = "CREATE TABLE IF NOT EXISTS tick (id TEXT PRIMARY KEY, symbol TEXT, price TEXT, volume TEXT, timestamp INTEGER, source TEXT)"
	createCandleTableSQL       = "CREATE TABLE IF NOT EXISTS candle (id TEXT PRIMARY KEY, symbol TEXT, timeframe TEXT, opentime INTEGER, closetime INTEGER, open TEXT, high TEXT, low TEXT, close TEXT, volume TEXT, averageprice TEXT, volatility REAL)"
	createSourceStatusTableSQL = "CREATE TABLE IF NOT EXISTS sourcestatus (sourcename TEXT PRIMARY KEY, isonline INTEGER, lastupdate INTEGER, tickscount INTEGER, lasterror TEXT)"
	insertTickSQL              = "INSERT INTO tick(id, symbol, price, volume, timestamp, source) VALUES(?,?,?,?,?,?)"
	insertCandleSQL            = "INSERT INTO candle(id, symbol, timeframe, opentime, closetime, open, high, low, close, volume, averageprice, volatility) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)"
	upsertSourceStatusSQL      = "INSERT INTO sourcestatus(sourcename, isonline, lastupdate, tickscount, lasterror) VALUES(?,?,?,?,?) ON CONFLICT(sourcename) DO UPDATE SET isonline = excluded.isonline, lastupdate = excluded.lastupdate, tickscount = excluded.tickscount, lasterror = excluded.lasterror"
)

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection. Writes staged by the batch
// calls are held until Commit executes them as one transaction; the pipeline's
// single consumer is the only caller.
type Database struct {
	cfg     *DatabaseConfig
	client  *rqlitehttp.Client
	pending rqlitehttp.SQLStatements
}

// Ensure the database implements the BatchStorage interface.
var _ shared.BatchStorage = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database schema.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTickTableSQL},
		{SQL: createCandleTableSQL},
		{SQL: createSourceStatusTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// AddTicksBatch stages insert statements for the provided ticks.
func (db *Database) AddTicksBatch(ctx context.Context, ticks []shared.Tick) error {
	for idx := range ticks {
		tick := &ticks[idx]
		db.pending = append(db.pending, &rqlitehttp.SQLStatement{
			SQL: insertTickSQL,
			PositionalParams: []any{tick.ID.String(), tick.Symbol.String(), tick.Price.String(),
				tick.Volume.String(), tick.Timestamp.UnixMilli(), tick.Source},
		})
	}

	return nil
}

// AddCandlesBatch stages insert statements for the provided candles.
func (db *Database) AddCandlesBatch(ctx context.Context, candles []shared.Candle) error {
	for idx := range candles {
		c := &candles[idx]
		db.pending = append(db.pending, &rqlitehttp.SQLStatement{
			SQL: insertCandleSQL,
			PositionalParams: []any{c.ID.String(), c.Symbol.String(), c.Timeframe.String(),
				c.OpenTime.UnixMilli(), c.CloseTime.UnixMilli(), c.Open.String(), c.High.String(),
				c.Low.String(), c.Close.String(), c.Volume.String(), c.AveragePrice.String(),
				c.Volatility},
		})
	}

	return nil
}

// UpsertSourceStatus stages a create-or-update statement for the provided
// source status.
func (db *Database) UpsertSourceStatus(ctx context.Context, stat shared.SourceStatus) error {
	db.pending = append(db.pending, &rqlitehttp.SQLStatement{
		SQL: upsertSourceStatusSQL,
		PositionalParams: []any{stat.SourceName, stat.IsOnline, stat.LastUpdate.UnixMilli(),
			stat.TicksCount, stat.LastError},
	})

	return nil
}

// Commit executes all staged statements as a single transaction. Staged
// statements are discarded afterwards regardless of outcome.
func (db *Database) Commit(ctx context.Context) error {
	if len(db.pending) == 0 {
		return nil
	}

	statements := db.pending
	db.pending = nil

	resp, err := db.client.Execute(ctx, statements, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return fmt.Errorf("executing batch of %d statements: %w", len(statements), err)
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("executing batch statement %d: %s", idx, errStr)
	}

	return nil
}
