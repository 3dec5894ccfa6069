package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				DBEndpoint: "http://localhost:4001",
				BatchSize:  1000,
			},
			wantErr: false,
		},
		{
			name:    "missing database endpoint",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "negative batch size",
			cfg: Config{
				DBEndpoint: "http://localhost:4001",
				BatchSize:  -1,
			},
			wantErr: true,
		},
		{
			name: "negative queue capacity",
			cfg: Config{
				DBEndpoint:    "http://localhost:4001",
				QueueCapacity: -1,
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	assert.Equal(t, defaultSymbols, cfg.Symbols)
	assert.Equal(t, defaultTimeframes, cfg.Timeframes)
	assert.Equal(t, defaultBatchSize, cfg.BatchSize)
	assert.Equal(t, defaultFlushIntervalSeconds, cfg.FlushIntervalSeconds)
	assert.Equal(t, defaultDedupTTLSeconds, cfg.DedupTTLSeconds)
	assert.Equal(t, defaultShutdownGraceSeconds, cfg.ShutdownGraceSeconds)
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)

	// Ensure explicitly set values survive.
	cfg = Config{BatchSize: 250, ListenAddr: ":9090"}
	cfg.setDefaults()
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `rules:
  - type: price
    symbol: BTCUSD
    minPrice: 10000
    maxPrice: 90000
  - type: volume
    multiplier: 3
restSources:
  - name: binance
    url: http://localhost:9001/ticker
    intervalSeconds: 2
socketSources:
  - name: kraken
    url: ws://localhost:9002/stream
`
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	var settings Settings
	assert.NoError(t, loadSettings(&settings, path))

	assert.Equal(t, 2, len(settings.Rules))
	assert.Equal(t, "price", settings.Rules[0].Type)
	assert.Equal(t, "BTCUSD", settings.Rules[0].Symbol)
	assert.Equal(t, float64(90000), settings.Rules[0].MaxPrice)
	assert.Equal(t, float64(3), settings.Rules[1].Multiplier)

	assert.Equal(t, 1, len(settings.RESTSources))
	assert.Equal(t, "binance", settings.RESTSources[0].Name)
	assert.Equal(t, 2, settings.RESTSources[0].IntervalSeconds)

	assert.Equal(t, 1, len(settings.SocketSources))
	assert.Equal(t, "ws://localhost:9002/stream", settings.SocketSources[0].URL)

	// Ensure a missing settings file is an error.
	var missing Settings
	assert.Error(t, loadSettings(&missing, filepath.Join(t.TempDir(), "absent.yaml")))
}
