package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Fadeefcom/Aggregator/alert"
	"github.com/Fadeefcom/Aggregator/ingest"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	defaultBatchSize            = 1000
	defaultFlushIntervalSeconds = 5
	defaultDedupTTLSeconds      = 10
	defaultShutdownGraceSeconds = 10
	defaultListenAddr           = ":8080"
)

// defaultSymbols is the allowed instrument set used when none is configured.
var defaultSymbols = []string{"BTCUSD", "ETHUSD", "SOLUSD"}

// defaultTimeframes is the candle timeframe set used when none is configured.
var defaultTimeframes = []string{"1m", "5m", "1h"}

// Settings holds the structured configuration that does not fit environment
// variables: the ordered alert rule declarations and the exchange sources.
type Settings struct {
	Rules         []alert.RuleSpec      `yaml:"rules"`
	RESTSources   []ingest.RESTSource   `yaml:"restSources"`
	SocketSources []ingest.SocketSource `yaml:"socketSources"`
}

// Config is the configuration struct for the service.
type Config struct {
	// Symbols represents the allowed instrument set.
	Symbols []string
	// Timeframes represents the candle timeframes.
	Timeframes []string
	// BatchSize is the tick buffer size triggering a commit.
	BatchSize int
	// FlushIntervalSeconds is the periodic commit trigger.
	FlushIntervalSeconds int
	// DedupTTLSeconds is the tick fingerprint retention window.
	DedupTTLSeconds int
	// ShutdownGraceSeconds bounds the final flush on shutdown.
	ShutdownGraceSeconds int
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
	// SettingsPath is the path to the yaml settings (rules and sources).
	SettingsPath string

	// Settings holds the loaded yaml settings.
	Settings Settings

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.BatchSize < 0 {
		errs = errors.Join(errs, fmt.Errorf("batch size cannot be negative"))
	}
	if cfg.QueueCapacity < 0 {
		errs = errors.Join(errs, fmt.Errorf("queue capacity cannot be negative"))
	}

	return errs
}

// setDefaults fills unset config fields with their defaults.
func (cfg *Config) setDefaults() {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = defaultSymbols
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = defaultTimeframes
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushIntervalSeconds == 0 {
		cfg.FlushIntervalSeconds = defaultFlushIntervalSeconds
	}
	if cfg.DedupTTLSeconds == 0 {
		cfg.DedupTTLSeconds = defaultDedupTTLSeconds
	}
	if cfg.ShutdownGraceSeconds == 0 {
		cfg.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadSettings loads the yaml settings at the provided path.
func loadSettings(settings *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings file: %v", err)
	}

	err = yaml.Unmarshal(data, settings)
	if err != nil {
		return fmt.Errorf("parsing settings file: %v", err)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"symbols", &cfg.Symbols, "the allowed instrument symbols"},
		{"timeframes", &cfg.Timeframes, "the candle timeframes"},
		{"batchsize", &cfg.BatchSize, "the tick batch size triggering a commit"},
		{"flushintervalseconds", &cfg.FlushIntervalSeconds, "the periodic commit trigger in seconds"},
		{"dedupttlseconds", &cfg.DedupTTLSeconds, "the tick fingerprint retention window in seconds"},
		{"shutdowngraceseconds", &cfg.ShutdownGraceSeconds, "the shutdown flush grace period in seconds"},
		{"queuecapacity", &cfg.QueueCapacity, "the ingestion queue capacity"},
		{"listenaddr", &cfg.ListenAddr, "the api server listen address"},
		{"dbendpoint", &cfg.DBEndpoint, "the database connection endpoint"},
		{"dbuser", &cfg.DBUser, "the database user"},
		{"dbpass", &cfg.DBPass, "the database user pass"},
		{"alertlogpath", &cfg.AlertLogPath, "the file alert channel path"},
		{"settingspath", &cfg.SettingsPath, "the yaml settings path (rules and sources)"},
	}
	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.setDefaults()

	if cfg.SettingsPath != "" {
		err = loadSettings(&cfg.Settings, cfg.SettingsPath)
		if err != nil {
			return err
		}
	}

	return cfg.Validate()
}
