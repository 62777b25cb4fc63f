// Package config loads the engine configuration from a YAML file. The file
// holds a list of entries, one per traded pair.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"
	PlatformReplay      = "replay"
)

const (
	defaultInterval       = "1h"
	defaultLookback       = 200
	defaultPollInterval   = 5 * time.Minute
	defaultUserID         = "default"
	defaultWeightsFile    = "weights.yaml"
	defaultWALDir         = "./wal/signals"
	defaultHTTPAddr       = ":8080"
	defaultSubAnalysis    = 10 * time.Second
	defaultStateCapacity  = 256
	defaultMinConfidence  = "0"
	defaultHyperliquidURL = "https://api.hyperliquid.xyz"
)

var validate = validator.New()

// Credentials holds the exchange and LLM secrets read from the environment.
type Credentials struct {
	BinanceAPIKey         string
	BinanceAPISecret      string
	BybitAPIKey           string
	BybitAPISecret        string
	HyperliquidPrivateKey string
	LLMAPIKey             string
}

// Config is one validated configuration entry.
type Config struct {
	Platform     string `validate:"oneof=binance bybit hyperliquid replay"`
	Pair         domain.Pair
	Interval     string        `validate:"required"`
	Lookback     int           `validate:"gte=1,lte=1000"`
	PollInterval time.Duration `validate:"gt=0"`
	UserID       string        `validate:"required"`

	// WeightsFile is the YAML weight store. SQLitePath takes precedence when set.
	WeightsFile string
	WALDir      string
	SQLitePath  string
	RedisAddr   string
	ReplayFile  string `validate:"required_if=Platform replay"`

	LLMAPIURL string `validate:"omitempty,url"`
	LLMModel  string `validate:"required_with=LLMAPIURL"`
	// Signals less confident than MinConfidence are kept in memory but not persisted.
	MinConfidence decimal.Decimal

	HyperliquidURL     string `validate:"omitempty,url"`
	HTTPAddr           string
	// TLSDomains enables ACME certificates for the HTTP feed when set.
	TLSDomains         []string
	TLSCacheDir        string
	SubAnalysisTimeout time.Duration `validate:"gt=0"`
	StateCapacity      int           `validate:"gte=1"`

	Credentials Credentials
}

// Symbol returns the exchange symbol of the pair (e.g. BTCUSDT).
func (c Config) Symbol() string {
	return c.Pair.Symbol()
}

// LLMEnabled reports whether an LLM predictor is configured.
func (c Config) LLMEnabled() bool {
	return c.LLMAPIURL != "" && c.Credentials.LLMAPIKey != ""
}

// ConfigTmp is a raw YAML entry. Numeric fields are strings so that an empty value
// means "use the default".
type ConfigTmp struct {
	Platform           string        `yaml:"platform"`
	Pair               string        `yaml:"pair"`
	Interval           string        `yaml:"interval,omitempty"`
	LookbackStr        string        `yaml:"lookback,omitempty"`
	PollInterval       time.Duration `yaml:"poll_interval,omitempty"`
	UserID             string        `yaml:"user_id,omitempty"`
	WeightsFile        string        `yaml:"weights_file,omitempty"`
	WALDir             string        `yaml:"wal_dir,omitempty"`
	SQLitePath         string        `yaml:"sqlite_path,omitempty"`
	RedisAddr          string        `yaml:"redis_addr,omitempty"`
	ReplayFile         string        `yaml:"replay_file,omitempty"`
	LLMAPIURL          string        `yaml:"llm_api_url,omitempty"`
	LLMAPIKey          string        `yaml:"llm_api_key,omitempty"`
	Model              string        `yaml:"model,omitempty"`
	MinConfidenceStr   string        `yaml:"min_confidence,omitempty"`
	HyperliquidURL     string        `yaml:"hyperliquid_url,omitempty"`
	HTTPAddr           string        `yaml:"http_addr,omitempty"`
	TLSDomains         []string      `yaml:"tls_domains,omitempty"`
	TLSCacheDir        string        `yaml:"tls_cache_dir,omitempty"`
	SubAnalysisTimeout time.Duration `yaml:"sub_analysis_timeout,omitempty"`
	StateCapacityStr   string        `yaml:"state_capacity,omitempty"`
}

// Get reads and validates the config file at path.
func Get(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(f, CredentialsFromEnv())
}

// Parse decodes a YAML list of entries and applies defaults and creds.
func Parse(data []byte, creds Credentials) ([]Config, error) {
	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(data, &configsTmp); err != nil {
		return nil, fmt.Errorf("failed to decode yaml config: %w", err)
	}
	if len(configsTmp) == 0 {
		return nil, fmt.Errorf("config has no entries")
	}

	configs := make([]Config, 0, len(configsTmp))
	for i, c := range configsTmp {
		conf, err := c.toConfig(creds)
		if err != nil {
			return nil, fmt.Errorf("config entry %d: %w", i+1, err)
		}
		configs = append(configs, conf)
	}
	return configs, nil
}

// Default builds the single-pair configuration used when no file is given.
func Default(platform, pair string) (Config, error) {
	return FromEntry(ConfigTmp{Platform: platform, Pair: pair})
}

// FromEntry validates a single entry built in code, e.g. from CLI flags.
func FromEntry(entry ConfigTmp) (Config, error) {
	return entry.toConfig(CredentialsFromEnv())
}

func (c ConfigTmp) toConfig(creds Credentials) (Config, error) {
	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", c.Pair, err)
	}

	conf := Config{
		Platform:           c.Platform,
		Pair:               pair,
		Interval:           orDefault(c.Interval, defaultInterval),
		PollInterval:       c.PollInterval,
		UserID:             orDefault(c.UserID, defaultUserID),
		WeightsFile:        orDefault(c.WeightsFile, defaultWeightsFile),
		WALDir:             orDefault(c.WALDir, defaultWALDir),
		SQLitePath:         c.SQLitePath,
		RedisAddr:          c.RedisAddr,
		ReplayFile:         c.ReplayFile,
		LLMAPIURL:          c.LLMAPIURL,
		LLMModel:           c.Model,
		HyperliquidURL:     orDefault(c.HyperliquidURL, defaultHyperliquidURL),
		HTTPAddr:           orDefault(c.HTTPAddr, defaultHTTPAddr),
		TLSDomains:         c.TLSDomains,
		TLSCacheDir:        c.TLSCacheDir,
		SubAnalysisTimeout: c.SubAnalysisTimeout,
		Credentials:        creds,
	}
	if conf.Platform == "" {
		conf.Platform = PlatformBinance
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = defaultPollInterval
	}
	if conf.SubAnalysisTimeout == 0 {
		conf.SubAnalysisTimeout = defaultSubAnalysis
	}
	if conf.Credentials.LLMAPIKey == "" {
		conf.Credentials.LLMAPIKey = c.LLMAPIKey
	}

	if _, err := domain.ParseInterval(conf.Interval); err != nil {
		return Config{}, fmt.Errorf("incorrect 'interval' param in yaml config: %w", err)
	}

	if c.LookbackStr == "" {
		conf.Lookback = defaultLookback
	} else {
		lookback, err := strconv.Atoi(c.LookbackStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'lookback' param in yaml config (must be an integer), error: %w", err)
		}
		conf.Lookback = lookback
	}

	if c.StateCapacityStr == "" {
		conf.StateCapacity = defaultStateCapacity
	} else {
		capacity, err := strconv.Atoi(c.StateCapacityStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'state_capacity' param in yaml config (must be an integer), error: %w", err)
		}
		conf.StateCapacity = capacity
	}

	conf.MinConfidence, err = decimal.NewFromString(orDefault(c.MinConfidenceStr, defaultMinConfidence))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_confidence' param in yaml config (must be a decimal), error: %w", err)
	}
	if conf.MinConfidence.IsNegative() || conf.MinConfidence.GreaterThan(decimal.NewFromInt(100)) {
		return Config{}, fmt.Errorf("incorrect 'min_confidence' param in yaml config: must be within 0..100")
	}

	if err := validate.Struct(conf); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}

// CredentialsFromEnv reads secrets from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		BinanceAPIKey:         os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:      os.Getenv("BINANCE_API_SECRET"),
		BybitAPIKey:           os.Getenv("BYBIT_API_KEY"),
		BybitAPISecret:        os.Getenv("BYBIT_API_SECRET"),
		HyperliquidPrivateKey: os.Getenv("HYPERLIQUID_PRIVATE_KEY"),
		LLMAPIKey:             os.Getenv("LLM_API_KEY"),
	}
}

// Marshal renders entries back to the YAML accepted by Parse.
func Marshal(entries []ConfigTmp) ([]byte, error) {
	return yaml.Marshal(entries)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
