// Package internal wires configuration into market data sources, the
// decision engine and signal storage.
package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigengine/config"
	"github.com/vadiminshakov/sigengine/internal/clients"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"github.com/vadiminshakov/sigengine/internal/services/ai"
	"github.com/vadiminshakov/sigengine/internal/services/engine"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/confluence"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
	"github.com/vadiminshakov/sigengine/internal/services/market/levels"
	"github.com/vadiminshakov/sigengine/internal/services/pricer"
	"github.com/vadiminshakov/sigengine/internal/storage"
	"github.com/vadiminshakov/sigengine/internal/storage/signals"
	"github.com/vadiminshakov/sigengine/internal/storage/sqlstore"
	"github.com/vadiminshakov/sigengine/internal/storage/weights"
)

// NewClient creates the platform client of conf. For the replay platform
// the client is the replay source itself.
func NewClient(conf config.Config) (any, error) {
	creds := conf.Credentials
	switch conf.Platform {
	case config.PlatformBinance:
		return clients.NewBinanceClient(creds.BinanceAPIKey, creds.BinanceAPISecret), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(creds.BybitAPIKey, creds.BybitAPISecret), nil
	case config.PlatformHyperliquid:
		return clients.NewHyperliquidClient(creds.HyperliquidPrivateKey, conf.HyperliquidURL)
	case config.PlatformReplay:
		return NewReplaySource(conf)
	default:
		return nil, errors.Errorf("unsupported platform: %s", conf.Platform)
	}
}

// NewReplaySource loads conf.ReplayFile recorded on conf.Interval.
func NewReplaySource(conf config.Config) (*collector.ReplaySource, error) {
	step, err := domain.ParseInterval(conf.Interval)
	if err != nil {
		return nil, err
	}
	candles, err := collector.ReadCSVFile(conf.ReplayFile, time.Unix(0, 0).UTC(), step)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load replay history")
	}
	return collector.NewReplaySource(conf.Symbol(), conf.Interval, candles)
}

// MarketData groups the candle and price sources of one platform.
type MarketData struct {
	Platform string
	Candles  collector.CandleSource
	Prices   pricer.PriceSource
	// Replay is set for the replay platform.
	Replay *collector.ReplaySource

	closers []func() error
}

// NewMarketData builds the market data services of conf.Platform. Exchange
// sources get retries and, when a Redis address is configured, a cache. An
// unreachable Redis is logged and skipped.
func NewMarketData(ctx context.Context, conf config.Config, m *metrics.Metrics, logger *zap.Logger) (*MarketData, error) {
	client, err := NewClient(conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create platform client")
	}
	provider, err := newServiceProvider(client)
	if err != nil {
		return nil, err
	}

	md := &MarketData{
		Platform: conf.Platform,
		Candles:  provider.CandleSource(),
		Prices:   provider.PriceSource(),
	}
	if replay, ok := client.(*collector.ReplaySource); ok {
		md.Replay = replay
		return md, nil
	}

	md.Candles = collector.NewLiveSource(conf.Platform, md.Candles, nil, m, logger)

	if conf.RedisAddr != "" {
		rc, err := collector.NewRedisClient(ctx, collector.RedisConfig{Addr: conf.RedisAddr})
		if err != nil {
			logger.Warn("candle cache disabled", zap.String("redis", conf.RedisAddr), zap.Error(err))
		} else {
			md.Candles = collector.NewCachedSource(md.Candles, rc, m, logger.With(zap.String("component", "candle_cache")))
			md.closers = append(md.closers, rc.Close)
		}
	}

	return md, nil
}

// Close releases cache connections.
func (md *MarketData) Close() error {
	var first error
	for _, c := range md.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewEngine wires the analyzers and the AI predictor around md. With an LLM
// configured the rule ensemble only answers when the LLM fails.
func NewEngine(conf config.Config, md *MarketData, m *metrics.Metrics, logger *zap.Logger) *engine.Engine {
	calc := indicators.NewCalculator(domain.DefaultWeights().Indicators)

	var predictor ai.Predictor = ai.NewRuleEnsemble(md.Candles, calc)
	if conf.LLMEnabled() {
		llm := clients.NewOpenAICompatibleClient(conf.LLMAPIURL, conf.Credentials.LLMAPIKey, conf.LLMModel)
		predictor = ai.Fallback(ai.NewLLMPredictor(llm, md.Candles, calc, logger), predictor, logger)
	}

	return engine.New(
		md.Candles,
		levels.NewAnalyzer(md.Candles, nil, conf.SubAnalysisTimeout, logger),
		confluence.NewAnalyzer(md.Candles, nil, conf.SubAnalysisTimeout, logger),
		predictor,
		logger,
		engine.WithPriceSource(md.Prices),
		engine.WithTimeout(conf.SubAnalysisTimeout),
		engine.WithMetrics(m),
	)
}

// Storage groups the signal sinks and the weight store of one process.
type Storage struct {
	Journal *signals.WALStore
	SQL     *sqlstore.Store
	Sink    storage.MultiSink
	Weights storage.WeightStore
}

// OpenStorage opens the signal journal and, when configured, the SQLite
// database. Weights come from SQLite when it is open, else from the YAML file.
func OpenStorage(conf config.Config) (*Storage, error) {
	journal, err := signals.NewWALStore(conf.WALDir)
	if err != nil {
		return nil, err
	}

	st := &Storage{
		Journal: journal,
		Sink:    storage.MultiSink{journal},
		Weights: weights.NewFileStore(conf.WeightsFile),
	}

	if conf.SQLitePath != "" {
		db, err := sqlstore.Open(conf.SQLitePath)
		if err != nil {
			journal.Close()
			return nil, err
		}
		st.SQL = db
		st.Sink = append(st.Sink, db)
		st.Weights = db
	}

	return st, nil
}

// Close closes every open store.
func (s *Storage) Close() error {
	var first error
	if s.SQL != nil {
		first = s.SQL.Close()
	}
	if err := s.Journal.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
