package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"go.uber.org/zap"
)

// RedisConfig configures the candle cache connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr)
	}
	return client, nil
}

// CachedSource is a read-through Redis cache in front of another source.
// Entries live for one interval. Cache errors fall through to the wrapped
// source and are never returned.
type CachedSource struct {
	source  CandleSource
	client  goredis.Cmdable
	prefix  string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCachedSource wraps source with a cache stored in client.
func NewCachedSource(source CandleSource, client goredis.Cmdable, m *metrics.Metrics, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		source:  source,
		client:  client,
		prefix:  "sigengine:candles",
		metrics: m,
		logger:  logger,
	}
}

// Fetch implements CandleSource.
func (s *CachedSource) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	key := s.key(symbol, interval, lookback)

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var candles []domain.Candle
		if err := json.Unmarshal(raw, &candles); err == nil {
			s.metrics.ObserveCache("hit")
			return candles, nil
		}
		s.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	case errors.Is(err, goredis.Nil):
		s.metrics.ObserveCache("miss")
	default:
		s.metrics.ObserveCache("error")
		s.logger.Warn("candle cache read failed", zap.String("key", key), zap.Error(err))
	}

	candles, err := s.source.Fetch(ctx, symbol, interval, lookback)
	if err != nil {
		return nil, err
	}

	ttl, perr := domain.ParseInterval(interval)
	if perr != nil {
		return candles, nil
	}
	payload, merr := json.Marshal(candles)
	if merr != nil {
		return candles, nil
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn("candle cache write failed", zap.String("key", key), zap.Error(err))
	}

	return candles, nil
}

func (s *CachedSource) key(symbol, interval string, lookback int) string {
	return fmt.Sprintf("%s:%s:%s:%d", s.prefix, symbol, interval, lookback)
}
