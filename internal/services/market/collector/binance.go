package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// binanceMaxLimit is the largest page the klines endpoint serves.
const binanceMaxLimit = 1000

// BinanceSource fetches klines from Binance spot.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a new Binance candle source.
func NewBinanceSource(client *binance.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

// Fetch implements CandleSource.
func (s *BinanceSource) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	if lookback > binanceMaxLimit {
		lookback = binanceMaxLimit
	}

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(lookback).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		c, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "binance kline %d", i)
		}
		c.OpenTime = time.UnixMilli(k.OpenTime).UTC()
		c.CloseTime = time.UnixMilli(k.CloseTime).UTC()
		result[i] = c
	}

	return result, nil
}
