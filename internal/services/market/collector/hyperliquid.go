package collector

import (
	"context"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// HyperliquidSource fetches candle snapshots from Hyperliquid. Markets there
// are keyed by base coin, so BTCUSDT and BTCUSDC both map to "BTC".
type HyperliquidSource struct {
	info *hyperliquid.Info
	now  func() int64
}

// NewHyperliquidSource creates a new Hyperliquid candle source.
func NewHyperliquidSource(info *hyperliquid.Info) *HyperliquidSource {
	return &HyperliquidSource{info: info, now: nowMillis}
}

// Fetch implements CandleSource.
func (s *HyperliquidSource) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	if s.info == nil {
		return nil, errors.New("hyperliquid info is nil")
	}
	if lookback <= 0 {
		return nil, errors.New("lookback must be > 0")
	}

	pair, err := domain.PairFromSymbol(symbol)
	if err != nil {
		return nil, err
	}
	duration, err := domain.ParseInterval(interval)
	if err != nil {
		return nil, errors.Wrap(errUnsupportedInterval, err.Error())
	}

	endMs := s.now()
	// two extra candles of slack for boundary rounding
	startMs := endMs - int64(lookback+2)*duration.Milliseconds()

	snapshot, err := s.info.CandlesSnapshot(ctx, pair.From, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", pair.From)
	}
	if len(snapshot) > lookback {
		snapshot = snapshot[len(snapshot)-lookback:]
	}

	candles := make([]domain.Candle, 0, len(snapshot))
	for i, k := range snapshot {
		c, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "hyperliquid candle %d", i)
		}
		c.OpenTime = millis(k.TimeOpen)
		c.CloseTime = millis(k.TimeClose)
		candles = append(candles, c)
	}

	return candles, nil
}
