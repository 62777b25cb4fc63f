package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// HyperliquidPricer reads mid prices from the Hyperliquid info API.
type HyperliquidPricer struct {
	info *hyperliquid.Info
}

// NewHyperliquidPricer creates a pricer over info.
func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	return &HyperliquidPricer{info: info}
}

// CurrentPrice implements PriceSource. Mids are keyed by base coin, so the
// quote asset of symbol is ignored.
func (p *HyperliquidPricer) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if p.info == nil {
		return decimal.Zero, errors.New("hyperliquid info client is nil")
	}
	pair, err := domain.PairFromSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "hyperliquid mids")
	}

	mid, ok := mids[pair.From]
	if !ok || mid == "" {
		return decimal.Zero, errors.Errorf("hyperliquid API returned empty mid price for %s", pair.From)
	}
	return decimal.NewFromString(mid)
}
