package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BybitPricer reads spot last prices from Bybit v5 tickers.
type BybitPricer struct {
	client *bybit.Client
}

// NewBybitPricer creates a pricer over client.
func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

// CurrentPrice implements PriceSource. The bybit client call does not take a
// context, so cancellation is only checked before the request.
func (p *BybitPricer) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	s := bybit.SymbolV5(symbol)
	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &s,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bybit price for %s", symbol)
	}
	if result == nil || len(result.Result.Spot.List) == 0 {
		return decimal.Zero, errors.Errorf("bybit API returned empty prices for %s", symbol)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}
