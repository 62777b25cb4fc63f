package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BinancePricer reads last prices from the Binance public ticker endpoint.
type BinancePricer struct {
	client *binance.Client
}

// NewBinancePricer creates a pricer over client. No credentials are needed.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

// CurrentPrice implements PriceSource.
func (p *BinancePricer) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance price for %s", symbol)
	}
	if len(prices) == 0 {
		return decimal.Zero, errors.Errorf("binance API returned empty prices for %s", symbol)
	}

	return decimal.NewFromString(prices[0].Price)
}
