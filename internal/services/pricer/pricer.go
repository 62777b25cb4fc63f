// Package pricer reads the latest traded price of a symbol from an exchange.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource returns the current price of an exchange symbol such as BTCUSDT.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
