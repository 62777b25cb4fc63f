// Package domain defines the value types shared by the signal engine:
// candles, indicator snapshots, pattern matches, support/resistance levels,
// confluence signals, weight configuration and the final trading signal.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// quoteAssets known quote currencies, longest first so USDT wins over USD.
var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "USD", "BTC", "ETH", "EUR"}

// Pair is a cryptocurrency trading pair.
type Pair struct {
	// From is the base currency symbol.
	From string
	// To is the quote currency symbol.
	To string
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// ParsePair parses the BASE_QUOTE config notation (e.g. BTC_USDT).
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, errors.Errorf("invalid pair %q, expected BASE_QUOTE", s)
	}
	return Pair{From: parts[0], To: parts[1]}, nil
}

// PairFromSymbol splits an exchange symbol such as BTCUSDT into base and quote.
func PairFromSymbol(symbol string) (Pair, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, "_") {
		return ParsePair(symbol)
	}
	for _, quote := range quoteAssets {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return Pair{From: strings.TrimSuffix(symbol, quote), To: quote}, nil
		}
	}
	return Pair{}, errors.Errorf("cannot determine quote asset of symbol %q", symbol)
}
