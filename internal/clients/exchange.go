package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
)

// NewBinanceClient creates a Binance client. Klines and prices are public,
// so empty credentials are fine.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}

// NewBybitClient creates a Bybit client, authenticated only when both
// credentials are set.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	client := bybit.NewClient()
	if apiKey != "" && apiSecret != "" {
		client = client.WithAuth(apiKey, apiSecret)
	}
	return client
}
