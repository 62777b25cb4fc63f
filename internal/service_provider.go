package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/sigengine/internal/clients"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/pricer"
)

// serviceProvider defines a factory interface for creating platform-specific
// market data services.
type serviceProvider interface {
	CandleSource() collector.CandleSource
	PriceSource() pricer.PriceSource
}

// newServiceProvider creates a new service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	case *collector.ReplaySource:
		return &replayProvider{source: c}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) CandleSource() collector.CandleSource {
	return collector.NewBinanceSource(p.client)
}
func (p *binanceProvider) PriceSource() pricer.PriceSource {
	return pricer.NewBinancePricer(p.client)
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) CandleSource() collector.CandleSource {
	return collector.NewBybitSource(p.client)
}
func (p *bybitProvider) PriceSource() pricer.PriceSource {
	return pricer.NewBybitPricer(p.client)
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) CandleSource() collector.CandleSource {
	return collector.NewHyperliquidSource(p.client.Info())
}
func (p *hyperliquidProvider) PriceSource() pricer.PriceSource {
	return pricer.NewHyperliquidPricer(p.client.Info())
}

// replayProvider serves recorded history; the cursor close is the price.
type replayProvider struct {
	source *collector.ReplaySource
}

func (p *replayProvider) CandleSource() collector.CandleSource { return p.source }
func (p *replayProvider) PriceSource() pricer.PriceSource     { return p.source }
