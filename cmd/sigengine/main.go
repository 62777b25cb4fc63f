// Command sigengine produces BUY/SELL/HOLD signals for crypto pairs from
// multi-timeframe technical analysis and an AI sub-signal.
//
// Usage:
//
//	sigengine run --config config.yaml
//	sigengine signal --platform binance --pair BTC_USDT --interval 1h
//	sigengine backtest --file btc_1h.csv --pair BTC_USDT --interval 1h
//	sigengine collect --platform bybit --pair ETH_USDT --lookback 1000 --out eth_1h.csv
//	sigengine setup
//
// Exchange credentials are optional and read from BINANCE_API_KEY,
// BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET and
// HYPERLIQUID_PRIVATE_KEY. LLM_API_KEY enables the LLM predictor.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigengine/config"
	"github.com/vadiminshakov/sigengine/internal/setup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "sigengine",
		Usage: "Crypto signal decision engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Evaluate every configured pair on a schedule and serve the signal feed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML config",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runAction(ctx, cmd, logger)
				},
			},
			{
				Name:  "signal",
				Usage: "Produce one signal and print it as JSON",
				Flags: marketFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return signalAction(ctx, cmd, logger)
				},
			},
			{
				Name:  "backtest",
				Usage: "Replay recorded candles through the engine and score the signals",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "CSV history (open,close,low,high,volume per line)",
						Required: true,
					},
					&cli.IntFlag{Name: "warmup", Usage: "Candles visible before the first decision", Value: 200},
					&cli.IntFlag{Name: "step", Usage: "Candles between decisions", Value: 1},
					&cli.IntFlag{Name: "horizon", Usage: "Candles a signal may take to hit its stop or target", Value: 48},
					&cli.BoolFlag{Name: "outcomes", Usage: "Include every scored signal in the report"},
				}, pairFlags()...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return backtestAction(ctx, cmd, logger)
				},
			},
			{
				Name:  "collect",
				Usage: "Download candles from an exchange into a CSV history",
				Flags: append(marketFlags(),
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Output CSV path",
						Required: true,
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return collectAction(ctx, cmd, logger)
				},
			},
			{
				Name:  "setup",
				Usage: "Interactive configuration wizard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Config file to write", Value: setup.DefaultOutput},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return setup.RunTUI(cmd.String("out"))
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Fatal("sigengine failed", zap.Error(err))
	}
}

func pairFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "pair", Aliases: []string{"p"}, Usage: "Pair as BASE_QUOTE", Value: "BTC_USDT"},
		&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Primary candle interval", Value: "1h"},
		&cli.IntFlag{Name: "lookback", Aliases: []string{"l"}, Usage: "Primary candles per decision", Value: 200},
		&cli.StringFlag{Name: "weights", Usage: "YAML weight store", Value: "weights.yaml"},
		&cli.StringFlag{Name: "user", Usage: "User whose weights apply", Value: "default"},
		&cli.StringFlag{Name: "llm-url", Usage: "OpenAI-compatible chat completions URL, needs LLM_API_KEY"},
		&cli.StringFlag{Name: "model", Usage: "LLM model name"},
	}
}

func marketFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:  "platform",
			Usage: "binance, bybit or hyperliquid",
			Value: config.PlatformBinance,
		},
		&cli.StringFlag{Name: "redis", Usage: "Redis address of the candle cache"},
	}, pairFlags()...)
}

// entryFromFlags builds a config entry from the flags of cmd.
func entryFromFlags(cmd *cli.Command, platform string) config.ConfigTmp {
	return config.ConfigTmp{
		Platform:    platform,
		Pair:        cmd.String("pair"),
		Interval:    cmd.String("interval"),
		LookbackStr: strconv.FormatInt(cmd.Int("lookback"), 10),
		UserID:      cmd.String("user"),
		WeightsFile: cmd.String("weights"),
		RedisAddr:   cmd.String("redis"),
		LLMAPIURL:   cmd.String("llm-url"),
		Model:       cmd.String("model"),
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
