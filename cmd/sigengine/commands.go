package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/sigengine/config"
	"github.com/vadiminshakov/sigengine/internal"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"github.com/vadiminshakov/sigengine/internal/scheduler"
	"github.com/vadiminshakov/sigengine/internal/services/backtest"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/storage"
	"github.com/vadiminshakov/sigengine/internal/storage/weights"
	"github.com/vadiminshakov/sigengine/internal/web"
)

// runAction starts one runner per platform plus the HTTP feed. Storage,
// state and the HTTP address come from the first config entry.
func runAction(ctx context.Context, cmd *cli.Command, logger *zap.Logger) error {
	configs, err := config.Get(cmd.String("config"))
	if err != nil {
		return err
	}
	first := configs[0]

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := internal.OpenStorage(first)
	if err != nil {
		return errors.Wrap(err, "failed to open storage")
	}
	defer st.Close()

	state := scheduler.NewState(first.StateCapacity)
	g, ctx := errgroup.WithContext(ctx)

	for _, group := range groupByPlatform(configs) {
		conf := group[0]
		md, err := internal.NewMarketData(ctx, conf, m, logger)
		if err != nil {
			return errors.Wrapf(err, "failed to init %s market data", conf.Platform)
		}
		defer md.Close()
		if md.Replay != nil {
			if err := md.Replay.Seek(md.Replay.Len() - 1); err != nil {
				return err
			}
		}

		tasks := make([]scheduler.Task, 0, len(group))
		for _, c := range group {
			tasks = append(tasks, scheduler.Task{Symbol: c.Symbol(), Interval: c.Interval, Lookback: c.Lookback})
		}

		runner := scheduler.NewRunner(
			internal.NewEngine(conf, md, m, logger),
			tasks,
			state,
			logger.With(zap.String("platform", conf.Platform)),
			scheduler.WithSink(st.Sink),
			scheduler.WithWeightStore(st.Weights, first.UserID),
			scheduler.WithMinConfidence(first.MinConfidence.InexactFloat64()),
			scheduler.WithPollInterval(conf.PollInterval),
		)
		g.Go(func() error {
			return ignoreCanceled(runner.Run(ctx))
		})
	}

	var history interface {
		Recent(ctx context.Context, symbol string, limit int) ([]domain.TradingSignal, error)
	}
	if st.SQL != nil {
		history = st.SQL
	}
	server := web.NewServer(first.HTTPAddr, st.Journal, history, m.Handler(), logger)
	g.Go(func() error {
		if len(first.TLSDomains) > 0 {
			return server.StartWithAutoTLS(ctx, first.TLSDomains, first.TLSCacheDir)
		}
		return server.Start(ctx)
	})

	return g.Wait()
}

// groupByPlatform keeps the order in which platforms first appear.
func groupByPlatform(configs []config.Config) [][]config.Config {
	index := make(map[string]int)
	var groups [][]config.Config
	for _, c := range configs {
		i, ok := index[c.Platform]
		if !ok {
			i = len(groups)
			index[c.Platform] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalAction(ctx context.Context, cmd *cli.Command, logger *zap.Logger) error {
	conf, err := config.FromEntry(entryFromFlags(cmd, cmd.String("platform")))
	if err != nil {
		return err
	}

	md, err := internal.NewMarketData(ctx, conf, nil, logger)
	if err != nil {
		return err
	}
	defer md.Close()

	eng := internal.NewEngine(conf, md, nil, logger)
	w := storage.ResolveWeights(ctx, weights.NewFileStore(conf.WeightsFile), conf.UserID, logger)

	sig, err := eng.Generate(ctx, conf.Symbol(), conf.Interval, conf.Lookback, w)
	if err != nil {
		return err
	}
	return printJSON(sig)
}

func backtestAction(ctx context.Context, cmd *cli.Command, logger *zap.Logger) error {
	entry := entryFromFlags(cmd, config.PlatformReplay)
	entry.ReplayFile = cmd.String("file")
	conf, err := config.FromEntry(entry)
	if err != nil {
		return err
	}

	md, err := internal.NewMarketData(ctx, conf, nil, logger)
	if err != nil {
		return err
	}
	defer md.Close()

	cfg := backtest.Config{
		Lookback: conf.Lookback,
		Warmup:   int(cmd.Int("warmup")),
		Step:     int(cmd.Int("step")),
		Horizon:  int(cmd.Int("horizon")),
		Weights:  storage.ResolveWeights(ctx, weights.NewFileStore(conf.WeightsFile), conf.UserID, logger),
	}
	report, err := backtest.Run(ctx, md.Replay, internal.NewEngine(conf, md, nil, logger), cfg, logger)
	if err != nil {
		return err
	}
	if !cmd.Bool("outcomes") {
		report.Outcomes = nil
	}
	return printJSON(report)
}

func collectAction(ctx context.Context, cmd *cli.Command, logger *zap.Logger) error {
	conf, err := config.FromEntry(entryFromFlags(cmd, cmd.String("platform")))
	if err != nil {
		return err
	}
	if conf.Platform == config.PlatformReplay {
		return fmt.Errorf("collect needs an exchange platform")
	}

	md, err := internal.NewMarketData(ctx, conf, nil, logger)
	if err != nil {
		return err
	}
	defer md.Close()

	candles, err := md.Candles.Fetch(ctx, conf.Symbol(), conf.Interval, conf.Lookback)
	if err != nil {
		return err
	}
	if err := collector.WriteCSVFile(cmd.String("out"), candles); err != nil {
		return err
	}

	logger.Info("candles saved",
		zap.String("symbol", conf.Symbol()),
		zap.String("interval", conf.Interval),
		zap.Int("count", len(candles)),
		zap.String("file", cmd.String("out")))
	return nil
}
