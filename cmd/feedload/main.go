// Command feedload opens many concurrent subscriptions to the signal stream
// of a running sigengine and reports connection and event counts.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "feedload",
		Usage: "Load test the /signals/stream endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Stream endpoint", Value: "http://localhost:8080/signals/stream"},
			&cli.IntFlag{Name: "conns", Usage: "Concurrent subscriptions", Value: 1000},
			&cli.DurationFlag{Name: "dur", Usage: "Test duration, 0 runs until interrupted", Value: time.Minute},
			&cli.DurationFlag{Name: "ramp", Usage: "Window to spread connection starts across"},
			&cli.UintFlag{Name: "after", Usage: "Replay signals after this journal index"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := loadConfig{
				URL:         cmd.String("url"),
				Connections: int(cmd.Int("conns")),
				Duration:    cmd.Duration("dur"),
				RampUp:      cmd.Duration("ramp"),
				After:       cmd.Uint("after"),
			}
			if err := cfg.normalize(); err != nil {
				return err
			}

			logger.Info("starting feed load",
				zap.String("url", cfg.URL),
				zap.Int("conns", cfg.Connections),
				zap.Duration("duration", cfg.Duration),
				zap.Duration("ramp", cfg.RampUp))

			st := run(ctx, cfg, newClient(cfg.Connections), logger)
			st.log(logger, "done")
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Fatal("feedload failed", zap.Error(err))
	}
}

func newClient(conns int) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     conns + 100,
			MaxIdleConns:        conns + 100,
			MaxIdleConnsPerHost: conns + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}
