package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

type loadConfig struct {
	URL         string
	Connections int
	Duration    time.Duration
	RampUp      time.Duration
	After       uint64
}

func (c *loadConfig) normalize() error {
	if c.Connections <= 0 {
		return fmt.Errorf("invalid conns: %d", c.Connections)
	}
	if _, err := url.Parse(c.URL); err != nil {
		return errors.Wrap(err, "invalid url")
	}
	// 1s per 500 connections
	if c.RampUp == 0 && c.Connections > 100 {
		c.RampUp = max(time.Duration(c.Connections/500)*time.Second, time.Second)
	}
	return nil
}

func (c loadConfig) target() string {
	if c.After == 0 {
		return c.URL
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return c.URL
	}
	q := u.Query()
	q.Set("after", strconv.FormatUint(c.After, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

type stats struct {
	started time.Time

	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	events      atomic.Int64
	badEvents   atomic.Int64
	buys        atomic.Int64
	sells       atomic.Int64
	holds       atomic.Int64
}

func (s *stats) record(sig domain.TradingSignal) {
	s.events.Add(1)
	switch sig.Direction {
	case domain.DirectionBuy:
		s.buys.Add(1)
	case domain.DirectionSell:
		s.sells.Add(1)
	default:
		s.holds.Add(1)
	}
}

func (s *stats) log(logger *zap.Logger, msg string) {
	elapsed := max(time.Since(s.started), time.Millisecond)
	logger.Info(msg,
		zap.Int64("connected", s.connected.Load()),
		zap.Int64("connect_errs", s.connectErrs.Load()),
		zap.Int64("stream_errs", s.streamErrs.Load()),
		zap.Int64("events", s.events.Load()),
		zap.Int64("bad_events", s.badEvents.Load()),
		zap.Int64("buy", s.buys.Load()),
		zap.Int64("sell", s.sells.Load()),
		zap.Int64("hold", s.holds.Load()),
		zap.Float64("events_per_sec", float64(s.events.Load())/elapsed.Seconds()),
		zap.Duration("elapsed", elapsed.Truncate(time.Second)))
}

// run opens cfg.Connections subscriptions and blocks until they all end.
func run(ctx context.Context, cfg loadConfig, client *http.Client, logger *zap.Logger) *stats {
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	st := &stats{started: time.Now()}
	target := cfg.target()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.log(logger, "status")
			}
		}
	}()

	var interval time.Duration
	if cfg.RampUp > 0 {
		interval = cfg.RampUp / time.Duration(cfg.Connections)
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Connections; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			subscribe(ctx, client, target, st)
		}()
	}
	wg.Wait()

	return st
}

func subscribe(ctx context.Context, client *http.Client, target string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}
	st.connected.Add(1)

	err = readSignals(resp.Body, func(sig domain.TradingSignal, err error) {
		if err != nil {
			st.badEvents.Add(1)
			return
		}
		st.record(sig)
	})
	if err != nil && ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}

// readSignals decodes "signal" events from an SSE stream until it ends.
// Comments and other event types are skipped.
func readSignals(r io.Reader, fn func(domain.TradingSignal, error)) error {
	reader := bufio.NewReader(r)
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if event == "signal" && data != "" {
				var sig domain.TradingSignal
				err := json.Unmarshal([]byte(data), &sig)
				fn(sig, err)
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
