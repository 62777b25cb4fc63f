// Package web serves the signal feed over HTTP: a server-sent event stream
// read from the signal journal, recent signals as JSON and Prometheus metrics.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	defaultPollInterval      = 2 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
)

type signalJournal interface {
	SignalsAfter(index uint64) ([]domain.SignalRecord, error)
}

type recentSignals interface {
	Recent(ctx context.Context, symbol string, limit int) ([]domain.TradingSignal, error)
}

// Server exposes the signal stream and operational endpoints.
type Server struct {
	Addr    string
	Journal signalJournal
	History recentSignals
	Metrics http.Handler

	PollInterval      time.Duration
	HeartbeatInterval time.Duration

	logger *zap.Logger
}

// NewServer creates a new web server instance. history and metrics may be nil.
func NewServer(addr string, journal signalJournal, history recentSignals, metrics http.Handler, logger *zap.Logger) *Server {
	return &Server{
		Addr:              addr,
		Journal:           journal,
		History:           history,
		Metrics:           metrics,
		PollInterval:      defaultPollInterval,
		HeartbeatInterval: defaultHeartbeatInterval,
		logger:            logger.With(zap.String("component", "web")),
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/signals/stream", s.handleSignalStream)
	mux.HandleFunc("/signals/recent", s.handleRecent)
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving signal feed", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

// StartWithAutoTLS serves HTTPS on Addr with ACME certificates for domains
// and answers HTTP-01 challenges on :80.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	challenge := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = challenge.Shutdown(shutdownCtx)
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme challenge server failed", zap.Error(err))
		}
	}()

	s.logger.Info("serving signal feed over tls", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen tls")
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "signal history not available")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	signals, err := s.History.Recent(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		s.logger.Error("failed to load recent signals", zap.Error(err))
		http.Error(w, "failed to load signals", http.StatusInternalServerError)
		return
	}
	if signals == nil {
		signals = []domain.TradingSignal{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(signals); err != nil {
		s.logger.Warn("failed to write recent signals", zap.Error(err))
	}
}

// handleSignalStream replays the journal after the requested index and then
// follows it. The start index comes from Last-Event-ID or ?after=.
func (s *Server) handleSignalStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "signal journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastIndex, err := startIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeats keep proxies from closing the connection
	heartbeat := time.NewTicker(s.HeartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.PollInterval)
	defer pollTicker.Stop()

	sendSignals := func() error {
		records, err := s.Journal.SignalsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Signal)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: signal\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		if len(records) > 0 {
			flusher.Flush()
		}
		return nil
	}

	if err := sendSignals(); err != nil {
		http.Error(w, "failed to load signals", http.StatusInternalServerError)
		s.logger.Error("signal stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSignals(); err != nil {
				s.logger.Warn("signal stream poll", zap.Error(err))
			}
		}
	}
}

func startIndex(r *http.Request) (uint64, error) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("after")
	}
	if raw == "" {
		return 0, nil
	}
	idx, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid event index %q", raw)
	}
	return idx, nil
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>sigengine</title>
  <style>
    body { margin:2rem; font-family:'Space Mono','JetBrains Mono',monospace; color:#111; }
    table { border-collapse:collapse; width:100%; }
    th, td { border-bottom:1px solid #ddd; padding:.4rem .6rem; text-align:left; }
    .BUY { color:#0a7d28; } .SELL { color:#b3261e; } .HOLD { color:#777; }
    details { font-size:.85rem; }
  </style>
</head>
<body>
  <h1>signals</h1>
  <table>
    <thead><tr><th>time</th><th>symbol</th><th>interval</th><th>direction</th><th>confidence</th><th>entry</th><th>stop</th><th>target</th><th>factors</th></tr></thead>
    <tbody id="rows"></tbody>
  </table>
  <script>
    const rows = document.getElementById('rows');
    const es = new EventSource('/signals/stream');
    es.addEventListener('signal', (ev) => {
      const s = JSON.parse(ev.data);
      const tr = document.createElement('tr');
      const factors = Object.entries(s.decision_factors || {})
        .map(([k, f]) => k + ': ' + f.signal + ' ' + f.weight.toFixed(2) + ' (' + f.reasoning + ')').join('<br>');
      tr.innerHTML = '<td>' + new Date(s.timestamp).toLocaleString() + '</td>' +
        '<td>' + s.symbol + '</td><td>' + s.interval + '</td>' +
        '<td class="' + s.direction + '">' + s.direction + '</td>' +
        '<td>' + s.confidence.toFixed(1) + '</td>' +
        '<td>' + s.entry_price + '</td><td>' + s.stop_loss + '</td><td>' + s.take_profit + '</td>' +
        '<td><details><summary>' + s.combined_score + '</summary>' + factors + '</details></td>';
      rows.prepend(tr);
    });
  </script>
</body>
</html>
`
