package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

const stream = ": ping\n\n" +
	"id: 1\nevent: signal\ndata: {\"id\":\"a\",\"symbol\":\"BTCUSDT\",\"direction\":\"BUY\"}\n\n" +
	"id: 2\r\nevent: signal\r\ndata: {\"id\":\"b\",\"symbol\":\"BTCUSDT\",\"direction\":\"SELL\"}\r\n\r\n" +
	"event: other\ndata: {}\n\n" +
	"id: 3\nevent: signal\ndata: not json\n\n"

func TestReadSignals(t *testing.T) {
	var got []domain.TradingSignal
	var bad int
	err := readSignals(strings.NewReader(stream), func(sig domain.TradingSignal, err error) {
		if err != nil {
			bad++
			return
		}
		got = append(got, sig)
	})

	assert.Error(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.DirectionBuy, got[0].Direction)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, 1, bad)
}

func TestLoadConfig(t *testing.T) {
	cfg := loadConfig{URL: "http://localhost:8080/signals/stream", Connections: 1500}
	require.NoError(t, cfg.normalize())
	assert.Equal(t, 3*time.Second, cfg.RampUp)
	assert.Equal(t, cfg.URL, cfg.target())

	cfg.After = 42
	assert.Equal(t, "http://localhost:8080/signals/stream?after=42", cfg.target())

	assert.Error(t, (&loadConfig{URL: cfg.URL}).normalize())
}

func TestRun_CountsSignals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, stream)
	}))
	defer srv.Close()

	cfg := loadConfig{URL: srv.URL, Connections: 3, Duration: 5 * time.Second}
	require.NoError(t, cfg.normalize())

	st := run(t.Context(), cfg, srv.Client(), zap.NewNop())
	assert.EqualValues(t, 3, st.connected.Load())
	assert.EqualValues(t, 6, st.events.Load())
	assert.EqualValues(t, 3, st.buys.Load())
	assert.EqualValues(t, 3, st.sells.Load())
	assert.EqualValues(t, 3, st.badEvents.Load())
	assert.EqualValues(t, 3, st.streamErrs.Load())
}
