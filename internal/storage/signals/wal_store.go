// Package signals journals generated trading signals in a WAL.
package signals

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

const (
	DefaultDir   = "./wal/signals"
	segmentLimit = 100
	maxSegments  = 10

	signalKeyPrefix = "signal_"
)

// WALStore persists trading signals in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed signal journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "signal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init signal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the signal to the journal.
func (s *WALStore) Save(_ context.Context, signal domain.TradingSignal) error {
	if s == nil || s.wal == nil {
		return errors.New("signal store is not initialized")
	}
	if signal.Symbol == "" {
		return errors.New("signal symbol is required")
	}

	payload, err := json.Marshal(signal)
	if err != nil {
		return errors.Wrap(err, "marshal trading signal")
	}

	key := signalKeyPrefix + signal.Symbol

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// SignalsAfter returns all signals written after the provided WAL index.
// Entries dropped by segment rotation are skipped.
func (s *WALStore) SignalsAfter(index uint64) ([]domain.SignalRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("signal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SignalRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, signalKeyPrefix) {
			continue
		}

		var signal domain.TradingSignal
		if err := json.Unmarshal(payload, &signal); err != nil {
			return nil, errors.Wrapf(err, "decode trading signal %d", idx)
		}
		records = append(records, domain.SignalRecord{Index: idx, Signal: signal})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("signal store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
