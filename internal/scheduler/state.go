// Package scheduler periodically produces trading signals for a set of
// symbols and remembers the latest signal of each.
package scheduler

import (
	"sync"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

// DefaultStateCapacity is the number of symbol/interval pairs remembered by default.
const DefaultStateCapacity = 256

// State keeps the last signal per symbol and interval. When full, the pair
// inserted first is evicted.
type State struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	last     map[string]domain.TradingSignal
}

// NewState creates a state holding at most capacity entries. A non-positive
// capacity uses DefaultStateCapacity.
func NewState(capacity int) *State {
	if capacity <= 0 {
		capacity = DefaultStateCapacity
	}
	return &State{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		last:     make(map[string]domain.TradingSignal, capacity),
	}
}

// Record stores signal and returns the one it replaced, if any.
func (s *State) Record(signal domain.TradingSignal) (domain.TradingSignal, bool) {
	key := stateKey(signal.Symbol, signal.Interval)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.last[key]
	if !ok {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.last, oldest)
		}
		s.order = append(s.order, key)
	}
	s.last[key] = signal
	return prev, ok
}

// Last returns the latest signal of symbol on interval.
func (s *State) Last(symbol, interval string) (domain.TradingSignal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.last[stateKey(symbol, interval)]
	return sig, ok
}

// Len returns the number of remembered pairs.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.last)
}

// Signals returns the remembered signals in insertion order.
func (s *State) Signals() []domain.TradingSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TradingSignal, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.last[key])
	}
	return out
}

func stateKey(symbol, interval string) string {
	return symbol + "@" + interval
}
