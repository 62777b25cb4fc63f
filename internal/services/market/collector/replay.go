package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// ReplaySource serves a recorded single-symbol history through a movable
// cursor. The cursor is the close of the current base candle and no candle
// closing after it is ever returned. Intervals coarser than the base one are
// resampled from the visible base candles unless a native series was added.
type ReplaySource struct {
	mu sync.RWMutex

	symbol       string
	baseInterval string
	baseStep     time.Duration
	base         []domain.Candle
	series       map[string][]domain.Candle
	index        int
}

// NewReplaySource creates a replay over candles recorded on interval.
// The cursor starts at the first candle.
func NewReplaySource(symbol, interval string, candles []domain.Candle) (*ReplaySource, error) {
	step, err := domain.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errors.Wrap(domain.ErrInsufficientData, "empty replay history")
	}

	return &ReplaySource{
		symbol:       strings.ToUpper(symbol),
		baseInterval: interval,
		baseStep:     step,
		base:         domain.SortCandles(candles),
		series:       make(map[string][]domain.Candle),
	}, nil
}

// AddSeries registers a natively recorded series for interval.
func (s *ReplaySource) AddSeries(interval string, candles []domain.Candle) error {
	if _, err := domain.ParseInterval(interval); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[interval] = domain.SortCandles(candles)
	return nil
}

// Symbol returns the symbol the history was recorded for.
func (s *ReplaySource) Symbol() string {
	return s.symbol
}

// Interval returns the interval of the base series.
func (s *ReplaySource) Interval() string {
	return s.baseInterval
}

// Len returns the number of base candles.
func (s *ReplaySource) Len() int {
	return len(s.base)
}

// Index returns the position of the cursor in the base series.
func (s *ReplaySource) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Seek moves the cursor to base candle i.
func (s *ReplaySource) Seek(i int) error {
	if i < 0 || i >= len(s.base) {
		return errors.Errorf("replay index %d out of range [0,%d)", i, len(s.base))
	}
	s.mu.Lock()
	s.index = i
	s.mu.Unlock()
	return nil
}

// Advance moves the cursor one candle forward and reports whether it moved.
func (s *ReplaySource) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index+1 >= len(s.base) {
		return false
	}
	s.index++
	return true
}

// Current returns the base candle under the cursor.
func (s *ReplaySource) Current() domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base[s.index]
}

// Ahead returns up to n base candles following the cursor. It exists for
// outcome evaluation and must not feed decisions.
func (s *ReplaySource) Ahead(n int) []domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	end := min(s.index+1+n, len(s.base))
	out := make([]domain.Candle, end-s.index-1)
	copy(out, s.base[s.index+1:end])
	return out
}

// Fetch implements CandleSource.
func (s *ReplaySource) Fetch(_ context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	if err := s.checkSymbol(symbol); err != nil {
		return nil, err
	}
	if lookback <= 0 {
		return nil, errors.Wrapf(domain.ErrDataUnavailable, "lookback must be > 0, got %d", lookback)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := s.base[:s.index+1]
	cursor := s.base[s.index].CloseTime

	var out []domain.Candle
	switch native, ok := s.series[interval]; {
	case interval == s.baseInterval:
		out = visible
	case ok:
		out = closedBefore(native, cursor)
	default:
		step, err := domain.ParseInterval(interval)
		if err != nil {
			return nil, errors.Wrap(domain.ErrDataUnavailable, err.Error())
		}
		if step < s.baseStep || step%s.baseStep != 0 {
			return nil, errors.Wrapf(domain.ErrDataUnavailable,
				"cannot derive %s candles from %s history", interval, s.baseInterval)
		}
		out = Resample(visible, step)
	}

	if len(out) == 0 {
		return nil, errors.Wrapf(domain.ErrDataUnavailable, "no %s candles before %s", interval, cursor.Format(time.RFC3339))
	}
	if len(out) > lookback {
		out = out[len(out)-lookback:]
	}

	result := make([]domain.Candle, len(out))
	copy(result, out)
	return result, nil
}

// CurrentPrice returns the close of the candle under the cursor.
func (s *ReplaySource) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if err := s.checkSymbol(symbol); err != nil {
		return decimal.Zero, err
	}
	return s.Current().Close, nil
}

func (s *ReplaySource) checkSymbol(symbol string) error {
	if !strings.EqualFold(symbol, s.symbol) {
		return errors.Wrapf(domain.ErrDataUnavailable, "replay holds %s, not %s", s.symbol, symbol)
	}
	return nil
}

func closedBefore(candles []domain.Candle, cursor time.Time) []domain.Candle {
	n := 0
	for n < len(candles) && !candles[n].CloseTime.After(cursor) {
		n++
	}
	return candles[:n]
}

// Resample aggregates ascending candles into buckets of step aligned to the
// epoch. The last bucket may be partial.
func Resample(candles []domain.Candle, step time.Duration) []domain.Candle {
	var out []domain.Candle
	for _, c := range candles {
		bucket := c.OpenTime.Truncate(step)
		if n := len(out); n > 0 && out[n-1].OpenTime.Equal(bucket) {
			agg := &out[n-1]
			agg.High = decimal.Max(agg.High, c.High)
			agg.Low = decimal.Min(agg.Low, c.Low)
			agg.Close = c.Close
			agg.Volume = agg.Volume.Add(c.Volume)
			continue
		}
		out = append(out, domain.Candle{
			OpenTime:  bucket,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			CloseTime: bucket.Add(step - time.Millisecond),
		})
	}
	return out
}
