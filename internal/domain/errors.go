package domain

import "github.com/pkg/errors"

var (
	// ErrDataUnavailable means a candle or price fetch failed; recoverable outside the primary series.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInsufficientData means the fetched series is shorter than the analysis needs.
	ErrInsufficientData = errors.New("insufficient market data")
	// ErrConfigurationMissing means no weight configuration is stored and defaults apply.
	ErrConfigurationMissing = errors.New("weight configuration missing")
	// ErrPrimaryDataUnavailable means the primary candle series is missing; the decision cannot be made.
	ErrPrimaryDataUnavailable = errors.New("primary candle data unavailable")
	// ErrAdapterFailure means the AI adapter failed or timed out.
	ErrAdapterFailure = errors.New("ai adapter failure")
)
