// Package storage defines where signals go and where weights come from.
package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"go.uber.org/zap"
)

// SignalSink receives every generated signal.
type SignalSink interface {
	Save(ctx context.Context, signal domain.TradingSignal) error
}

// WeightStore returns the weight configuration of a user. A user without a
// stored configuration gets domain.DefaultWeights and an error wrapping
// domain.ErrConfigurationMissing.
type WeightStore interface {
	GetWeights(ctx context.Context, userID string) (domain.WeightConfiguration, error)
}

// MultiSink hands the same signal to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []SignalSink

func (m MultiSink) Save(ctx context.Context, signal domain.TradingSignal) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Save(ctx, signal); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Errorf("%d sinks failed, first: %v", len(errs), errs[0])
	}
}

// ResolveWeights loads the user's weights. It returns nil when no
// configuration is stored or the store fails, leaving the defaults to the
// engine.
func ResolveWeights(ctx context.Context, store WeightStore, userID string, logger *zap.Logger) *domain.WeightConfiguration {
	if store == nil {
		return nil
	}

	cfg, err := store.GetWeights(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrConfigurationMissing) {
			logger.Warn("failed to load weights", zap.String("user", userID), zap.Error(err))
		}
		return nil
	}
	return &cfg
}
