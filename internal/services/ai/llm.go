package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/clients"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
	"go.uber.org/zap"
)

// LLMPredictor asks a language model for the prediction.
type LLMPredictor struct {
	client   clients.LLMClient
	source   collector.CandleSource
	calc     *indicators.Calculator
	lookback int
	logger   *zap.Logger
}

// NewLLMPredictor creates a predictor backed by client.
func NewLLMPredictor(client clients.LLMClient, source collector.CandleSource, calc *indicators.Calculator, logger *zap.Logger) *LLMPredictor {
	return &LLMPredictor{
		client:   client,
		source:   source,
		calc:     calc,
		lookback: ensembleLookback,
		logger:   logger.With(zap.String("component", "llm-predictor")),
	}
}

type llmAnswer struct {
	Signal     string   `json:"signal"`
	Confidence *float64 `json:"confidence"`
	RiskScore  *float64 `json:"risk_score"`
	Reasoning  string   `json:"reasoning"`
}

func (p *LLMPredictor) Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	candles, err := p.source.Fetch(ctx, symbol, interval, p.lookback)
	if err != nil {
		return domain.AIPrediction{}, errors.Wrap(err, "fetch candles for llm prompt")
	}
	candles = domain.SortCandles(candles)
	snapshot := p.calc.Compute(candles)

	response, err := p.client.Complete(ctx, systemPrompt, buildUserPrompt(symbol, interval, candles, snapshot))
	if err != nil {
		return domain.AIPrediction{}, err
	}

	prediction, reasoning, err := parsePrediction(response)
	if err != nil {
		return domain.AIPrediction{}, err
	}

	p.logger.Debug("llm prediction",
		zap.String("symbol", symbol),
		zap.String("signal", string(prediction.Signal)),
		zap.Float64("confidence", prediction.Confidence),
		zap.String("reasoning", reasoning))

	return prediction, nil
}

func parsePrediction(response string) (domain.AIPrediction, string, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var answer llmAnswer
	if err := json.Unmarshal([]byte(response), &answer); err != nil {
		return domain.AIPrediction{}, "", errors.Wrap(err, "failed to unmarshal JSON response")
	}

	signal, ok := domain.ParseDirection(strings.ToUpper(strings.TrimSpace(answer.Signal)))
	if !ok {
		return domain.AIPrediction{}, "", errors.Errorf("invalid signal: %q", answer.Signal)
	}
	if answer.Confidence == nil || *answer.Confidence < 0 || *answer.Confidence > 100 {
		return domain.AIPrediction{}, "", errors.New("invalid confidence (must be 0-100)")
	}
	if answer.RiskScore == nil || *answer.RiskScore < 0 || *answer.RiskScore > 100 {
		return domain.AIPrediction{}, "", errors.New("invalid risk_score (must be 0-100)")
	}

	return domain.AIPrediction{
		Signal:     signal,
		Confidence: *answer.Confidence,
		RiskScore:  *answer.RiskScore,
		Source:     "llm",
	}, answer.Reasoning, nil
}
