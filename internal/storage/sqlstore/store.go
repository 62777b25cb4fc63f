// Package sqlstore keeps trading signals and weight configurations in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS trading_signals (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	interval         TEXT NOT NULL,
	direction        TEXT NOT NULL,
	entry_price      TEXT NOT NULL,
	stop_loss        TEXT NOT NULL,
	take_profit      TEXT NOT NULL,
	confidence       REAL NOT NULL,
	total_score      REAL NOT NULL,
	combined_score   INTEGER NOT NULL,
	strength         INTEGER NOT NULL,
	decision_factors TEXT NOT NULL,
	created_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol ON trading_signals(symbol, created_at);

CREATE TABLE IF NOT EXISTS weight_configurations (
	user_id    TEXT PRIMARY KEY,
	config     TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Store SQLite-backed signal sink and weight store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open")
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite schema")
	}

	return &Store{db: db}, nil
}

// Save inserts the signal. Saving the same ID twice is a no-op.
func (s *Store) Save(ctx context.Context, signal domain.TradingSignal) error {
	factors, err := json.Marshal(signal.DecisionFactors)
	if err != nil {
		return errors.Wrap(err, "encode decision factors")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trading_signals
		 (id, symbol, interval, direction, entry_price, stop_loss, take_profit, confidence,
		  total_score, combined_score, strength, decision_factors, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.ID,
		signal.Symbol,
		signal.Interval,
		string(signal.Direction),
		signal.EntryPrice.String(),
		signal.StopLoss.String(),
		signal.TakeProfit.String(),
		signal.Confidence,
		signal.TotalScore,
		signal.CombinedScore,
		signal.ProfessionalStrength,
		string(factors),
		signal.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "insert trading signal")
}

// Recent returns up to limit signals of symbol, newest first. An empty
// symbol matches every symbol.
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]domain.TradingSignal, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, interval, direction, entry_price, stop_loss, take_profit, confidence,
		        total_score, combined_score, strength, decision_factors, created_at
		 FROM trading_signals
		 WHERE ? = '' OR symbol = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query trading signals")
	}
	defer rows.Close()

	var out []domain.TradingSignal
	for rows.Next() {
		var (
			sig                         domain.TradingSignal
			direction, factors, at      string
			entry, stopLoss, takeProfit string
		)
		if err := rows.Scan(&sig.ID, &sig.Symbol, &sig.Interval, &direction, &entry, &stopLoss, &takeProfit,
			&sig.Confidence, &sig.TotalScore, &sig.CombinedScore, &sig.ProfessionalStrength, &factors, &at); err != nil {
			return nil, errors.Wrap(err, "scan trading signal")
		}

		sig.Direction = domain.Direction(direction)
		if sig.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return nil, errors.Wrapf(err, "entry price of %s", sig.ID)
		}
		if sig.StopLoss, err = decimal.NewFromString(stopLoss); err != nil {
			return nil, errors.Wrapf(err, "stop loss of %s", sig.ID)
		}
		if sig.TakeProfit, err = decimal.NewFromString(takeProfit); err != nil {
			return nil, errors.Wrapf(err, "take profit of %s", sig.ID)
		}
		if err := json.Unmarshal([]byte(factors), &sig.DecisionFactors); err != nil {
			return nil, errors.Wrapf(err, "decision factors of %s", sig.ID)
		}
		if sig.Timestamp, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, errors.Wrapf(err, "timestamp of %s", sig.ID)
		}

		out = append(out, sig)
	}
	return out, errors.Wrap(rows.Err(), "iterate trading signals")
}

// GetWeights returns the stored configuration of userID or the defaults with
// domain.ErrConfigurationMissing.
func (s *Store) GetWeights(ctx context.Context, userID string) (domain.WeightConfiguration, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM weight_configurations WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultWeights(), errors.Wrapf(domain.ErrConfigurationMissing, "user %q", userID)
	}
	if err != nil {
		return domain.DefaultWeights(), errors.Wrap(err, "query weights")
	}

	cfg := domain.DefaultWeights()
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return domain.DefaultWeights(), errors.Wrapf(err, "decode weights of %q", userID)
	}
	if err := cfg.Validate(); err != nil {
		return domain.DefaultWeights(), errors.Wrapf(err, "weights of %q", userID)
	}
	return cfg, nil
}

// PutWeights validates and upserts cfg for userID.
func (s *Store) PutWeights(ctx context.Context, userID string, cfg domain.WeightConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode weights")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weight_configurations (user_id, config, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		userID, string(payload), time.Now().UTC().Format(time.RFC3339))
	return errors.Wrap(err, "upsert weights")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
