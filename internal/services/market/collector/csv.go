package collector

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

var csvHeader = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// WriteCSV writes candles with a header row; times are epoch milliseconds.
func WriteCSV(w io.Writer, candles []domain.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.OpenTime.UnixMilli(), 10),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
			strconv.FormatInt(c.CloseTime.UnixMilli(), 10),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write csv record")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes candles to path, replacing the file.
func WriteCSVFile(path string, candles []domain.Candle) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := WriteCSV(f, candles); err != nil {
		return err
	}
	return f.Sync()
}

// ReadCSV parses candles written by WriteCSV. Files of bare open,high,low,close
// rows are accepted too; their candles are spaced by step starting at start.
func ReadCSV(r io.Reader, start time.Time, step time.Duration) ([]domain.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}

	candles := make([]domain.Candle, 0, len(records))
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && strings.EqualFold(rec[0], csvHeader[0]) {
			continue
		}

		var c domain.Candle
		switch len(rec) {
		case len(csvHeader):
			if c, err = parseCandle(rec[1], rec[2], rec[3], rec[4], rec[5]); err != nil {
				return nil, errors.Wrapf(err, "csv line %d", i+1)
			}
			if c.OpenTime, err = parseTimestamp(rec[0]); err != nil {
				return nil, errors.Wrapf(err, "csv line %d", i+1)
			}
			if c.CloseTime, err = parseTimestamp(rec[6]); err != nil {
				return nil, errors.Wrapf(err, "csv line %d", i+1)
			}
		case 4:
			if c, err = parseCandle(rec[0], rec[1], rec[2], rec[3], "0"); err != nil {
				return nil, errors.Wrapf(err, "csv line %d", i+1)
			}
			c.OpenTime = start.Add(time.Duration(len(candles)) * step)
			c.CloseTime = c.OpenTime.Add(step - time.Millisecond)
		default:
			return nil, errors.Errorf("csv line %d: expected %d or 4 fields, got %d", i+1, len(csvHeader), len(rec))
		}
		candles = append(candles, c)
	}

	return domain.SortCandles(candles), nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, start time.Time, step time.Duration) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, start, step)
}
