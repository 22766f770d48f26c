package service

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"backtester/internal/models"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
}

// CSVSource читает <dir>/<SYMBOL>_<TF>.csv с заголовком time,open,high,low,close[,volume].
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Path(symbol, timeframe string) string {
	return filepath.Join(s.dir, symbol+"_"+timeframe+".csv")
}

func (s *CSVSource) Bars(_ context.Context, symbol, timeframe string) ([]models.Bar, error) {
	bars, err := LoadCSV(s.Path(symbol, timeframe))
	if err != nil {
		return nil, &models.DataError{Symbol: symbol, Timeframe: timeframe, Err: err}
	}
	return bars, nil
}

func LoadCSV(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer func() {
		_ = f.Close()
	}()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	return bars, nil
}

// ReadCSV разбирает бары; результат отсортирован и без дублей по времени.
func ReadCSV(r io.Reader) ([]models.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := func(names ...string) int {
		for _, n := range names {
			if i, ok := cols[n]; ok {
				return i
			}
		}
		return -1
	}
	iTime := idx("time", "timestamp", "date", "datetime")
	iOpen, iHigh, iLow, iClose := idx("open"), idx("high"), idx("low"), idx("close")
	iVol := idx("volume", "tick_volume", "vol")
	for name, i := range map[string]int{"time": iTime, "open": iOpen, "high": iHigh, "low": iLow, "close": iClose} {
		if i < 0 {
			return nil, errors.Errorf("missing column %q", name)
		}
	}

	var bars []models.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		ts, err := parseTime(rec[iTime])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		var b models.Bar
		b.Time = ts
		for _, fld := range []struct {
			dst *float64
			i   int
		}{{&b.Open, iOpen}, {&b.High, iHigh}, {&b.Low, iLow}, {&b.Close, iClose}, {&b.Volume, iVol}} {
			if fld.i < 0 {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[fld.i]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			*fld.dst = v
		}
		bars = append(bars, b)
	}

	return models.NormalizeSeries(bars), nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// миллисекунды у бирж, секунды у всех остальных
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognised time %q", raw)
}
