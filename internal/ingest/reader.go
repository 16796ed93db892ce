// Package ingest parses raw tick CSV exports into ordered tick tables.
// The exports use European formatting: ';' field separator, ',' decimal
// point, and either Spanish or lowercase English column headers.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// TimestampLayout matches "2025-11-04 00:00:00.021"; the fractional part
// is optional and may carry up to nanosecond precision.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// ErrNoTimestampColumn is returned when the header has no timestamp field.
var ErrNoTimestampColumn = errors.New("input has no timestamp column")

// Canonical column names after header normalization.
const (
	colTimestamp = "timestamp"
	colPrice     = "price"
	colVolume    = "volume"
	colSide      = "side"
	colBid       = "bid"
	colAsk       = "ask"
	colWindowVol = "window_vol"
	colTPSWindow = "tps_window"
	colFactorTPS = "factor_tps"
)

// headerAliases maps raw header names (Spanish export plus already-clean
// English) to canonical names.
var headerAliases = map[string]string{
	"timestamp":  colTimestamp,
	"precio":     colPrice,
	"price":      colPrice,
	"volumen":    colVolume,
	"volume":     colVolume,
	"lado":       colSide,
	"side":       colSide,
	"bid":        colBid,
	"ask":        colAsk,
	"window_vol": colWindowVol,
	"tps_window": colTPSWindow,
	"factor_tps": colFactorTPS,
}

// Stats reports what ingestion kept and dropped.
type Stats struct {
	RowsRead         int
	RowsKept         int
	DroppedTimestamp int            // rows with unparsable timestamps
	FieldErrors      map[string]int // non-empty numeric cells that failed to parse, by column
}

func (s *Stats) noteFieldError(col string) {
	if s.FieldErrors == nil {
		s.FieldErrors = make(map[string]int)
	}
	s.FieldErrors[col]++
}

// parseNumeric parses one numeric cell, counting non-empty cells that
// fail to parse.
func (s *Stats) parseNumeric(record []string, cols map[string]int, name string) *float64 {
	raw := strings.TrimSpace(fieldAt(record, cols, name))
	if raw == "" {
		return nil
	}
	v := parseNumber(raw)
	if v == nil {
		s.noteFieldError(name)
	}
	return v
}

// ReadTickFile reads, normalizes and sorts a raw tick CSV. A missing
// file is fatal; malformed rows inside the file are not.
func ReadTickFile(path string) ([]*domain.Tick, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open tick file: %w", err)
	}
	defer f.Close()

	ticks, stats, err := ReadTicks(f)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return ticks, stats, nil
}

// ReadTicks parses raw tick records and returns them sorted ascending by
// timestamp. The sort is stable: ties keep arrival order. Rows whose
// timestamp cannot be parsed are dropped; unparsable numeric cells
// become nil on the tick instead of failing the row.
func ReadTicks(r io.Reader) ([]*domain.Tick, Stats, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols := indexHeader(header)
	tsIdx, ok := cols[colTimestamp]
	if !ok {
		return nil, Stats{}, ErrNoTimestampColumn
	}

	var (
		ticks []*domain.Tick
		stats Stats
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read record: %w", err)
		}
		stats.RowsRead++

		ts, err := parseTimestamp(field(record, tsIdx))
		if err != nil {
			stats.DroppedTimestamp++
			continue
		}

		tick := &domain.Tick{
			Timestamp: ts,
			Price:     stats.parseNumeric(record, cols, colPrice),
			Volume:    stats.parseNumeric(record, cols, colVolume),
			Side:      strings.TrimSpace(fieldAt(record, cols, colSide)),
			Bid:       stats.parseNumeric(record, cols, colBid),
			Ask:       stats.parseNumeric(record, cols, colAsk),
		}
		ticks = append(ticks, tick)
		stats.RowsKept++
	}

	SortTicks(ticks)
	return ticks, stats, nil
}

// ReadProcessedFile reads a processed feature CSV (output of the window
// engine) back into memory, for training and forward testing.
func ReadProcessedFile(path string) ([]*domain.ProcessedTick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open processed file: %w", err)
	}
	defer f.Close()

	rows, err := ReadProcessed(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadProcessed parses a processed feature table. The same timestamp
// drop rule applies; factor_tps defaults to 0 when unparsable, matching
// the training loader's fill behavior.
func ReadProcessed(r io.Reader) ([]*domain.ProcessedTick, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexHeader(header)
	tsIdx, ok := cols[colTimestamp]
	if !ok {
		return nil, ErrNoTimestampColumn
	}

	var rows []*domain.ProcessedTick
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		ts, err := parseTimestamp(field(record, tsIdx))
		if err != nil {
			continue
		}

		row := &domain.ProcessedTick{
			Tick: domain.Tick{
				Timestamp: ts,
				Price:     parseNumber(fieldAt(record, cols, colPrice)),
				Volume:    parseNumber(fieldAt(record, cols, colVolume)),
				Side:      strings.TrimSpace(fieldAt(record, cols, colSide)),
				Bid:       parseNumber(fieldAt(record, cols, colBid)),
				Ask:       parseNumber(fieldAt(record, cols, colAsk)),
			},
			WindowVol: numberOrZero(fieldAt(record, cols, colWindowVol)),
			TPSWindow: numberOrZero(fieldAt(record, cols, colTPSWindow)),
			FactorTPS: numberOrZero(fieldAt(record, cols, colFactorTPS)),
		}
		rows = append(rows, row)
	}

	sortProcessed(rows)
	return rows, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// indexHeader maps canonical column names to their record index.
// Unknown columns are ignored.
func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := headerAliases[name]; ok {
			cols[canonical] = i
		}
	}
	return cols
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func fieldAt(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok {
		return ""
	}
	return field(record, idx)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, strings.TrimSpace(s))
}

// parseNumber coerces a European-formatted numeric cell. Returns nil for
// empty or unparsable values.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func numberOrZero(s string) float64 {
	if v := parseNumber(s); v != nil {
		return *v
	}
	return 0
}
