// Package dataset backs state_at(index): a read-only CSV reader over
// the historical lift-station dataset, grounded on
// original_source/src/simulation/data_loader.py. The base spec treats
// the historical data feed as an external service; state_at itself is
// an in-scope kernel operation (spec §6) that needs a concrete reader
// to be testable, so a minimal implementation lives here.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liftstation/pumpkernel/internal/domain"
)

// columns is the fixed header this reader expects, matching the
// original dataset's column names verbatim.
var columns = []string{"Time stamp", "L1", "V", "F1", "F2", "Price_High", "Price_Normal"}

type row struct {
	timestamp  time.Time
	l1         float64
	v          float64
	f1         float64
	f2         float64
	priceHigh  float64
	priceNorm  float64
}

// Metadata is the optional YAML sidecar describing the dataset (row
// count, column units), read the way the teacher's config loader reads
// its own YAML files.
type Metadata struct {
	RowCount int               `yaml:"row_count"`
	Units    map[string]string `yaml:"units"`
	Source   string            `yaml:"source"`
}

// Reader is a read-only, in-memory view of the historical dataset.
type Reader struct {
	rows     []row
	scenario domain.PriceScenario
	meta     Metadata
}

// Load reads csvPath into memory. scenario selects which price column
// StateAt reports by default. metaPath may be empty; when present it is
// decoded as YAML and stored for diagnostics but never changes how rows
// are parsed.
func Load(csvPath string, scenario domain.PriceScenario, metaPath string) (*Reader, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", csvPath, err)
	}
	defer f.Close()

	rows, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", csvPath, err)
	}

	r := &Reader{rows: rows, scenario: scenario}

	if metaPath != "" {
		meta, err := loadMetadata(metaPath)
		if err != nil {
			return nil, fmt.Errorf("dataset: metadata %s: %w", metaPath, err)
		}
		r.meta = meta
	}

	return r, nil
}

func loadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func parseCSV(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		parsed, err := parseRow(rec, idx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, parsed)
	}
	return rows, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for i, h := range header {
		idx[h] = i
	}
	for _, want := range columns {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("missing expected column %q", want)
		}
	}
	return idx, nil
}

func parseRow(rec []string, idx map[string]int) (row, error) {
	ts, err := time.Parse(time.RFC3339, rec[idx["Time stamp"]])
	if err != nil {
		ts, err = time.Parse("2006-01-02 15:04:05", rec[idx["Time stamp"]])
		if err != nil {
			return row{}, fmt.Errorf("parse timestamp %q: %w", rec[idx["Time stamp"]], err)
		}
	}
	l1, err := strconv.ParseFloat(rec[idx["L1"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse L1: %w", err)
	}
	v, err := strconv.ParseFloat(rec[idx["V"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse V: %w", err)
	}
	f1, err := strconv.ParseFloat(rec[idx["F1"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse F1: %w", err)
	}
	f2, err := strconv.ParseFloat(rec[idx["F2"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse F2: %w", err)
	}
	priceHigh, err := strconv.ParseFloat(rec[idx["Price_High"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse Price_High: %w", err)
	}
	priceNorm, err := strconv.ParseFloat(rec[idx["Price_Normal"]], 64)
	if err != nil {
		return row{}, fmt.Errorf("parse Price_Normal: %w", err)
	}
	return row{timestamp: ts, l1: l1, v: v, f1: f1, f2: f2, priceHigh: priceHigh, priceNorm: priceNorm}, nil
}

// StateAt builds a SystemState from the row at historyIndex.
func (r *Reader) StateAt(historyIndex int) (domain.SystemState, error) {
	if historyIndex < 0 || historyIndex >= len(r.rows) {
		return domain.SystemState{}, fmt.Errorf("dataset: index %d out of range [0,%d)", historyIndex, len(r.rows))
	}
	row := r.rows[historyIndex]

	price := row.priceNorm
	if r.scenario == domain.ScenarioHigh {
		price = row.priceHigh
	}

	return domain.SystemState{
		Timestamp:              row.timestamp,
		L1M:                    row.l1,
		VM3:                    row.v,
		F1M3Per15Min:           row.f1,
		F2M3H:                  row.f2,
		ElectricityPriceEURKWh: price,
		PriceScenario:          r.scenario,
		HistoryIndex:           historyIndex,
	}, nil
}

// InflowWindow implements forecast.HistorySource: the last lookback F1
// samples ending at (and including) historyIndex.
func (r *Reader) InflowWindow(historyIndex, lookback int) ([]float64, bool) {
	if historyIndex < 0 || historyIndex >= len(r.rows) {
		return nil, false
	}
	start := historyIndex - lookback + 1
	if start < 0 {
		return nil, false
	}
	out := make([]float64, lookback)
	for i := 0; i < lookback; i++ {
		out[i] = r.rows[start+i].f1
	}
	return out, true
}

// Len reports the number of rows loaded.
func (r *Reader) Len() int { return len(r.rows) }

// MetadataInfo returns the optional sidecar metadata, zero-valued if none
// was loaded.
func (r *Reader) MetadataInfo() Metadata { return r.meta }
