package pipeline

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/stats"
	"github.com/ardata-lab/ardata/internal/core/timeseries"
)

// SheetConfig is one validated sheet definition from the catalog. Sheets
// are loaded at startup from YAML files and fingerprinted for staleness
// detection in run records.
type SheetConfig struct {
	Name        string
	PipelineRef string
	Enabled     bool
	Category    string
	Order       int
	Flags       []string
	Metric      string
	Analysis    timeseries.Config
	Totals      []string
	Fingerprint string // SHA-256 of the raw YAML file; computed at load time
}

// Request builds the aggregation request identifying this sheet's dataset.
func (s SheetConfig) Request() dataset.AggregationRequest {
	p := Registry[s.PipelineRef]
	return dataset.AggregationRequest{
		Pipeline:   s.PipelineRef,
		Collection: p.Collection,
		Flags:      s.Flags,
	}
}

// rawSheet is the on-disk YAML shape. Analysis settings omitted by the file
// fall back to the per-scale defaults.
type rawSheet struct {
	Name     string   `yaml:"name"`
	Pipeline string   `yaml:"pipeline"`
	Enabled  *bool    `yaml:"enabled"`
	Category string   `yaml:"category"`
	Order    int      `yaml:"order"`
	Flags    []string `yaml:"flags"`
	Analysis struct {
		Metric            string `yaml:"metric"`
		ACF               *bool  `yaml:"acf"`
		Lags              []int  `yaml:"lags"`
		IncludeConfidence bool   `yaml:"include_confidence"`
		Forecast          struct {
			Enabled         bool    `yaml:"enabled"`
			Horizon         int     `yaml:"horizon"`
			ConfidenceLevel float64 `yaml:"confidence_level"`
		} `yaml:"forecast"`
	} `yaml:"analysis"`
	Totals []string `yaml:"totals"`
}

// Catalog loads and validates sheet configurations from *.yaml files in a
// directory. Each file contains exactly one sheet at the top level. The
// catalog is loaded once at startup — no hot reload.
type Catalog struct {
	dir    string
	sheets map[string]SheetConfig
}

// NewCatalog creates a catalog and eagerly loads all sheet files from dir.
// Returns an error if any sheet file is malformed: a bad catalog entry is a
// configuration error caught at load time, not at augmentation time.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir, sheets: make(map[string]SheetConfig)}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load() error {
	info, err := os.Stat(c.dir)
	if os.IsNotExist(err) {
		return nil // no catalog directory — valid (zero sheets configured)
	}
	if err != nil {
		return fmt.Errorf("sheet catalog dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sheet catalog path %q is not a directory", c.dir)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading sheet catalog dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(c.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading sheet file %s: %w", path, err)
		}

		var raw rawSheet
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing sheet file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // skip empty / comment-only files
		}

		sheet, err := buildSheet(raw)
		if err != nil {
			return fmt.Errorf("sheet %q (%s): %w", raw.Name, path, err)
		}
		sheet.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := c.sheets[sheet.Name]; exists {
			return fmt.Errorf("duplicate sheet name %q in catalog", sheet.Name)
		}
		c.sheets[sheet.Name] = sheet
	}
	return nil
}

func buildSheet(raw rawSheet) (SheetConfig, error) {
	p, ok := Lookup(raw.Pipeline)
	if !ok {
		return SheetConfig{}, fmt.Errorf("unknown pipeline %q", raw.Pipeline)
	}

	for _, f := range raw.Flags {
		if f != dataset.FlagCollectionDaysOnly && f != dataset.FlagExcludeOutliers {
			return SheetConfig{}, fmt.Errorf("unrecognized flag %q", f)
		}
	}
	for _, op := range raw.Totals {
		if !stats.ValidOperator(op) {
			return SheetConfig{}, fmt.Errorf("unsupported totals operator %q", op)
		}
	}

	metric := raw.Analysis.Metric
	if metric == "" {
		metric = "Total_Files"
	}

	cfg := timeseries.Config{
		ACFEnabled:        true,
		Lags:              raw.Analysis.Lags,
		IncludeConfidence: raw.Analysis.IncludeConfidence,
		ForecastEnabled:   raw.Analysis.Forecast.Enabled,
		Horizon:           raw.Analysis.Forecast.Horizon,
		ConfidenceLevel:   raw.Analysis.Forecast.ConfidenceLevel,
	}
	if raw.Analysis.ACF != nil {
		cfg.ACFEnabled = *raw.Analysis.ACF
	}
	if cfg.ACFEnabled && len(cfg.Lags) == 0 {
		cfg.Lags = append([]int(nil), DefaultLags[p.Scale]...)
	}
	if cfg.ForecastEnabled && cfg.Horizon == 0 {
		cfg.Horizon = DefaultHorizons[p.Scale]
	}
	if (cfg.ForecastEnabled || cfg.IncludeConfidence) && cfg.ConfidenceLevel == 0 {
		cfg.ConfidenceLevel = 0.95
	}
	if err := cfg.Validate(); err != nil {
		return SheetConfig{}, err
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	return SheetConfig{
		Name:        raw.Name,
		PipelineRef: raw.Pipeline,
		Enabled:     enabled,
		Category:    raw.Category,
		Order:       raw.Order,
		Flags:       raw.Flags,
		Metric:      metric,
		Analysis:    cfg,
		Totals:      raw.Totals,
	}, nil
}

// Get returns the sheet with the given name.
func (c *Catalog) Get(name string) (SheetConfig, bool) {
	s, ok := c.sheets[name]
	return s, ok
}

// Sheets returns all enabled sheets ordered by their configured order, ties
// broken by name for deterministic runs.
func (c *Catalog) Sheets() []SheetConfig {
	out := make([]SheetConfig, 0, len(c.sheets))
	for _, s := range c.sheets {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of loaded sheets, enabled or not.
func (c *Catalog) Len() int { return len(c.sheets) }
