package query

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// The default pattern catalog ships in the binary; deployments may override
// it via QUERY_PATTERNS_PATH. A malformed catalog fails fast at startup
// rather than producing silent nulls deep in extraction.
//
//go:embed patterns.json
var defaultCatalogJSON []byte

// DefaultSpec is the spec skeleton a pattern contributes before extracted
// components are overlaid.
type DefaultSpec struct {
	Metrics    []MetricSpec `json:"metrics"`
	Dimensions []string     `json:"dimensions,omitempty"`
	Sort       []SortSpec   `json:"sort,omitempty"`
}

// Pattern is one intent pattern in the catalog. Declaration order is
// significant: classifier ties keep the earliest pattern.
type Pattern struct {
	Key                    string      `json:"key"`
	Intent                 string      `json:"intent"`
	Description            string      `json:"description,omitempty"`
	Examples               []string    `json:"examples"`
	RequiresItemFilter     bool        `json:"requiresItemFilter,omitempty"`
	RequiresTimeComparison bool        `json:"requiresTimeComparison,omitempty"`
	RequiresDurationFilter bool        `json:"requiresDurationFilter,omitempty"`
	DefaultSpec            DefaultSpec `json:"defaultSpec"`

	// DefaultLimit applies only when the user left the limit unspecified.
	// Zero means the intent never gets an implicit limit.
	DefaultLimit int `json:"defaultLimit,omitempty"`
}

// PresetKeywords maps a list of phrases to a preset time range tag.
// Entries are checked in order, so longer phrases must come first.
type PresetKeywords struct {
	Preset   string   `json:"preset"`
	Keywords []string `json:"keywords"`
}

// ComparisonKeywords maps phrases to a named comparison tag.
type ComparisonKeywords struct {
	Comparison string   `json:"comparison"`
	Keywords   []string `json:"keywords"`
}

// ThresholdPattern extracts a numeric filter from the query. The regex must
// expose capture group 1 = value and group 2 = optional unit; the unit maps
// through Units to a multiplier so amounts normalize to base units
// (GP, percent, minutes) before being emitted as filters.
type ThresholdPattern struct {
	Field    string             `json:"field"`
	Operator string             `json:"operator"`
	Regex    string             `json:"regex"`
	Units    map[string]float64 `json:"units,omitempty"`

	re *regexp.Regexp
}

// LimitPattern extracts an explicit result count. Group 1 = count.
type LimitPattern struct {
	Regex string `json:"regex"`

	re *regexp.Regexp
}

// ExtractionPatterns is the static extraction-pattern table consumed by the
// component extractor.
type ExtractionPatterns struct {
	TimeRanges         []PresetKeywords     `json:"timeRanges"`
	DaysOfWeek         []string             `json:"daysOfWeek"`
	TimeComparisons    []ComparisonKeywords `json:"timeComparisons"`
	ProfitThresholds   []ThresholdPattern   `json:"profitThresholds"`
	ROIThresholds      []ThresholdPattern   `json:"roiThresholds"`
	DurationThresholds []ThresholdPattern   `json:"durationThresholds"`
	Limits             []LimitPattern       `json:"limits"`
	ShowAllKeywords    []string             `json:"showAllKeywords"`
}

// Catalog is the full pattern/template configuration document. Both the
// classifier and the spec builder are unusable until one is loaded.
type Catalog struct {
	Version    int                `json:"version"`
	Patterns   []Pattern          `json:"patterns"`
	Extraction ExtractionPatterns `json:"extraction"`
}

// LoadCatalog parses and validates a catalog document.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse pattern catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDefaultCatalog loads the embedded catalog, or the file at path when
// path is non-empty.
func LoadDefaultCatalog(path string) (*Catalog, error) {
	data := defaultCatalogJSON
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern catalog override: %w", err)
		}
		data = fileData
	}
	return LoadCatalog(data)
}

// validAggregateOps is the closed set of aggregate operations.
var validAggregateOps = map[string]bool{
	AggSum: true, AggAvg: true, AggCount: true, AggMin: true, AggMax: true,
}

// validFilterOps is the closed operator set accepted in catalog filters.
var validFilterOps = map[string]bool{
	OpGT: true, OpLT: true, OpGTE: true, OpLTE: true,
	OpEq: true, OpNotEq: true, OpContains: true, OpBetween: true, OpIn: true,
}

func (c *Catalog) validate() error {
	if len(c.Patterns) == 0 {
		return fmt.Errorf("pattern catalog has no patterns")
	}

	seen := make(map[string]bool)
	for i, p := range c.Patterns {
		if p.Key == "" {
			return fmt.Errorf("pattern %d has no key", i)
		}
		if seen[p.Key] {
			return fmt.Errorf("duplicate pattern key %q", p.Key)
		}
		seen[p.Key] = true
		if p.Intent == "" {
			return fmt.Errorf("pattern %q has no intent", p.Key)
		}
		if len(p.Examples) == 0 {
			return fmt.Errorf("pattern %q has no examples", p.Key)
		}
		for _, m := range p.DefaultSpec.Metrics {
			if !validAggregateOps[m.Op] {
				return fmt.Errorf("pattern %q metric %q has invalid op %q", p.Key, m.Metric, m.Op)
			}
		}
		// Grouped default specs only carry aggregates; since all metric
		// entries are {metric, op} pairs we only need the ops validated above.
		for _, s := range p.DefaultSpec.Sort {
			if s.Order != "asc" && s.Order != "desc" {
				return fmt.Errorf("pattern %q sort on %q has invalid order %q", p.Key, s.By, s.Order)
			}
		}
		if p.DefaultLimit < 0 {
			return fmt.Errorf("pattern %q has negative default limit", p.Key)
		}
	}

	if len(c.Extraction.TimeRanges) == 0 {
		return fmt.Errorf("pattern catalog has no time range keywords")
	}
	if len(c.Extraction.DaysOfWeek) != 7 {
		return fmt.Errorf("pattern catalog must list exactly 7 days of week, got %d", len(c.Extraction.DaysOfWeek))
	}
	for _, t := range [][]ThresholdPattern{
		c.Extraction.ProfitThresholds,
		c.Extraction.ROIThresholds,
		c.Extraction.DurationThresholds,
	} {
		for _, tp := range t {
			if tp.Field == "" || !validFilterOps[tp.Operator] {
				return fmt.Errorf("threshold pattern %q has invalid field/operator", tp.Regex)
			}
		}
	}

	return nil
}

// compile precompiles all regexes so a bad expression fails at load time.
func (c *Catalog) compile() error {
	compile := func(patterns []ThresholdPattern) error {
		for i := range patterns {
			re, err := regexp.Compile(patterns[i].Regex)
			if err != nil {
				return fmt.Errorf("invalid threshold regex %q: %w", patterns[i].Regex, err)
			}
			patterns[i].re = re
		}
		return nil
	}

	if err := compile(c.Extraction.ProfitThresholds); err != nil {
		return err
	}
	if err := compile(c.Extraction.ROIThresholds); err != nil {
		return err
	}
	if err := compile(c.Extraction.DurationThresholds); err != nil {
		return err
	}

	for i := range c.Extraction.Limits {
		re, err := regexp.Compile(c.Extraction.Limits[i].Regex)
		if err != nil {
			return fmt.Errorf("invalid limit regex %q: %w", c.Extraction.Limits[i].Regex, err)
		}
		c.Extraction.Limits[i].re = re
	}

	return nil
}

// PatternByKey returns the pattern with the given key.
func (c *Catalog) PatternByKey(key string) (*Pattern, bool) {
	for i := range c.Patterns {
		if c.Patterns[i].Key == key {
			return &c.Patterns[i], true
		}
	}
	return nil, false
}

// PatternByIntent returns the first pattern with the given intent tag.
func (c *Catalog) PatternByIntent(intent string) (*Pattern, bool) {
	for i := range c.Patterns {
		if c.Patterns[i].Intent == intent {
			return &c.Patterns[i], true
		}
	}
	return nil, false
}
