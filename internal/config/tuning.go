package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default tuning values used when a field is absent from the loaded file.
const (
	DefaultTimeLimitUs        = 0.1     // Tzero coincidence window (µs)
	DefaultAverageHitDistance = 20.0    // Hit averaging radius (cm)
	DefaultDistanceLimit      = 35.0    // Support attachment radius (cm)
	DefaultThinAxisErrMin     = 0.39    // Lower edge of the thin-axis error band (cm)
	DefaultThinAxisErrMax     = 0.41    // Upper edge of the thin-axis error band (cm)
	DefaultOneDErrThreshold   = 100.0   // Error above which an axis is unconstrained (cm)
	DefaultBottomTagger       = "volTaggerBot_0"
	DefaultTopHighTagger      = "volTaggerTopHigh_0"
	DefaultTopLowTagger       = "volTaggerTopLow_0"
	maxConfigFileSize         = 1 << 20 // 1MB
)

// TuningConfig holds the reconstruction parameters. Every field is optional;
// the Get* accessors supply defaults for anything left unset, so partial
// files are safe.
type TuningConfig struct {
	// Tzero clustering
	TimeLimitUs *float64 `json:"time_limit_us,omitempty" yaml:"time_limit_us,omitempty"`

	// Hit averaging
	AverageHitDistance *float64 `json:"average_hit_distance,omitempty" yaml:"average_hit_distance,omitempty"`

	// Track building
	DistanceLimit    *float64 `json:"distance_limit,omitempty" yaml:"distance_limit,omitempty"`
	ThinAxisErrMin   *float64 `json:"thin_axis_err_min,omitempty" yaml:"thin_axis_err_min,omitempty"`
	ThinAxisErrMax   *float64 `json:"thin_axis_err_max,omitempty" yaml:"thin_axis_err_max,omitempty"`
	OneDErrThreshold *float64 `json:"one_d_err_threshold,omitempty" yaml:"one_d_err_threshold,omitempty"`

	// Panel roles
	BottomTagger  *string `json:"bottom_tagger,omitempty" yaml:"bottom_tagger,omitempty"`
	TopHighTagger *string `json:"top_high_tagger,omitempty" yaml:"top_high_tagger,omitempty"`
	TopLowTagger  *string `json:"top_low_tagger,omitempty" yaml:"top_low_tagger,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the package defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		TimeLimitUs:        ptrFloat64(DefaultTimeLimitUs),
		AverageHitDistance: ptrFloat64(DefaultAverageHitDistance),
		DistanceLimit:      ptrFloat64(DefaultDistanceLimit),
		ThinAxisErrMin:     ptrFloat64(DefaultThinAxisErrMin),
		ThinAxisErrMax:     ptrFloat64(DefaultThinAxisErrMax),
		OneDErrThreshold:   ptrFloat64(DefaultOneDErrThreshold),
		BottomTagger:       ptrString(DefaultBottomTagger),
		TopHighTagger:      ptrString(DefaultTopHighTagger),
		TopLowTagger:       ptrString(DefaultTopLowTagger),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file. The format
// is chosen by extension (.json, .yaml, .yml).
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/crt/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/crt/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"time_limit_us", c.TimeLimitUs},
		{"distance_limit", c.DistanceLimit},
		{"thin_axis_err_min", c.ThinAxisErrMin},
		{"thin_axis_err_max", c.ThinAxisErrMax},
		{"one_d_err_threshold", c.OneDErrThreshold},
	}
	for _, f := range nonNegative {
		if f.v != nil && (math.IsNaN(*f.v) || *f.v < 0) {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}

	if c.AverageHitDistance != nil {
		if math.IsNaN(*c.AverageHitDistance) || *c.AverageHitDistance <= 0 {
			return fmt.Errorf("average_hit_distance must be positive, got %v", *c.AverageHitDistance)
		}
	}

	if lo, hi := c.GetThinAxisErrMin(), c.GetThinAxisErrMax(); lo >= hi {
		return fmt.Errorf("thin_axis_err_min (%v) must be below thin_axis_err_max (%v)", lo, hi)
	}

	taggers := map[string]string{}
	for _, t := range []struct {
		key, name string
	}{
		{"bottom_tagger", c.GetBottomTagger()},
		{"top_high_tagger", c.GetTopHighTagger()},
		{"top_low_tagger", c.GetTopLowTagger()},
	} {
		if t.name == "" {
			return fmt.Errorf("%s must not be empty", t.key)
		}
		if prev, dup := taggers[t.name]; dup {
			return fmt.Errorf("%s and %s both name tagger %q", prev, t.key, t.name)
		}
		taggers[t.name] = t.key
	}

	return nil
}

// GetTimeLimitUs returns the time_limit_us value or the default.
func (c *TuningConfig) GetTimeLimitUs() float64 {
	if c.TimeLimitUs == nil {
		return DefaultTimeLimitUs
	}
	return *c.TimeLimitUs
}

// GetAverageHitDistance returns the average_hit_distance value or the default.
func (c *TuningConfig) GetAverageHitDistance() float64 {
	if c.AverageHitDistance == nil {
		return DefaultAverageHitDistance
	}
	return *c.AverageHitDistance
}

// GetDistanceLimit returns the distance_limit value or the default.
func (c *TuningConfig) GetDistanceLimit() float64 {
	if c.DistanceLimit == nil {
		return DefaultDistanceLimit
	}
	return *c.DistanceLimit
}

// GetThinAxisErrMin returns the thin_axis_err_min value or the default.
func (c *TuningConfig) GetThinAxisErrMin() float64 {
	if c.ThinAxisErrMin == nil {
		return DefaultThinAxisErrMin
	}
	return *c.ThinAxisErrMin
}

// GetThinAxisErrMax returns the thin_axis_err_max value or the default.
func (c *TuningConfig) GetThinAxisErrMax() float64 {
	if c.ThinAxisErrMax == nil {
		return DefaultThinAxisErrMax
	}
	return *c.ThinAxisErrMax
}

// GetOneDErrThreshold returns the one_d_err_threshold value or the default.
func (c *TuningConfig) GetOneDErrThreshold() float64 {
	if c.OneDErrThreshold == nil {
		return DefaultOneDErrThreshold
	}
	return *c.OneDErrThreshold
}

func (c *TuningConfig) GetBottomTagger() string {
	if c.BottomTagger == nil {
		return DefaultBottomTagger
	}
	return *c.BottomTagger
}

func (c *TuningConfig) GetTopHighTagger() string {
	if c.TopHighTagger == nil {
		return DefaultTopHighTagger
	}
	return *c.TopHighTagger
}

func (c *TuningConfig) GetTopLowTagger() string {
	if c.TopLowTagger == nil {
		return DefaultTopLowTagger
	}
	return *c.TopLowTagger
}
