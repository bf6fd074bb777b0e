package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// DefaultSpeedLadderMs is the playback speed ladder, slowest first. Level i of
// the speed slider selects DefaultSpeedLadderMs[i] milliseconds per tick.
var DefaultSpeedLadderMs = []int{400, 250, 100, 50, 35, 20, 15, 10, 5, 1}

// PipelineConfig holds the thresholds used by the history pipeline and the
// playback controller. Unset fields fall back to the defaults returned by the
// Get* accessors, so partial files are safe.
type PipelineConfig struct {
	// Classification
	StationarySpeedMPH *float64 `json:"stationary_speed_mph,omitempty"`

	// Playback
	DefaultTickInterval *string `json:"default_tick_interval,omitempty"` // duration string like "100ms"
	SpeedLadderMs       []int   `json:"speed_ladder_ms,omitempty"`
	DefaultSpeedLevel   *int    `json:"default_speed_level,omitempty"`

	// Presentation
	Units *string `json:"units,omitempty"` // "mph" or "kph"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultPipelineConfig returns a config with every field set to its default.
func DefaultPipelineConfig() *PipelineConfig {
	ladder := make([]int, len(DefaultSpeedLadderMs))
	copy(ladder, DefaultSpeedLadderMs)
	return &PipelineConfig{
		StationarySpeedMPH:  ptrFloat64(1.0),
		DefaultTickInterval: ptrString("100ms"),
		SpeedLadderMs:       ladder,
		DefaultSpeedLevel:   ptrInt(9),
		Units:               ptrString("mph"),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &PipelineConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *PipelineConfig) Validate() error {
	if c.StationarySpeedMPH != nil && *c.StationarySpeedMPH < 0 {
		return fmt.Errorf("stationary_speed_mph must be non-negative, got %f", *c.StationarySpeedMPH)
	}

	if c.DefaultTickInterval != nil && *c.DefaultTickInterval != "" {
		d, err := time.ParseDuration(*c.DefaultTickInterval)
		if err != nil {
			return fmt.Errorf("invalid default_tick_interval '%s': %w", *c.DefaultTickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("default_tick_interval must be positive, got %s", d)
		}
	}

	for i, ms := range c.SpeedLadderMs {
		if ms <= 0 {
			return fmt.Errorf("speed_ladder_ms[%d] must be positive, got %d", i, ms)
		}
	}

	if c.DefaultSpeedLevel != nil {
		if lvl := *c.DefaultSpeedLevel; lvl < 0 || lvl >= len(c.GetSpeedLadder()) {
			return fmt.Errorf("default_speed_level %d out of range 0..%d", lvl, len(c.GetSpeedLadder())-1)
		}
	}

	if c.Units != nil {
		switch *c.Units {
		case "mph", "kph":
		default:
			return fmt.Errorf("units must be mph or kph, got %q", *c.Units)
		}
	}

	return nil
}

// GetStationarySpeedMPH returns the speed at or below which a sample counts
// as stationary.
func (c *PipelineConfig) GetStationarySpeedMPH() float64 {
	if c.StationarySpeedMPH == nil {
		return 1.0
	}
	return *c.StationarySpeedMPH
}

// GetDefaultTickInterval parses and returns DefaultTickInterval.
func (c *PipelineConfig) GetDefaultTickInterval() time.Duration {
	if c.DefaultTickInterval == nil || *c.DefaultTickInterval == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.DefaultTickInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// GetSpeedLadder returns the speed ladder as durations, slowest first.
func (c *PipelineConfig) GetSpeedLadder() []time.Duration {
	ms := c.SpeedLadderMs
	if len(ms) == 0 {
		ms = DefaultSpeedLadderMs
	}
	ladder := make([]time.Duration, len(ms))
	for i, v := range ms {
		ladder[i] = time.Duration(v) * time.Millisecond
	}
	return ladder
}

// GetDefaultSpeedLevel returns the slider level selected at startup.
func (c *PipelineConfig) GetDefaultSpeedLevel() int {
	if c.DefaultSpeedLevel == nil {
		return 9
	}
	return *c.DefaultSpeedLevel
}

// GetUnits returns the presentation units, "mph" or "kph".
func (c *PipelineConfig) GetUnits() string {
	if c.Units == nil {
		return "mph"
	}
	return *c.Units
}
