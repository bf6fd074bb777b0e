package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	if cfg.StationarySpeedMPH == nil || *cfg.StationarySpeedMPH != 1.0 {
		t.Errorf("Expected StationarySpeedMPH 1.0, got %v", cfg.StationarySpeedMPH)
	}
	if cfg.GetDefaultTickInterval() != 100*time.Millisecond {
		t.Errorf("GetDefaultTickInterval() = %v, want 100ms", cfg.GetDefaultTickInterval())
	}
	if cfg.GetDefaultSpeedLevel() != 9 {
		t.Errorf("GetDefaultSpeedLevel() = %d, want 9", cfg.GetDefaultSpeedLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	// the ladder must be a copy, not an alias of the package default
	cfg.SpeedLadderMs[0] = 999
	if DefaultSpeedLadderMs[0] != 400 {
		t.Errorf("DefaultSpeedLadderMs mutated through config: %v", DefaultSpeedLadderMs)
	}
}

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := &PipelineConfig{}

	if got := cfg.GetStationarySpeedMPH(); got != 1.0 {
		t.Errorf("GetStationarySpeedMPH() = %f, want 1.0", got)
	}
	if got := cfg.GetUnits(); got != "mph" {
		t.Errorf("GetUnits() = %q, want mph", got)
	}
	ladder := cfg.GetSpeedLadder()
	if len(ladder) != 10 || ladder[0] != 400*time.Millisecond || ladder[9] != time.Millisecond {
		t.Errorf("GetSpeedLadder() = %v", ladder)
	}
}

func TestLoadPipelineConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pipeline.json")

	testJSON := `{
  "stationary_speed_mph": 2.5,
  "default_tick_interval": "250ms",
  "speed_ladder_ms": [200, 20, 2],
  "default_speed_level": 1,
  "units": "kph"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPipelineConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetStationarySpeedMPH() != 2.5 {
		t.Errorf("GetStationarySpeedMPH() = %f, want 2.5", cfg.GetStationarySpeedMPH())
	}
	if cfg.GetDefaultTickInterval() != 250*time.Millisecond {
		t.Errorf("GetDefaultTickInterval() = %v, want 250ms", cfg.GetDefaultTickInterval())
	}
	if got := cfg.GetSpeedLadder(); len(got) != 3 || got[1] != 20*time.Millisecond {
		t.Errorf("GetSpeedLadder() = %v", got)
	}
	if cfg.GetUnits() != "kph" {
		t.Errorf("GetUnits() = %q, want kph", cfg.GetUnits())
	}
}

func TestLoadPipelineConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadPipelineConfig("/nonexistent/path/pipeline.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}

	yamlPath := filepath.Join(tmpDir, "pipeline.yaml")
	if err := os.WriteFile(yamlPath, []byte("units: mph"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPipelineConfig(yamlPath); err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}

	badPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badPath, []byte(`{"stationary_speed_mph": "fast"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPipelineConfig(badPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PipelineConfig
		wantErr bool
	}{
		{"empty", &PipelineConfig{}, false},
		{"negative stationary speed", &PipelineConfig{StationarySpeedMPH: ptrFloat64(-1)}, true},
		{"bad tick interval", &PipelineConfig{DefaultTickInterval: ptrString("soon")}, true},
		{"zero tick interval", &PipelineConfig{DefaultTickInterval: ptrString("0s")}, true},
		{"non-positive ladder entry", &PipelineConfig{SpeedLadderMs: []int{10, 0}}, true},
		{"level past ladder", &PipelineConfig{SpeedLadderMs: []int{10, 5}, DefaultSpeedLevel: ptrInt(2)}, true},
		{"level within ladder", &PipelineConfig{SpeedLadderMs: []int{10, 5}, DefaultSpeedLevel: ptrInt(1)}, false},
		{"unknown units", &PipelineConfig{Units: ptrString("furlongs")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	cfg, err := LoadPipelineConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("failed to load %s: %v", DefaultConfigPath, err)
	}
	def := DefaultPipelineConfig()
	if cfg.GetStationarySpeedMPH() != def.GetStationarySpeedMPH() ||
		cfg.GetDefaultTickInterval() != def.GetDefaultTickInterval() ||
		cfg.GetDefaultSpeedLevel() != def.GetDefaultSpeedLevel() ||
		cfg.GetUnits() != def.GetUnits() {
		t.Errorf("defaults file drifted from DefaultPipelineConfig: %+v", cfg)
	}
}
