package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}

	if cfg.AgeModel.Draws != 1000 {
		t.Errorf("Default agemodel draws = %d, want 1000", cfg.AgeModel.Draws)
	}

	if cfg.Processing.Cutoffs != CutoffModeFlag {
		t.Errorf("Default cutoffs mode = %v, want flag", cfg.Processing.Cutoffs)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
processing:
  file_name_transliterate: true
  average_duplicate_depths: false
  cutoffs: trim
agemodel:
  enable: true
  draws: 250
  max_age: 25000
qc:
  enable: false
lmr:
  database_labels: ["DTDA", "LGM"]
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}

	if !cfg.Processing.FileNameTransliterate {
		t.Error("Expected FileNameTransliterate to be true")
	}

	if cfg.Processing.Cutoffs != CutoffModeTrim {
		t.Errorf("Cutoffs = %v, want trim", cfg.Processing.Cutoffs)
	}

	if cfg.AgeModel.Draws != 250 {
		t.Errorf("Draws = %d, want 250", cfg.AgeModel.Draws)
	}

	if cfg.QC.Enable {
		t.Error("Expected QC.Enable to be false")
	}

	if len(cfg.LMR.DatabaseLabels) != 2 {
		t.Errorf("DatabaseLabels length = %d, want 2", len(cfg.LMR.DatabaseLabels))
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `version: 1
processing:
  file_name_transliterate: true
  invalid indent
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := `version: 1
unknown_field: value
processing:
  file_name_transliterate: true
`

	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_values.yaml")

	// Invalid version number
	configWithInvalidVersion := `version: 2
processing:
  file_name_transliterate: true
`

	if err := os.WriteFile(configPath, []byte(configWithInvalidVersion), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected validation error for invalid version")
	}
}

func TestLoadConfiguration_BadCutoffMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad_cutoffs.yaml")

	content := `version: 1
processing:
  cutoffs: sideways
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for unknown cutoff mode")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// Verify it's valid YAML by trying to unmarshal
	cfg := &Config{}
	_, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Processing: ProcessingConfig{
			AverageDuplicateDepths: true,
			Cutoffs:                CutoffModeTrim,
		},
		AgeModel: AgeModelConfig{
			Enable: true,
			Draws:  500,
			MaxAge: 50000,
		},
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Dump() returned empty data")
	}

	// A dump must be loadable back
	got, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config is not valid: %v", err)
	}
	if got.Processing.Cutoffs != CutoffModeTrim {
		t.Errorf("Cutoffs after round trip = %v, want trim", got.Processing.Cutoffs)
	}
	if got.AgeModel.Draws != 500 {
		t.Errorf("Draws after round trip = %d, want 500", got.AgeModel.Draws)
	}
}
