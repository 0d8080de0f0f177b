package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	ProcessingConfig struct {
		SiteConfigDir          string     `yaml:"site_config_dir" sanitize:"path_clean" validate:"omitempty,dirpath|dir"`
		OutputNameTemplate     string     `yaml:"output_name_template"`
		FileNameTransliterate  bool       `yaml:"file_name_transliterate"`
		AverageDuplicateDepths bool       `yaml:"average_duplicate_depths"`
		Cutoffs                CutoffMode `yaml:"cutoffs" validate:"gte=0"`
	}

	AgeModelConfig struct {
		Enable               bool    `yaml:"enable"`
		Draws                int     `yaml:"draws" validate:"min=1,max=10000"`
		MaxAge               float64 `yaml:"max_age" validate:"gt=0"`
		CacheDir             string  `yaml:"cache_dir" sanitize:"path_clean,assure_dir_exists"`
		MaxReservoirDistance float64 `yaml:"max_reservoir_distance_km" validate:"gt=0"`
	}

	QCConfig struct {
		Enable           bool `yaml:"enable"`
		SummarySentences int  `yaml:"summary_sentences" validate:"min=1"`
		PlotWidth        int  `yaml:"plot_width" validate:"min=200"`
		PlotHeight       int  `yaml:"plot_height" validate:"min=200"`
		Rasterize        bool `yaml:"rasterize"`
		ThumbnailWidth   int  `yaml:"thumbnail_width" validate:"min=0"`
	}

	LMRConfig struct {
		DatabaseLabels      []string `yaml:"database_labels" validate:"dive,required"`
		ModernSeasonality   bool     `yaml:"modern_seasonality"`
		IceVolumeCorrection bool     `yaml:"ice_volume_correction"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Processing ProcessingConfig `yaml:"processing"`
		AgeModel   AgeModelConfig   `yaml:"agemodel"`
		QC         QCConfig         `yaml:"qc"`
		LMR        LMRConfig        `yaml:"lmr"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
