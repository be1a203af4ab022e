package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EncoderImaging = "imaging"
	EncoderMozjpeg = "mozjpeg"
)

// SizeDefinition is one requested variant size. Suffix may embed {width}
// and {height} (or {imageWidth}/{imageHeight}); empty means "-{width}w".
type SizeDefinition struct {
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
	Suffix    string `yaml:"suffix,omitempty"`
}

// DynamicQuality declares a byte allowance for a reference pixel area.
type DynamicQuality struct {
	Width    int   `yaml:"width"`
	Height   int   `yaml:"height"`
	MaxBytes int64 `yaml:"max_bytes"`
}

// Settings is everything a generation run consumes.
type Settings struct {
	SourceDir      string           `yaml:"src"`
	OutputDir      string           `yaml:"dest"`
	Sizes          []SizeDefinition `yaml:"sizes"`
	MaxQuality     int              `yaml:"max_quality"`
	MinQuality     int              `yaml:"min_quality"`
	BatchSize      int              `yaml:"batch_size"`
	SkipExisting   bool             `yaml:"skip_existing"`
	ResizeOriginal bool             `yaml:"resize_original"`
	DynamicQuality *DynamicQuality  `yaml:"dynamic_quality,omitempty"`

	LogPath        string `yaml:"log_path,omitempty"`
	ManifestPath   string `yaml:"manifest_path,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
	Encoder        string `yaml:"encoder,omitempty"`
	MozjpegArchive string `yaml:"mozjpeg_archive,omitempty"`
}

// Default returns settings with every optional knob at its default value.
func Default() Settings {
	return Settings{
		MaxQuality: 90,
		MinQuality: 1,
		BatchSize:  10,
		LogLevel:   "info",
		Encoder:    EncoderImaging,
	}
}

// DefaultSizes is used when neither the file nor the flags declare sizes.
func DefaultSizes() []SizeDefinition {
	return []SizeDefinition{{MaxWidth: 1600, MaxHeight: 1200}}
}

// Load reads a YAML settings file on top of Default. The result is not
// validated so flags can still be applied; call Validate afterwards.
func Load(path string) (Settings, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (s *Settings) fillDefaults() {
	def := Default()
	if s.MaxQuality == 0 {
		s.MaxQuality = def.MaxQuality
	}
	if s.MinQuality == 0 {
		s.MinQuality = def.MinQuality
	}
	if s.BatchSize == 0 {
		s.BatchSize = def.BatchSize
	}
	if s.LogLevel == "" {
		s.LogLevel = def.LogLevel
	}
	if s.Encoder == "" {
		s.Encoder = def.Encoder
	}
}

// Validate checks the settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	if s.SourceDir == "" {
		return fmt.Errorf("src is required")
	}
	if s.OutputDir == "" {
		return fmt.Errorf("dest is required")
	}
	if len(s.Sizes) == 0 {
		return fmt.Errorf("at least one size definition is required")
	}
	for i, size := range s.Sizes {
		if size.MaxWidth <= 0 || size.MaxHeight <= 0 {
			return fmt.Errorf("sizes[%d]: max_width and max_height must be positive", i)
		}
	}
	if s.MaxQuality < 1 || s.MaxQuality > 100 {
		return fmt.Errorf("max_quality must be between 1 and 100")
	}
	if s.MinQuality < 1 || s.MinQuality > s.MaxQuality {
		return fmt.Errorf("min_quality must be between 1 and max_quality")
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive")
	}
	if dq := s.DynamicQuality; dq != nil {
		if dq.Width <= 0 || dq.Height <= 0 || dq.MaxBytes <= 0 {
			return fmt.Errorf("dynamic_quality needs positive width, height and max_bytes")
		}
	}
	switch s.Encoder {
	case EncoderImaging, EncoderMozjpeg:
	default:
		return fmt.Errorf("unknown encoder %q (want %s or %s)", s.Encoder, EncoderImaging, EncoderMozjpeg)
	}
	return s.validatePaths()
}

// validatePaths rejects an output directory that sits inside the source
// tree; generated variants would be discovered as sources on the next run.
func (s *Settings) validatePaths() error {
	src, err := filepath.Abs(s.SourceDir)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return err
	}
	if dst == src || strings.HasPrefix(dst, src+string(filepath.Separator)) {
		return fmt.Errorf("dest %s must not be inside src %s", s.OutputDir, s.SourceDir)
	}
	return nil
}
