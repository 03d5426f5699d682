// Package config loads the YAML configuration of the sceneinfo command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-sceneio/internal/logging"
	"github.com/robert-malhotra/go-sceneio/sceneio"
)

const maxConfigSize = 1 << 20

// Hemisphere values accepted for UTM coordinates.
const (
	HemisphereNorth = "north"
	HemisphereSouth = "south"
)

// Config holds the settings of one sceneinfo run. Omitted fields keep
// the values from Default.
type Config struct {
	Formats         []string `yaml:"formats"`
	Workers         int      `yaml:"workers"`
	ParameterFile   string   `yaml:"parameter_file"`
	UTMZone         int      `yaml:"utm_zone"`
	Hemisphere      string   `yaml:"hemisphere"`
	MetersPerDegree float64  `yaml:"meters_per_degree"`
	Log             Log      `yaml:"log"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Formats:         []string{"matlab", "gmtsar", "isce", "gamma"},
		Workers:         4,
		UTMZone:         32,
		Hemisphere:      HemisphereNorth,
		MetersPerDegree: 110e3,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must be YAML: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Formats) == 0 {
		errs = append(errs, errors.New("formats: at least one format is required"))
	}
	if _, err := c.ParsedFormats(); err != nil {
		errs = append(errs, fmt.Errorf("formats: %w", err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.UTMZone < 1 || c.UTMZone > 60 {
		errs = append(errs, fmt.Errorf("utm_zone must be in [1, 60], got %d", c.UTMZone))
	}
	switch strings.ToLower(c.Hemisphere) {
	case HemisphereNorth, HemisphereSouth:
	default:
		errs = append(errs, fmt.Errorf("hemisphere must be %q or %q, got %q", HemisphereNorth, HemisphereSouth, c.Hemisphere))
	}
	if c.MetersPerDegree <= 0 {
		errs = append(errs, fmt.Errorf("meters_per_degree must be positive, got %g", c.MetersPerDegree))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	return errors.Join(errs...)
}

// ParsedFormats returns the configured formats in probe order.
func (c *Config) ParsedFormats() ([]sceneio.Format, error) {
	out := make([]sceneio.Format, 0, len(c.Formats))
	for _, name := range c.Formats {
		f, err := sceneio.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// South reports whether UTM coordinates are in the southern hemisphere.
func (c *Config) South() bool {
	return strings.EqualFold(c.Hemisphere, HemisphereSouth)
}

// Options maps the configuration onto importer options. The logger and
// filesystem are left to the caller.
func (c *Config) Options() ([]sceneio.Option, error) {
	formats, err := c.ParsedFormats()
	if err != nil {
		return nil, err
	}
	opts := []sceneio.Option{
		sceneio.WithFormats(formats...),
		sceneio.WithUTMZone(c.UTMZone, c.South()),
		sceneio.WithMetersPerDegree(c.MetersPerDegree),
	}
	if c.ParameterFile != "" {
		opts = append(opts, sceneio.WithParameterFile(c.ParameterFile))
	}
	return opts, nil
}
