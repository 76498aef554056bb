// Package config - Service configuration.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/embryo-vision/go-embryo/inference/providers"
	"github.com/embryo-vision/go-embryo/models/model"
)

// Defaults applied by Load when the file omits a value.
const (
	DefaultListenAddr     = ":8080"
	DefaultMaxUploadBytes = 10 << 20
)

// Config holds the service configuration. Every field can be set from the
// YAML file; Load fills in the defaults.
type Config struct {
	// The address the HTTP server listens on.
	ListenAddr string `yaml:"listen_addr"`

	// The classifier model to load at startup.
	Model model.NewModelArgs `yaml:"model"`

	// The execution provider configuration.
	Provider providers.Config `yaml:"provider"`

	// Optional dataset directory for the exploration page. Empty disables
	// the page.
	DatasetDir string `yaml:"dataset_dir"`

	// The maximum accepted upload size in bytes.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Load reads and validates a configuration file. Parameters live in the
// file instead of being hard-coded.
//
// Arguments:
//   - path: The path to the YAML configuration file.
//
// Returns:
//   - *Config: The configuration with defaults applied.
//   - error: An error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Model.Name == "" {
		c.Model.Name = model.NameMobileNetV2
	}
	if c.Provider.Backend == "" {
		c.Provider.Backend = providers.BackendCPU
	}
}

// Validate checks that the configuration is complete enough to start the
// service.
//
// Returns:
//   - error: A description of the first invalid field, nil when valid.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Model.MetadataPath == "" {
		return errors.New("model.metadata_path is required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	return nil
}
