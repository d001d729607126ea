// Package config provides configuration management for chanmirror. It handles
// loading, validating and saving application settings from YAML files, with
// sensible defaults so the tool works without any configuration at all.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/chanmirror/pkg/auth"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Settings holds general knobs for mirror runs.
	Settings Settings `yaml:"settings"`

	// Publishers are external commands run by `chanmirror publish`, in order.
	Publishers []PublisherConfig `yaml:"publishers,omitempty"`

	// Hooks are optional Tengo scripts run around the publish step.
	Hooks HooksConfig `yaml:"hooks,omitempty"`

	// Credentials hold per-host authentication for private channel servers.
	Credentials []CredentialConfig `yaml:"credentials,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Network settings.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// MaxConcurrent bounds parallel downloads. The shared storage mirrors
	// are synced to tends to fall over under concurrent small-file I/O, so
	// keep this modest.
	MaxConcurrent int `yaml:"max_concurrent_downloads"`

	// Retry settings.
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"retry_backoff"`

	// Output settings.
	LogLevel string `yaml:"log_level"` // error, warn, info, debug
}

// PublisherConfig describes one external command to hand the mirror root to.
type PublisherConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// CredentialConfig describes the credentials for one channel host.
type CredentialConfig struct {
	Host     string            `yaml:"host"`
	Type     string            `yaml:"type"` // basic, bearer, header
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Token    string            `yaml:"token,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// HooksConfig points at optional hook script files.
type HooksConfig struct {
	PrePublish  string `yaml:"pre_publish,omitempty"`
	PostPublish string `yaml:"post_publish,omitempty"`
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for a single artifact request.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxConcurrent is the default number of parallel downloads.
	DefaultMaxConcurrent = 4

	// DefaultRetries is the default number of additional fetch attempts.
	DefaultRetries = 2

	// DefaultBackoff is the default delay before the first retry.
	DefaultBackoff = 500 * time.Millisecond

	// DefaultUserAgent identifies chanmirror to upstream channels.
	DefaultUserAgent = "chanmirror/1.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			HTTPTimeout:   DefaultHTTPTimeout,
			UserAgent:     DefaultUserAgent,
			MaxConcurrent: DefaultMaxConcurrent,
			Retries:       DefaultRetries,
			Backoff:       DefaultBackoff,
			LogLevel:      "info",
		},
	}
}

// DefaultConfigPath returns the default location of the config file.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine user config directory")
	}
	return filepath.Join(configDir, "chanmirror", "config.yaml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration rather than an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file, atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Settings.HTTPTimeout <= 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.MaxConcurrent <= 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.Retries < 0 {
		c.Settings.Retries = defaults.Settings.Retries
	}
	if c.Settings.Backoff <= 0 {
		c.Settings.Backoff = defaults.Settings.Backoff
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	switch c.Settings.LogLevel {
	case "error", "warn", "warning", "info", "debug":
	default:
		return fmt.Errorf("unknown log level %q", c.Settings.LogLevel)
	}

	for i, p := range c.Publishers {
		if p.Name == "" {
			return fmt.Errorf("publisher %d has no name", i)
		}
		if p.Command == "" {
			return fmt.Errorf("publisher %q has no command", p.Name)
		}
	}

	for i, cred := range c.Credentials {
		if cred.Host == "" {
			return fmt.Errorf("credential %d has no host", i)
		}
		if _, err := cred.Authenticator(); err != nil {
			return fmt.Errorf("credential for host %q: %w", cred.Host, err)
		}
	}
	return nil
}

// Authenticator builds the authenticator described by this credential entry.
func (c CredentialConfig) Authenticator() (auth.Authenticator, error) {
	return auth.New(auth.Type(c.Type), c.Username, c.Password, c.Token, c.Headers)
}

// AuthRegistry builds the per-host credential registry, or nil when no
// credentials are configured.
func (c *Config) AuthRegistry() (*auth.Registry, error) {
	if len(c.Credentials) == 0 {
		return nil, nil
	}
	registry := auth.NewRegistry()
	for _, cred := range c.Credentials {
		a, err := cred.Authenticator()
		if err != nil {
			return nil, err
		}
		registry.Register(cred.Host, a)
	}
	return registry, nil
}
