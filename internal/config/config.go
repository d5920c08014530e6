// Package config provides the wrtctl client parameter store and the
// configuration file and environment layers that seed it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WRTCTL_HOSTNAME.
const EnvPrefix = "WRTCTL"

// Config is the on-disk configuration. Parameter fields are pointers so an
// absent entry keeps the built-in default.
type Config struct {
	Hostname      *string `yaml:"hostname,omitempty"`
	Port          *int    `yaml:"port,omitempty"`
	SSLPort       *int    `yaml:"ssl_port,omitempty"`
	DaemonSSLPort *int    `yaml:"daemon_ssl_port,omitempty"`
	KeyPath       *string `yaml:"key_path,omitempty"`
	UseSSL        *bool   `yaml:"use_ssl,omitempty"`

	StunnelPath string        `yaml:"stunnel_path,omitempty"`
	Resolver    string        `yaml:"resolver,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Log         LogConfig     `yaml:"log,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Env holds WRTCTL_* overrides. Empty fields are unset. Names come from the
// field names only: an explicit envconfig tag would also read the bare name
// (HOSTNAME, PORT) when the prefixed one is unset.
type Env struct {
	Hostname      string `split_words:"true"`
	Port          string `split_words:"true"`
	SSLPort       string `split_words:"true"`
	DaemonSSLPort string `split_words:"true"`
	KeyPath       string `split_words:"true"`
	UseSSL        string `split_words:"true"`
	Resolver      string `split_words:"true"`
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	return LoadOrDefault(Path())
}

// LoadFromPath reads the configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault reads path, or returns an empty configuration if it does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = &Config{}
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv reads WRTCTL_* overrides from the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Params builds a parameter set from the built-in defaults overlaid with the
// file values.
func (c *Config) Params() (*Params, error) {
	p := Defaults()

	set := []struct {
		key Key
		val *string
	}{
		{KeyHostname, c.Hostname},
		{KeyPort, itoaPtr(c.Port)},
		{KeySSLPort, itoaPtr(c.SSLPort)},
		{KeyDaemonSSLPort, itoaPtr(c.DaemonSSLPort)},
		{KeyKeyPath, c.KeyPath},
		{KeyUseSSL, btoaPtr(c.UseSSL)},
	}
	for _, s := range set {
		if s.val == nil {
			continue
		}
		if err := p.Set(s.key, *s.val); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Apply overlays the set environment values on p and c.
func (e Env) Apply(c *Config, p *Params) error {
	set := []struct {
		key Key
		val string
	}{
		{KeyHostname, e.Hostname},
		{KeyPort, e.Port},
		{KeySSLPort, e.SSLPort},
		{KeyDaemonSSLPort, e.DaemonSSLPort},
		{KeyKeyPath, e.KeyPath},
		{KeyUseSSL, e.UseSSL},
	}
	for _, s := range set {
		if s.val == "" {
			continue
		}
		if err := p.Set(s.key, s.val); err != nil {
			return fmt.Errorf("%s_%s: %w", EnvPrefix, envName(s.key), err)
		}
	}
	if e.Resolver != "" {
		c.Resolver = e.Resolver
	}
	return nil
}

func envName(k Key) string {
	switch k {
	case KeyHostname:
		return "HOSTNAME"
	case KeyPort:
		return "PORT"
	case KeySSLPort:
		return "SSL_PORT"
	case KeyDaemonSSLPort:
		return "DAEMON_SSL_PORT"
	case KeyKeyPath:
		return "KEY_PATH"
	case KeyUseSSL:
		return "USE_SSL"
	}
	return string(k)
}

func itoaPtr(n *int) *string {
	if n == nil {
		return nil
	}
	s := strconv.Itoa(*n)
	return &s
}

func btoaPtr(b *bool) *string {
	if b == nil {
		return nil
	}
	s := strconv.FormatBool(*b)
	return &s
}
