package client

import (
	"log/slog"
	"time"

	"github.com/net2share/wrtctl/internal/config"
)

// Config seeds a Client's parameter defaults and ambient settings. Zero
// values in the parameter fields fall back to the built-in defaults.
type Config struct {
	Hostname      string
	Port          int
	SSLPort       int
	DaemonSSLPort int
	KeyPath       string
	UseSSL        bool

	// StunnelPath is the stunnel binary; empty searches for it.
	StunnelPath string
	// Resolver is an optional DNS server (host:port) used for Hostname.
	Resolver string
	// Timeout is the wait timeout used by WaitDefault.
	Timeout time.Duration
	// DialTimeout bounds each connect and name lookup; zero means
	// config.DefaultDialTimeout.
	DialTimeout time.Duration
	// StunnelGrace is how long stunnel gets to exit after SIGTERM.
	StunnelGrace time.Duration
	// LogLevel is the level named in the config file. The client only
	// carries it; Logger decides what is written.
	LogLevel string

	Logger *slog.Logger
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Hostname:      config.DefaultHostname,
		Port:          config.DefaultPort,
		SSLPort:       config.DefaultSSLPort,
		DaemonSSLPort: config.DefaultDaemonSSLPort,
		KeyPath:       config.DefaultKeyPath,
		Timeout:       config.DefaultTimeout,
		DialTimeout:   config.DefaultDialTimeout,
		LogLevel:      config.DefaultLogLevel,
	}
}

// LoadConfig reads the YAML file at path (the default location when path is
// empty; a missing default file is not an error) and applies WRTCTL_*
// environment overrides.
func LoadConfig(path string) (Config, error) {
	var (
		fc  *config.Config
		err error
	)
	if path == "" {
		fc, err = config.Load()
	} else {
		fc, err = config.LoadFromPath(path)
	}
	if err != nil {
		return Config{}, err
	}

	p, err := fc.Params()
	if err != nil {
		return Config{}, err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return Config{}, err
	}
	if err := env.Apply(fc, p); err != nil {
		return Config{}, err
	}

	cfg := configFromParams(p)
	cfg.StunnelPath = fc.StunnelPath
	cfg.Resolver = fc.Resolver
	cfg.Timeout = fc.Timeout
	cfg.LogLevel = fc.Log.Level
	return cfg, nil
}

// params builds the parameter set for cfg.
func (cfg Config) params() (*config.Params, error) {
	p := config.Defaults()

	strs := []struct {
		key config.Key
		val string
	}{
		{config.KeyHostname, cfg.Hostname},
		{config.KeyKeyPath, cfg.KeyPath},
	}
	for _, s := range strs {
		if s.val == "" {
			continue
		}
		if err := p.Set(s.key, s.val); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key config.Key
		val int
	}{
		{config.KeyPort, cfg.Port},
		{config.KeySSLPort, cfg.SSLPort},
		{config.KeyDaemonSSLPort, cfg.DaemonSSLPort},
	}
	for _, n := range ints {
		if n.val == 0 {
			continue
		}
		if _, err := p.ResolveInt(n.key, &n.val); err != nil {
			return nil, err
		}
	}

	if _, err := p.ResolveBool(config.KeyUseSSL, &cfg.UseSSL); err != nil {
		return nil, err
	}
	return p, nil
}

func configFromParams(p *config.Params) Config {
	return Config{
		Hostname:      p.Get(config.KeyHostname),
		Port:          p.Int(config.KeyPort),
		SSLPort:       p.Int(config.KeySSLPort),
		DaemonSSLPort: p.Int(config.KeyDaemonSSLPort),
		KeyPath:       p.Get(config.KeyKeyPath),
		UseSSL:        p.Bool(config.KeyUseSSL),
	}
}

// ConnectOptions overrides parameters for one Connect. A nil field keeps the
// current default; a set field becomes the new default.
type ConnectOptions struct {
	Hostname      *string
	Port          *int
	UseSSL        *bool
	SSLPort       *int
	DaemonSSLPort *int
	KeyPath       *string
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
