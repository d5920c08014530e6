package config

import (
	"fmt"
	"net"
	"strconv"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.validatePorts(); err != nil {
		return err
	}

	if err := c.validateResolver(); err != nil {
		return err
	}

	if err := validateLogLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

// validatePorts ensures the configured ports are usable and that the local
// stunnel port does not shadow the plaintext daemon port.
func (c *Config) validatePorts() error {
	ports := []struct {
		name string
		val  *int
	}{
		{"port", c.Port},
		{"ssl_port", c.SSLPort},
		{"daemon_ssl_port", c.DaemonSSLPort},
	}
	for _, p := range ports {
		if p.val == nil {
			continue
		}
		if *p.val < 1 || *p.val > 65535 {
			return fmt.Errorf("%s: %d is not a valid port", p.name, *p.val)
		}
	}

	if c.UseSSL != nil && *c.UseSSL {
		port, sslPort := DefaultPort, DefaultSSLPort
		if c.Port != nil {
			port = *c.Port
		}
		if c.SSLPort != nil {
			sslPort = *c.SSLPort
		}
		if port == sslPort {
			return fmt.Errorf("ssl_port must differ from port (both %d)", port)
		}
	}
	return nil
}

// validateResolver checks the optional DNS server address.
func (c *Config) validateResolver() error {
	if c.Resolver == "" {
		return nil
	}
	host, portStr, err := net.SplitHostPort(c.Resolver)
	if err != nil {
		return fmt.Errorf("resolver %q: expected host:port", c.Resolver)
	}
	if net.ParseIP(host) == nil {
		return fmt.Errorf("resolver %q: host must be an IP address", c.Resolver)
	}
	if p, err := strconv.Atoi(portStr); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("resolver %q: invalid port", c.Resolver)
	}
	return nil
}

// validateLogLevel validates the log level name.
func validateLogLevel(level string) error {
	if level == "" {
		return nil // Default will be applied
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, l := range validLevels {
		if level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", level)
}
