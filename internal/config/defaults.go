package config

import (
	"strconv"
	"time"

	"github.com/net2share/wrtctl/internal/wire"
)

// Built-in defaults shared with wrtctld.
const (
	DefaultHostname      = "192.168.1.1"
	DefaultPort          = 2450 // unencrypted daemon traffic
	DefaultSSLPort       = 2451 // local stunnel accept port
	DefaultDaemonSSLPort = 2452 // remote stunnel port in front of wrtctld
	DefaultKeyPath       = "/etc/stunnel/wrtctl.pem"
	DefaultTimeout       = 10 * time.Second
	DefaultDialTimeout   = 10 * time.Second
	DefaultLogLevel      = "info"
)

// Defaults returns a parameter set populated with the built-in defaults.
func Defaults() *Params {
	return newParams(map[Key]string{
		KeyHostname:      DefaultHostname,
		KeyPort:          strconv.Itoa(DefaultPort),
		KeySSLPort:       strconv.Itoa(DefaultSSLPort),
		KeyDaemonSSLPort: strconv.Itoa(DefaultDaemonSSLPort),
		KeyKeyPath:       DefaultKeyPath,
		KeyUseSSL:        "false",
		KeyNetOK:         strconv.Itoa(int(wire.OK)),
		KeyNetErrTimeout: strconv.Itoa(int(wire.ErrTimeout)),
	})
}

// ApplyDefaults fills in missing optional values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}
