// Package binaries locates the external helper binaries wrtctl runs.
package binaries

import (
	"fmt"
	"os/exec"

	"github.com/net2share/go-corelib/binman"
	"github.com/net2share/wrtctl/internal/config"
)

// NameStunnel is the SSL tunnel helper.
const NameStunnel = "stunnel"

// EnvStunnelPath overrides the stunnel lookup.
const EnvStunnelPath = "WRTCTL_STUNNEL_PATH"

// altNames are distribution-specific names for the same binary.
var altNames = map[string][]string{
	NameStunnel: {"stunnel4", "stunnel"},
}

// Defs returns the binary definitions for all helper binaries. stunnel is
// not downloadable; it must come from the system or the override.
func Defs() map[string]binman.BinaryDef {
	return map[string]binman.BinaryDef{
		NameStunnel: {
			Name:        NameStunnel,
			EnvOverride: EnvStunnelPath,
		},
	}
}

// systemPaths are common locations where binaries might be installed.
var systemPaths = []string{
	"/usr/local/bin",
	"/usr/local/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/opt/homebrew/bin",
}

// NewManager creates a binman.Manager configured for wrtctl.
func NewManager() *binman.Manager {
	return binman.NewManager(config.BinDir(), binman.WithSystemPaths(systemPaths))
}

// Resolve returns the path of the named binary. An explicit path wins;
// otherwise the override variable, the private bin dir and the system paths
// are searched, then $PATH under each known alias.
func Resolve(name, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	def, ok := Defs()[name]
	if !ok {
		return "", fmt.Errorf("unknown binary: %s", name)
	}

	path, err := NewManager().ResolvePath(def)
	if err == nil {
		return path, nil
	}

	for _, alt := range altNames[name] {
		if p, lookErr := exec.LookPath(alt); lookErr == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found (set %s or install it): %w", name, def.EnvOverride, err)
}
