// Package stunnel runs an stunnel process that forwards a local port to
// wrtctld over SSL.
package stunnel

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/net2share/wrtctl/internal/binaries"
	"github.com/net2share/wrtctl/internal/config"
	"github.com/net2share/wrtctl/internal/port"
	"github.com/net2share/wrtctl/internal/process"
)

var (
	// ErrKeyUnreadable is returned when the key file cannot be opened.
	ErrKeyUnreadable = errors.New("stunnel key file is not readable")

	// ErrPortInUse is returned when the local accept port is taken.
	ErrPortInUse = errors.New("stunnel accept port already in use")
)

// Options describes one tunnel.
type Options struct {
	// Host is the remote wrtctld host.
	Host string
	// KeyPath holds the PEM key, certificate and CA.
	KeyPath string
	// ClientPort is the local accept port.
	ClientPort int
	// DaemonPort is the remote SSL port stunnel connects to.
	DaemonPort int

	// Binary is the stunnel executable; empty resolves it.
	Binary string
	// Dir receives the generated config and pid files; empty uses the
	// runtime directory.
	Dir string

	Logger    *slog.Logger
	StopGrace time.Duration
}

func (o Options) validate() error {
	if o.Host == "" {
		return fmt.Errorf("stunnel: tunnel needs a host")
	}
	if o.KeyPath == "" {
		return fmt.Errorf("stunnel: no key path")
	}
	for _, p := range []int{o.DaemonPort, o.ClientPort} {
		if p < 1 || p > 65535 {
			return fmt.Errorf("stunnel: invalid port %d", p)
		}
	}
	return nil
}

// Tunnel is a running stunnel process and its generated files.
type Tunnel struct {
	ID       string
	opts     Options
	proc     *process.Process
	confPath string
	pidPath  string
	logger   *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// Start writes the configuration and launches stunnel. It returns once the
// process exists; the accept port may not be listening yet, so callers
// retry their first connect.
func Start(o Options) (*Tunnel, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(o.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeyUnreadable, o.KeyPath, err)
	}
	f.Close()

	if !port.IsAvailable(o.ClientPort) {
		return nil, fmt.Errorf("%w: %d", ErrPortInUse, o.ClientPort)
	}

	binary, err := binaries.Resolve(binaries.NameStunnel, o.Binary)
	if err != nil {
		return nil, err
	}

	dir := o.Dir
	if dir == "" {
		if dir, err = config.EnsureRuntimeDir(); err != nil {
			return nil, fmt.Errorf("failed to create runtime dir: %w", err)
		}
	}

	t := &Tunnel{
		ID:     uuid.NewString(),
		opts:   o,
		logger: logger,
	}
	t.confPath = filepath.Join(dir, "stunnel-"+t.ID+".conf")
	t.pidPath = filepath.Join(dir, "stunnel-"+t.ID+".pid")

	if err := os.WriteFile(t.confPath, []byte(RenderConfig(o, t.pidPath)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write stunnel config: %w", err)
	}

	popts := []process.Option{process.WithLogger(logger)}
	if o.StopGrace > 0 {
		popts = append(popts, process.WithStopGrace(o.StopGrace))
	}
	proc, err := process.Start(binaries.NameStunnel, binary, []string{t.confPath}, popts...)
	if err != nil {
		t.removeFiles()
		return nil, err
	}
	t.proc = proc

	logger.Info("stunnel started",
		"id", t.ID,
		"pid", proc.Info().PID,
		"accept", t.LocalAddr(),
		"connect", net.JoinHostPort(o.Host, strconv.Itoa(o.DaemonPort)))
	return t, nil
}

// LocalAddr is the address clients dial to reach the tunnel.
func (t *Tunnel) LocalAddr() string {
	return net.JoinHostPort("localhost", strconv.Itoa(t.opts.ClientPort))
}

// ConfigPath returns the generated configuration file.
func (t *Tunnel) ConfigPath() string {
	return t.confPath
}

// PID returns the stunnel process id.
func (t *Tunnel) PID() int {
	return t.proc.Info().PID
}

// Running reports whether stunnel is still alive.
func (t *Tunnel) Running() bool {
	return t != nil && t.proc.Running()
}

// Exited is closed when the stunnel process has exited.
func (t *Tunnel) Exited() <-chan struct{} {
	return t.proc.Exited()
}

// Stop terminates stunnel and removes its files. It is safe on a nil
// Tunnel and only acts once.
func (t *Tunnel) Stop() error {
	if t == nil {
		return nil
	}
	t.stopOnce.Do(func() {
		t.stopErr = t.proc.Stop()
		t.removeFiles()
		t.logger.Info("stunnel stopped", "id", t.ID)
	})
	return t.stopErr
}

func (t *Tunnel) removeFiles() {
	for _, p := range []string{t.confPath, t.pidPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("failed to remove stunnel file", "path", p, "error", err)
		}
	}
}
