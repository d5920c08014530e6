// Package process supervises a single long-running helper process.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// DefaultStopGrace is how long Stop waits after SIGTERM before killing.
const DefaultStopGrace = 5 * time.Second

// outputDelay bounds how long an exited process's output pipes may stay open,
// for instance when a grandchild inherited them.
const outputDelay = time.Second

// Info describes a started process.
type Info struct {
	Name    string
	PID     int
	Binary  string
	Args    []string
	Started time.Time
}

// Process is a started child process. Its exit is collected by a monitor
// goroutine, so the child never lingers as a zombie.
type Process struct {
	info   Info
	cmd    *exec.Cmd
	logger *slog.Logger
	grace  time.Duration

	stdout *logWriter
	stderr *logWriter

	exited  chan struct{}
	exitErr error // valid after exited is closed

	mu       sync.Mutex
	stopping bool
	stopOnce sync.Once
	stopErr  error
}

// Option configures a Process.
type Option func(*Process)

// WithLogger sets the logger used for lifecycle events. The child's output
// is logged to it at debug level, one record per line.
func WithLogger(l *slog.Logger) Option {
	return func(p *Process) { p.logger = l }
}

// WithStopGrace sets the SIGTERM grace period.
func WithStopGrace(d time.Duration) Option {
	return func(p *Process) { p.grace = d }
}

// Start launches binary with args. It returns as soon as the process exists.
func Start(name, binary string, args []string, opts ...Option) (*Process, error) {
	p := &Process{
		logger: slog.Default(),
		grace:  DefaultStopGrace,
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.stdout = newLogWriter(p.logger, name, "stdout")
	p.stderr = newLogWriter(p.logger, name, "stderr")

	cmd := exec.Command(binary, args...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.WaitDelay = outputDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p.cmd = cmd
	p.info = Info{
		Name:    name,
		PID:     cmd.Process.Pid,
		Binary:  binary,
		Args:    args,
		Started: time.Now(),
	}
	p.logger.Debug("process started", "name", name, "pid", p.info.PID, "binary", binary)

	go p.monitor()

	return p, nil
}

// Info returns a copy of the process description.
func (p *Process) Info() Info {
	info := p.info
	info.Args = append([]string(nil), p.info.Args...)
	return info
}

// Exited is closed once the process has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitErr returns the wait error after Exited is closed.
func (p *Process) ExitErr() error {
	<-p.exited
	return p.exitErr
}

// Running reports whether the process has not exited yet.
func (p *Process) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Stop terminates the process: SIGTERM, then SIGKILL after the grace
// period. It waits for the process to be reaped. Later calls return the
// first result.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopping = true
		p.mu.Unlock()
		p.stopErr = p.stop()
	})
	return p.stopErr
}

func (p *Process) stop() error {
	if !p.Running() {
		return nil
	}

	var err error
	if runtime.GOOS == "windows" {
		err = p.cmd.Process.Kill()
	} else {
		err = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal %s: %w", p.info.Name, err)
	}

	select {
	case <-p.exited:
	case <-time.After(p.grace):
		p.logger.Warn("process ignored SIGTERM, killing", "name", p.info.Name, "pid", p.info.PID)
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill %s: %w", p.info.Name, err)
		}
		<-p.exited
	}

	p.logger.Debug("process stopped", "name", p.info.Name, "pid", p.info.PID)
	return nil
}

func (p *Process) monitor() {
	p.exitErr = p.cmd.Wait()
	p.stdout.flush()
	p.stderr.flush()
	close(p.exited)

	p.mu.Lock()
	stopping := p.stopping
	p.mu.Unlock()
	if !stopping {
		p.logger.Warn("process exited unexpectedly", "name", p.info.Name, "pid", p.info.PID, "error", p.exitErr)
	}
}
