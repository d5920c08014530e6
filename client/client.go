// Package client is the wrtctl client library. A Client opens one session to
// wrtctld, directly or through an stunnel it supervises, queues commands
// and waits for their responses.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/net2share/wrtctl/internal/config"
	"github.com/net2share/wrtctl/internal/resolve"
	"github.com/net2share/wrtctl/internal/session"
	"github.com/net2share/wrtctl/internal/stunnel"
	"github.com/net2share/wrtctl/internal/wire"
)

var (
	// ErrPortCollision is returned when SSL is requested with the SSL port
	// equal to the plaintext port.
	ErrPortCollision = errors.New("ssl port must differ from the daemon port")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("client closed")

	// ErrNotConnected is returned when no session exists yet.
	ErrNotConnected = errors.New("not connected")

	// ErrNoResponse is returned by TakeResponse when no response is ready.
	ErrNoResponse = session.ErrNoResponse
)

// Result is the outcome of a wait.
type Result = session.Result

// Wait outcomes.
const (
	OutcomeOK      = session.OutcomeOK
	OutcomeTimeout = session.OutcomeTimeout
	OutcomeError   = session.OutcomeError
)

// Response is a daemon reply. A non-zero ID is the daemon's error code.
type Response struct {
	ID        uint16
	Subsystem string
	Value     string
}

// tunnel is the part of *stunnel.Tunnel the client relies on.
type tunnel interface {
	Stop() error
}

type tunnelStarter func(stunnel.Options) (tunnel, error)

func startStunnel(o stunnel.Options) (tunnel, error) {
	t, err := stunnel.Start(o)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the TCP dialer used to reach the daemon or tunnel.
func WithDialer(d session.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// Client talks to one wrtctld. Its methods may be called from several
// goroutines but are serialized; Close may interrupt a blocked Wait.
type Client struct {
	mu       sync.Mutex
	cfg      Config
	params   *config.Params
	logger   *slog.Logger
	dialer   session.Dialer
	resolver *resolve.Resolver

	startTunnel tunnelStarter

	sess   *session.Session
	tunnel tunnel
	addr   string   // endpoint of the last Connect
	unsent [][]byte // commands carried to the next Redial
	closed bool
}

// New creates a Client with the parameters in cfg as its defaults. No
// connection is made.
func New(cfg Config, opts ...Option) (*Client, error) {
	p, err := cfg.params()
	if err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = config.DefaultDialTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		cfg:         cfg,
		params:      p,
		logger:      cfg.Logger,
		dialer:      &net.Dialer{},
		startTunnel: startStunnel,
	}
	if cfg.Resolver != "" {
		c.resolver = resolve.New(cfg.Resolver, cfg.DialTimeout)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens a session, replacing any existing one. With SSL enabled a
// fresh stunnel is started first and the session goes through its local
// port. Failures are not retried. A tunnel started by a failed Connect
// stays with the client until Close or the next SSL Connect.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	hostname, err := c.params.ResolveString(config.KeyHostname, opts.Hostname)
	if err != nil {
		return err
	}
	port, err := c.params.ResolveInt(config.KeyPort, opts.Port)
	if err != nil {
		return err
	}
	useSSL, err := c.params.ResolveBool(config.KeyUseSSL, opts.UseSSL)
	if err != nil {
		return err
	}
	sslPort, err := c.params.ResolveInt(config.KeySSLPort, opts.SSLPort)
	if err != nil {
		return err
	}
	daemonSSLPort, err := c.params.ResolveInt(config.KeyDaemonSSLPort, opts.DaemonSSLPort)
	if err != nil {
		return err
	}
	keyPath, err := c.params.ResolveString(config.KeyKeyPath, opts.KeyPath)
	if err != nil {
		return err
	}

	if useSSL && sslPort == port {
		return fmt.Errorf("%w: both are %d", ErrPortCollision, port)
	}

	if c.sess != nil {
		if err := c.sess.Close(); err != nil {
			c.logger.Debug("closing previous session", "error", err)
		}
		c.sess = nil
	}

	host := hostname
	if c.resolver != nil {
		lctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
		host, err = c.resolver.LookupHost(lctx, hostname)
		cancel()
		if err != nil {
			return wire.NewError("resolve "+hostname, wire.ErrNS, err)
		}
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if useSSL {
		if err := c.stopTunnel(); err != nil {
			c.logger.Warn("failed to stop previous tunnel", "error", err)
		}
		t, err := c.startTunnel(stunnel.Options{
			Host:       host,
			KeyPath:    keyPath,
			ClientPort: sslPort,
			DaemonPort: daemonSSLPort,
			Binary:     c.cfg.StunnelPath,
			Logger:     c.logger,
			StopGrace:  c.cfg.StunnelGrace,
		})
		if err != nil {
			return fmt.Errorf("failed to start tunnel: %w", err)
		}
		c.tunnel = t
		addr = net.JoinHostPort("localhost", strconv.Itoa(sslPort))
	}

	c.addr = addr
	c.unsent = nil
	if err := c.dialLocked(ctx); err != nil {
		return err
	}
	c.logger.Info("connected", "host", hostname, "remote", addr, "ssl", useSSL)
	return nil
}

// Redial opens a new session to the endpoint of the last Connect, reusing
// its tunnel. It is how callers retry while a fresh stunnel warms up, and
// how they recover after a transport error: commands the old session never
// sent are queued on the new one, ahead of anything enqueued later.
func (c *Client) Redial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.addr == "" {
		return ErrNotConnected
	}
	if c.sess != nil {
		c.unsent = append(c.unsent, c.sess.Unsent()...)
		c.sess.Close()
		c.sess = nil
	}
	if err := c.dialLocked(ctx); err != nil {
		return err
	}
	if len(c.unsent) > 0 {
		c.logger.Debug("requeued unsent commands", "count", len(c.unsent))
		if err := c.sess.Requeue(c.unsent); err != nil {
			return err
		}
		c.unsent = nil
	}
	return nil
}

func (c *Client) dialLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	sess, err := session.Dial(ctx, c.dialer, c.addr, c.logger)
	if err != nil {
		return err
	}
	c.sess = sess
	return nil
}

// Enqueue queues a command for the next flush.
func (c *Client) Enqueue(id uint16, subsystem, value string) error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return s.Enqueue(wire.Command{ID: id, Subsystem: subsystem, Value: value})
}

// Flush sends the queued commands without waiting.
func (c *Client) Flush() error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return s.Flush()
}

// Wait flushes the queue when flush is set and blocks for the next
// response. A zero timeout waits indefinitely.
func (c *Client) Wait(ctx context.Context, timeout time.Duration, flush bool) Result {
	s, err := c.current()
	if err != nil {
		return Result{Outcome: OutcomeError, Code: wire.Err, Err: err}
	}
	return s.Wait(ctx, timeout, flush)
}

// WaitDefault is Wait with the configured timeout and a flush.
func (c *Client) WaitDefault(ctx context.Context) Result {
	return c.Wait(ctx, c.cfg.Timeout, true)
}

// TakeResponse returns the response made ready by the last successful
// Wait.
func (c *Client) TakeResponse() (Response, error) {
	s, err := c.current()
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			return Response{}, ErrNoResponse
		}
		return Response{}, err
	}
	r, err := s.TakeResponse()
	if err != nil {
		return Response{}, err
	}
	return Response{ID: r.ID, Subsystem: r.Subsystem, Value: r.Value}, nil
}

// State returns the session state.
func (c *Client) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.Closed
	}
	if c.sess == nil {
		return session.Unconnected
	}
	return c.sess.State()
}

// Defaults returns the current parameter defaults, including every
// override made so far.
func (c *Client) Defaults() Config {
	cfg := configFromParams(c.params)
	cfg.StunnelPath = c.cfg.StunnelPath
	cfg.Resolver = c.cfg.Resolver
	cfg.Timeout = c.cfg.Timeout
	cfg.DialTimeout = c.cfg.DialTimeout
	cfg.StunnelGrace = c.cfg.StunnelGrace
	cfg.LogLevel = c.cfg.LogLevel
	return cfg
}

// Status flattens r to the numeric status used by the wrtctl tools.
func (c *Client) Status(r Result) int {
	return r.Raw(c.params.Int(config.KeyNetOK), c.params.Int(config.KeyNetErrTimeout))
}

// Classify is the inverse of Status.
func (c *Client) Classify(code int) Result {
	return session.Classify(code, c.params.Int(config.KeyNetOK), c.params.Int(config.KeyNetErrTimeout))
}

// Close ends the session and stops the tunnel. Only the first call does
// anything.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	var errs []error
	if sess != nil {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stopTunnel(); err != nil {
		errs = append(errs, fmt.Errorf("stop tunnel: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Client) current() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.sess == nil {
		return nil, ErrNotConnected
	}
	return c.sess, nil
}

func (c *Client) stopTunnel() error {
	if c.tunnel == nil {
		return nil
	}
	t := c.tunnel
	c.tunnel = nil
	return t.Stop()
}
