// Package cmd provides the Cobra CLI for wrtctl.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/net2share/go-corelib/tui"
	"github.com/spf13/cobra"

	"github.com/net2share/wrtctl/client"
	"github.com/net2share/wrtctl/internal/config"
)

// Version and BuildTime are set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Flags shared by the commands that talk to wrtctld.
var (
	configPath string
	verbose    bool

	target        string
	daemonPort    int
	useSSL        bool
	noSSL         bool
	sslClientPort int
	sslServerPort int
	keyPath       string
	timeout       time.Duration
	retries       int
)

var rootCmd = &cobra.Command{
	Use:           "wrtctl",
	Short:         "Remote control client for wrtctld",
	Long:          "wrtctl - send commands to a wrtctld router daemon, optionally over stunnel",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default "+config.Path()+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")

	rootCmd.AddCommand(runCmd, execCmd, paramsCmd)
}

// addConnectFlags registers the connection overrides on c.
func addConnectFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&target, "target", "t", "", "daemon host")
	f.IntVarP(&daemonPort, "port", "p", 0, "daemon port")
	f.BoolVar(&useSSL, "ssl", false, "tunnel the session through stunnel")
	f.BoolVarP(&noSSL, "no-ssl", "n", false, "connect without stunnel")
	f.IntVarP(&sslClientPort, "ssl-client", "C", 0, "local stunnel port")
	f.IntVarP(&sslServerPort, "ssl-server", "S", 0, "remote stunnel port")
	f.StringVarP(&keyPath, "key-path", "k", "", "shared SSL key and certificate")
	f.DurationVar(&timeout, "timeout", 0, "wait per command (default from config)")
	f.IntVar(&retries, "retries", 5, "connect attempts after the first, while stunnel starts")
	c.MarkFlagsMutuallyExclusive("ssl", "no-ssl")
}

// connectOptions turns the flags that were set into overrides.
func connectOptions(c *cobra.Command) client.ConnectOptions {
	var o client.ConnectOptions
	f := c.Flags()
	if f.Changed("target") {
		o.Hostname = client.String(target)
	}
	if f.Changed("port") {
		o.Port = client.Int(daemonPort)
	}
	if f.Changed("ssl") {
		o.UseSSL = client.Bool(useSSL)
	}
	if f.Changed("no-ssl") {
		o.UseSSL = client.Bool(!noSSL)
	}
	if f.Changed("ssl-client") {
		o.SSLPort = client.Int(sslClientPort)
	}
	if f.Changed("ssl-server") {
		o.DaemonSSLPort = client.Int(sslServerPort)
	}
	if f.Changed("key-path") {
		o.KeyPath = client.String(keyPath)
	}
	return o
}

// setup loads the configuration once and installs the logger it names.
func setup() (client.Config, error) {
	cfg, err := client.LoadConfig(configPath)
	if err != nil {
		return client.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.Logger = logger
	return cfg, nil
}

func pathOrDefault() string {
	if configPath != "" {
		return configPath
	}
	return config.Path()
}

// exitError carries a process exit status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err.Error())
		var ee *exitError
		if errors.As(err, &ee) && ee.code > 0 {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// SetVersionInfo sets version information for the CLI.
func SetVersionInfo(version, buildTime string) {
	Version = version
	BuildTime = buildTime
	rootCmd.Version = version + " (built " + buildTime + ")"
}
