package cmd

import (
	"fmt"
	"strconv"

	"github.com/net2share/go-corelib/tui"
	"github.com/spf13/cobra"

	"github.com/net2share/wrtctl/client"
	"github.com/net2share/wrtctl/internal/config"
)

var saveParams bool

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show the effective connection parameters",
	Long:  "Show the connection parameters after config file, environment and flags. With --save the result is written to the config file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		c, err := client.New(applyFlags(cmd, cfg))
		if err != nil {
			return err
		}
		defer c.Close()
		cfg = c.Defaults()

		tui.PrintBox("wrtctl parameters", paramLines(cfg))

		if !saveParams {
			return nil
		}
		path := pathOrDefault()
		if err := toFileConfig(cfg).SaveToPath(path); err != nil {
			return err
		}
		tui.PrintSuccess("Saved to " + path)
		return nil
	},
}

func init() {
	paramsCmd.Flags().BoolVar(&saveParams, "save", false, "write the parameters to the config file")
	addConnectFlags(paramsCmd)
}

// applyFlags overlays the connect flags that were set on cfg.
func applyFlags(cmd *cobra.Command, cfg client.Config) client.Config {
	o := connectOptions(cmd)
	if o.Hostname != nil {
		cfg.Hostname = *o.Hostname
	}
	if o.Port != nil {
		cfg.Port = *o.Port
	}
	if o.UseSSL != nil {
		cfg.UseSSL = *o.UseSSL
	}
	if o.SSLPort != nil {
		cfg.SSLPort = *o.SSLPort
	}
	if o.DaemonSSLPort != nil {
		cfg.DaemonSSLPort = *o.DaemonSSLPort
	}
	if o.KeyPath != nil {
		cfg.KeyPath = *o.KeyPath
	}
	return cfg
}

func paramLines(cfg client.Config) []string {
	kv := func(k config.Key, v string) string {
		return tui.KV(fmt.Sprintf("%-22s", string(k)+": "), v)
	}
	lines := []string{
		kv(config.KeyHostname, cfg.Hostname),
		kv(config.KeyPort, strconv.Itoa(cfg.Port)),
		kv(config.KeySSLPort, strconv.Itoa(cfg.SSLPort)),
		kv(config.KeyDaemonSSLPort, strconv.Itoa(cfg.DaemonSSLPort)),
		kv(config.KeyKeyPath, cfg.KeyPath),
		kv(config.KeyUseSSL, strconv.FormatBool(cfg.UseSSL)),
		kv("TIMEOUT", cfg.Timeout.String()),
	}
	if cfg.Resolver != "" {
		lines = append(lines, kv("RESOLVER", cfg.Resolver))
	}
	if cfg.StunnelPath != "" {
		lines = append(lines, kv("STUNNEL", cfg.StunnelPath))
	}
	return lines
}

func toFileConfig(cfg client.Config) *config.Config {
	fc := &config.Config{
		Hostname:      &cfg.Hostname,
		Port:          &cfg.Port,
		SSLPort:       &cfg.SSLPort,
		DaemonSSLPort: &cfg.DaemonSSLPort,
		KeyPath:       &cfg.KeyPath,
		UseSSL:        &cfg.UseSSL,
		StunnelPath:   cfg.StunnelPath,
		Resolver:      cfg.Resolver,
		Timeout:       cfg.Timeout,
		Log:           config.LogConfig{Level: cfg.LogLevel},
	}
	fc.ApplyDefaults()
	return fc
}
