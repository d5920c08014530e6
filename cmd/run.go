package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/net2share/wrtctl/client"
)

var commandFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the commands in a file, one per line",
	Long: `Send the commands in a file (or stdin with -f -), one per line:

  uci get network.lan.ipaddr
  uci set network.lan.ipaddr=192.168.2.1
  uci commit network
  sys initd network restart

Each command waits for its answer before the next is sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if commandFile == "" {
			return fmt.Errorf("no command file specified (-f)")
		}

		var in io.Reader
		if commandFile == "-" {
			in = cmd.InOrStdin()
		} else {
			f, err := os.Open(commandFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			return runLines(ctx, c, in, cmd.OutOrStdout(), verbose)
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <subsystem> <command> [value...]",
	Short: "Send a single command",
	Example: `  wrtctl exec -t 192.168.1.1 uci get system.@system[0].hostname
  wrtctl exec sys fwver`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := strings.Join(args, " ")
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			return runLine(ctx, c, line, cmd.OutOrStdout(), verbose)
		})
	},
}

func init() {
	runCmd.Flags().StringVarP(&commandFile, "file", "f", "", "file of commands, - for stdin")
	addConnectFlags(runCmd)
	addConnectFlags(execCmd)
}

// withClient connects, runs fn and always tears the client down, stopping
// any tunnel it started.
func withClient(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := connect(ctx, c, connectOptions(cmd), retries); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return fn(ctx, c)
}
