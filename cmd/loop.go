package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/net2share/wrtctl/client"
	"github.com/net2share/wrtctl/internal/wire"
)

const (
	maxLine       = 1024
	retryInterval = 500 * time.Millisecond
)

// commander is the part of *client.Client the command loop needs.
type commander interface {
	Enqueue(id uint16, subsystem, value string) error
	WaitDefault(ctx context.Context) client.Result
	TakeResponse() (client.Response, error)
	Status(r client.Result) int
}

// connect runs Connect once, then Redial up to retries more times. A tunnel
// started by Connect needs a moment before it accepts.
func connect(ctx context.Context, c *client.Client, opts client.ConnectOptions, retries int) error {
	err := c.Connect(ctx, opts)
	for attempt := 1; err != nil && attempt <= retries; attempt++ {
		if errors.Is(err, client.ErrPortCollision) || errors.Is(err, wire.ErrNameService) {
			return err
		}
		var ne *wire.NetError
		if !errors.As(err, &ne) {
			// Setup failures, such as a tunnel that could not start.
			return err
		}
		slog.Debug("connect failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
		err = c.Redial(ctx)
	}
	return err
}

// runLines sends each command line from r and waits for its answer. Blank
// lines and lines starting with # are skipped. The loop stops at the first
// failure; a daemon error is returned with its code as exit status.
func runLines(ctx context.Context, c commander, r io.Reader, out io.Writer, echo bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, maxLine), maxLine)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := runLine(ctx, c, line, out, echo); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("line %d too long", lineNo+1)
		}
		return fmt.Errorf("did not finish processing all commands: %w", err)
	}
	return nil
}

func runLine(ctx context.Context, c commander, line string, out io.Writer, echo bool) error {
	cmd, err := wire.ParseLine(line)
	if err != nil {
		return err
	}
	if err := c.Enqueue(cmd.ID, cmd.Subsystem, cmd.Value); err != nil {
		return err
	}

	res := c.WaitDefault(ctx)
	switch {
	case res.TimedOut():
		return &exitError{code: c.Status(res), err: fmt.Errorf("timeout while sending command: %s", line)}
	case res.Failed():
		return &exitError{code: c.Status(res), err: fmt.Errorf("command %q failed: %s", line, res)}
	}

	resp, err := c.TakeResponse()
	if err != nil {
		return err
	}
	if resp.ID != 0 {
		msg := resp.Value
		if msg == "" {
			msg = "(no error message)"
		}
		return &exitError{code: int(resp.ID), err: fmt.Errorf("server error %d: %s", resp.ID, msg)}
	}
	if resp.Value != "" {
		if echo {
			fmt.Fprintf(out, "%-40s --> ", line)
		}
		fmt.Fprintln(out, resp.Value)
	}
	return nil
}
