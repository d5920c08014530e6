package process

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartStop(t *testing.T) {
	bin := writeScript(t, "exec sleep 30")

	p, err := Start("helper", bin, nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, p.Running())
	assert.Positive(t, p.Info().PID)
	assert.Equal(t, "helper", p.Info().Name)

	require.NoError(t, p.Stop())
	assert.False(t, p.Running())

	// Second stop is a no-op.
	require.NoError(t, p.Stop())
}

func TestStop_KillsAfterGrace(t *testing.T) {
	bin := writeScript(t, "trap '' TERM\nwhile true; do sleep 1; done")

	p, err := Start("stubborn", bin, nil, WithLogger(quietLogger()), WithStopGrace(200*time.Millisecond))
	require.NoError(t, err)

	// Give the shell time to install the trap.
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Stop())
	assert.False(t, p.Running())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExited_Unexpected(t *testing.T) {
	bin := writeScript(t, "exit 3")

	p, err := Start("short", bin, nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.Error(t, p.ExitErr())
	assert.NoError(t, p.Stop())
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start("missing", filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

// syncBuffer is a bytes.Buffer safe for the monitor goroutine to log into.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestOutputIsLogged(t *testing.T) {
	bin := writeScript(t, "echo 'accepting on 2451'\necho 'bad certificate' >&2\nprintf 'no newline'")

	buf := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := Start("stunnel", bin, nil, WithLogger(logger))
	require.NoError(t, err)
	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	out := buf.String()
	assert.Contains(t, out, `msg="accepting on 2451" name=stunnel stream=stdout`)
	assert.Contains(t, out, `msg="bad certificate" name=stunnel stream=stderr`)
	assert.Contains(t, out, `msg="no newline" name=stunnel stream=stdout`)
}

func TestLogWriter_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := newLogWriter(logger, "helper", "stderr")

	n, err := w.Write([]byte("first\r\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Contains(t, buf.String(), "msg=first ")
	assert.NotContains(t, buf.String(), "sec")

	_, err = w.Write([]byte("ond\n\n"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=second ")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))

	w.flush()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}
