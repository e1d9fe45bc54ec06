package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtask/pkg/util/xpool"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xtaskctl"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestDemo(t *testing.T) {
	code, out, _ := runCLI(t, "demo")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "add(10, 20) = 30")
	assert.Contains(t, out, "multiply(30, 2) = 60")
	assert.Contains(t, out, "multiply(30, 5) = 150")
	assert.Contains(t, out, "multiply(40, 5) = 200")
	assert.Contains(t, out, "pool xtask (4 workers) stopped")
}

func TestDemo_WorkersFlag(t *testing.T) {
	code, out, _ := runCLI(t, "-w", "2", "demo")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "add(10, 20) = 30")
	assert.Contains(t, out, "pool xtask (2 workers) stopped")
}

func TestDemo_Trace(t *testing.T) {
	code, out, _ := runCLI(t, "--trace", "demo")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"Name":"task.run"`)
	assert.Contains(t, out, "add(10, 20) = 30")
}

func TestBench(t *testing.T) {
	code, out, stderr := runCLI(t, "-w", "4", "bench", "--tasks", "10000", "--submitters", "10")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "counter=10000 submitted=10000 completed=10000 failed=0")
	assert.Contains(t, out, "workers=4")
}

func TestBench_UnevenSplit(t *testing.T) {
	code, out, _ := runCLI(t, "-w", "2", "bench", "--tasks", "7", "--submitters", "3")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "counter=7 submitted=7")
}

func TestBench_WithMetricsServer(t *testing.T) {
	code, out, stderr := runCLI(t, "-w", "2", "bench", "--tasks", "100", "--metrics-addr", "127.0.0.1:0")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "counter=100")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero_workers", []string{"-w", "0", "demo"}},
		{"too_many_workers", []string{"-w", "70000", "bench"}},
		{"zero_tasks", []string{"bench", "--tasks", "0"}},
		{"zero_submitters", []string{"bench", "--submitters", "0"}},
		{"bad_log_level", []string{"--log-level", "loud", "demo"}},
		{"bad_log_format", []string{"--log-format", "xml", "demo"}},
		{"unknown_flag", []string{"--nope", "demo"}},
		{"missing_config", []string{"-c", filepath.Join(t.TempDir(), "absent.yaml"), "demo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xtask.yaml")
	logPath := filepath.Join(dir, "xtask.log")
	cfg := "pool:\n  workers: 3\n  name: fromfile\nlog:\n  level: debug\n  format: json\n  file: " + logPath + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	code, out, _ := runCLI(t, "-c", path, "bench", "--tasks", "50")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "workers=3")

	code, out, _ = runCLI(t, "-c", path, "-w", "1", "demo")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "pool fromfile (1 workers) stopped")

	code, out, _ = runCLI(t, "-c", path, "demo")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "pool fromfile (4 workers) stopped", "demo ignores pool.workers unless -w is set")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pool":"fromfile"`)
	assert.Contains(t, string(data), `"app":"xtaskctl"`)
}

func TestRunBench_CounterMatches(t *testing.T) {
	pool, err := xpool.New(3)
	require.NoError(t, err)
	defer pool.Close()

	res, err := runBench(context.Background(), pool, 1000, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.counter)
	assert.Positive(t, res.elapsed)
	assert.Equal(t, uint64(1000), pool.Stats().Submitted)
}

func TestRunBench_ClosedPool(t *testing.T) {
	pool, err := xpool.New(1)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	_, err = runBench(context.Background(), pool, 10, 2)
	assert.ErrorIs(t, err, xpool.ErrPoolClosed)
}

func TestRunBench_Cancelled(t *testing.T) {
	pool, err := xpool.New(1)
	require.NoError(t, err)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runBench(ctx, pool, 10, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsCLIUsageError(t *testing.T) {
	assert.True(t, isCLIUsageError(errors.New("flag provided but not defined: -x")))
	assert.False(t, isCLIUsageError(errors.New("boom")))
}
