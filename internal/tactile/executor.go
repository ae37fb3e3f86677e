package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"agileskills/internal/logging"

	"go.uber.org/zap"
)

// Executor is the interface for command execution.
type Executor interface {
	// Execute runs a command. The error is non-nil only when the command
	// could not be started (ErrBinaryNotFound and friends); exit codes and
	// timeouts are reported on the result.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// LookPathFunc resolves a binary name to a path, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DefaultTimeout bounds commands that don't specify their own timeout.
const DefaultTimeout = 2 * time.Minute

// DefaultMaxOutputBytes caps captured stdout/stderr per stream.
const DefaultMaxOutputBytes = 16 << 20

// DirectExecutor executes commands on the host using os/exec.
type DirectExecutor struct {
	Timeout        time.Duration
	MaxOutputBytes int64
	logger         *zap.Logger
}

// NewDirectExecutor creates a direct executor with default limits.
func NewDirectExecutor(logger *zap.Logger) *DirectExecutor {
	return &DirectExecutor{
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		logger:         logging.Named(logger, logging.CategoryTactile),
	}
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}

	timeout := e.Timeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.logger.Debug("executing",
		zap.String("command", cmd.CommandString()),
		zap.String("dir", cmd.WorkingDirectory),
		zap.Duration("timeout", timeout))

	c := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	c.Dir = cmd.WorkingDirectory
	if len(cmd.Environment) > 0 {
		c.Env = append(os.Environ(), cmd.Environment...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderr := &limitedWriter{w: &stderrBuf, max: maxOutput}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	err := c.Run()

	result := &ExecutionResult{
		ExitCode:  -1,
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Duration:  time.Since(start),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if err == nil {
		result.ExitCode = 0
		e.logger.Debug("command succeeded",
			zap.String("binary", cmd.Binary),
			zap.Duration("elapsed", result.Duration))
		return result, nil
	}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		e.logger.Warn("command killed", zap.String("binary", cmd.Binary), zap.String("reason", result.KillReason))
		return result, nil
	case errors.Is(execCtx.Err(), context.Canceled):
		result.Killed = true
		result.KillReason = "context canceled"
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		e.logger.Debug("command exited non-zero",
			zap.String("binary", cmd.Binary),
			zap.Int("exit_code", result.ExitCode))
		return result, nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}
	return nil, fmt.Errorf("failed to run %s: %w", cmd.Binary, err)
}

// Run executes cmd and turns a non-zero exit into an error carrying the
// command's stderr. Use it when any failure should abort the caller.
func Run(ctx context.Context, e Executor, cmd Command) (*ExecutionResult, error) {
	res, err := e.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return res, fmt.Errorf("%s failed: %s", cmd.CommandString(), res.Failure())
	}
	return res, nil
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // report full length to avoid short write errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
