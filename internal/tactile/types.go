// Package tactile runs the external tools the skills CLI wraps: git, gh,
// az, pandoc, pdftotext, pre-commit, pip and npm.
//
// Every caller goes through the Executor interface so tests can script
// tool behaviour with FakeExecutor instead of requiring the binaries.
package tactile

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrBinaryNotFound is returned when the requested executable is not on PATH.
var ErrBinaryNotFound = errors.New("binary not found")

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "git", "pandoc").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to add (KEY=VALUE), on top of the parent environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Timeout overrides the executor default. Zero means default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult is the output of a command that was started.
// A non-zero exit is reported through ExitCode, not as an error.
type ExecutionResult struct {
	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	Duration time.Duration `json:"duration"`

	// Killed indicates the command was terminated by timeout or cancellation.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output exceeded the capture limit.
	Truncated bool `json:"truncated"`
}

// Ok reports whether the command ran to completion with exit code 0.
func (r *ExecutionResult) Ok() bool {
	return r != nil && !r.Killed && r.ExitCode == 0
}

// Output returns stdout and stderr joined by a newline when both are present.
func (r *ExecutionResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// TrimmedStdout returns stdout without surrounding whitespace.
func (r *ExecutionResult) TrimmedStdout() string {
	return strings.TrimSpace(r.Stdout)
}

// Failure describes why r did not succeed, for error messages.
func (r *ExecutionResult) Failure() string {
	if r.Killed {
		return r.KillReason
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(r.Stdout)
	}
	if msg == "" {
		return "exit status " + strconv.Itoa(r.ExitCode)
	}
	return msg
}
