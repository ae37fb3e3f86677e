package tactile

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeExecutor is a scripted Executor for tests. Responses are matched in
// registration order by binary and argument prefix; a response with Times
// set is consumed after that many matches. Unmatched commands behave as if
// the binary were missing.
type FakeExecutor struct {
	mu        sync.Mutex
	responses []*FakeResponse
	calls     []Command
}

// FakeResponse describes how the fake answers a matching command.
type FakeResponse struct {
	binary string
	prefix []string

	result ExecutionResult
	err    error
	hook   func(Command) error
	times  int
	used   int
}

// NewFakeExecutor returns an empty fake.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// On registers a response for binary whose arguments start with prefix.
// By default the command succeeds with empty output.
func (f *FakeExecutor) On(binary string, prefix ...string) *FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &FakeResponse{binary: binary, prefix: prefix}
	f.responses = append(f.responses, r)
	return r
}

// Returns sets stdout and the exit code.
func (r *FakeResponse) Returns(stdout string, exitCode int) *FakeResponse {
	r.result.Stdout = stdout
	r.result.ExitCode = exitCode
	return r
}

// Stderr sets stderr.
func (r *FakeResponse) Stderr(stderr string) *FakeResponse {
	r.result.Stderr = stderr
	return r
}

// Fails makes Execute return err.
func (r *FakeResponse) Fails(err error) *FakeResponse {
	r.err = err
	return r
}

// NotFound makes the binary appear missing.
func (r *FakeResponse) NotFound() *FakeResponse {
	r.err = fmt.Errorf("%w: %s", ErrBinaryNotFound, r.binary)
	return r
}

// Do runs fn before answering, e.g. to create files the real tool would write.
func (r *FakeResponse) Do(fn func(Command) error) *FakeResponse {
	r.hook = fn
	return r
}

// Times limits how many commands this response answers.
func (r *FakeResponse) Times(n int) *FakeResponse {
	r.times = n
	return r
}

func (r *FakeResponse) matches(cmd Command) bool {
	if r.times > 0 && r.used >= r.times {
		return false
	}
	if r.binary != cmd.Binary || len(cmd.Arguments) < len(r.prefix) {
		return false
	}
	for i, p := range r.prefix {
		if cmd.Arguments[i] != p {
			return false
		}
	}
	return true
}

// Execute implements Executor.
func (f *FakeExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return &ExecutionResult{ExitCode: -1, Killed: true, KillReason: "context canceled"}, nil
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	var match *FakeResponse
	for _, r := range f.responses {
		if r.matches(cmd) {
			r.used++
			match = r
			break
		}
	}
	f.mu.Unlock()

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}
	if match.hook != nil {
		if err := match.hook(cmd); err != nil {
			return nil, err
		}
	}
	if match.err != nil {
		return nil, match.err
	}
	res := match.result
	return &res, nil
}

// Calls returns the commands executed so far.
func (f *FakeExecutor) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether a command with the given binary and argument
// prefix was executed.
func (f *FakeExecutor) Called(binary string, prefix ...string) bool {
	probe := &FakeResponse{binary: binary, prefix: prefix}
	for _, c := range f.Calls() {
		if probe.matches(c) {
			return true
		}
	}
	return false
}

// CommandLines returns executed commands as strings, for assertions.
func (f *FakeExecutor) CommandLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = strings.TrimSpace(c.CommandString())
	}
	return lines
}

// FakeLookPath returns a LookPathFunc that finds only the given binaries.
func FakeLookPath(available ...string) LookPathFunc {
	set := make(map[string]bool, len(available))
	for _, b := range available {
		set[b] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, file)
	}
}
