// Package gitrepo answers the packaging questions the build needs from git:
// the version to stamp, the tracked files, and uncommitted changes.
package gitrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agileskills/internal/tactile"
)

// Repo is a git working tree driven through an Executor.
type Repo struct {
	Dir  string
	Exec tactile.Executor
	// Now is the clock used for date versions; nil means time.Now.
	Now func() time.Time
}

// New returns a Repo rooted at dir.
func New(dir string, exec tactile.Executor) *Repo {
	return &Repo{Dir: dir, Exec: exec}
}

func (r *Repo) git(args ...string) tactile.Command {
	return tactile.Command{Binary: "git", Arguments: args, WorkingDirectory: r.Dir}
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Version derives a version from git tags, falling back to the date as
// YYYYMMDD when git is missing, fails, or prints nothing.
func (r *Repo) Version(ctx context.Context) string {
	res, err := r.Exec.Execute(ctx, r.git("describe", "--tags", "--always", "--dirty"))
	if err == nil && res.Ok() {
		if v := res.TrimmedStdout(); v != "" {
			return v
		}
	}
	return r.now().Format("20060102")
}

// LsFiles returns tracked files, optionally filtered to path, sorted.
// Paths are read NUL-separated so git never quotes them.
func (r *Repo) LsFiles(ctx context.Context, path string) ([]string, error) {
	args := []string{"ls-files", "-z"}
	if path != "" {
		args = append(args, path)
	}
	res, err := tactile.Run(ctx, r.Exec, r.git(args...))
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}
	var files []string
	for _, f := range strings.Split(res.Stdout, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Status returns the porcelain status lines of modified and untracked files.
func (r *Repo) Status(ctx context.Context) ([]string, error) {
	res, err := r.Exec.Execute(ctx, r.git("status", "--porcelain"))
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}
	return nonEmptyLines(res.Stdout), nil
}

// Archive writes a zip of HEAD to out.
func (r *Repo) Archive(ctx context.Context, out string) error {
	if _, err := tactile.Run(ctx, r.Exec, r.git("archive", "--format=zip", "--output="+out, "HEAD")); err != nil {
		return fmt.Errorf("git archive failed: %w", err)
	}
	return nil
}

// Available reports whether git can be executed at all.
func (r *Repo) Available(ctx context.Context) bool {
	_, err := r.Exec.Execute(ctx, r.git("--version"))
	return err == nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
