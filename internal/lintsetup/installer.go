package lintsetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"agileskills/internal/logging"
	"agileskills/internal/tactile"

	"go.uber.org/zap"
)

// ErrNoLanguages is returned when nothing lintable was detected.
var ErrNoLanguages = errors.New("no supported languages detected (supported: Python, TypeScript/JS, Flutter, C#, Terraform)")

// Installer performs the setup steps for one project.
type Installer struct {
	Root     string
	Exec     tactile.Executor
	LookPath tactile.LookPathFunc
	Out      io.Writer
	// Python is the interpreter used for pip; defaults per GOOS.
	Python string
	GOOS   string
	Home   string
	// Getenv reads PATH and APPDATA; nil means os.Getenv.
	Getenv func(string) string
	Logger *zap.Logger
}

// Options select which steps Run performs.
type Options struct {
	SkipInstall bool
	SkipHooks   bool
}

func (in *Installer) goos() string {
	if in.GOOS != "" {
		return in.GOOS
	}
	return runtime.GOOS
}

func (in *Installer) python() string {
	if in.Python != "" {
		return in.Python
	}
	if in.goos() == "windows" {
		return "python"
	}
	return "python3"
}

func (in *Installer) getenv(k string) string {
	if in.Getenv != nil {
		return in.Getenv(k)
	}
	return os.Getenv(k)
}

func (in *Installer) installed(tool string) bool {
	_, err := in.LookPath(tool)
	return err == nil
}

func (in *Installer) logger() *zap.Logger {
	return logging.Named(in.Logger, logging.CategoryLintSetup)
}

func (in *Installer) printf(format string, args ...any) {
	fmt.Fprintf(in.Out, format, args...)
}

func (in *Installer) pip(packages ...string) tactile.Command {
	args := append([]string{"-m", "pip", "install", "--user"}, packages...)
	return tactile.Command{Binary: in.python(), Arguments: args, WorkingDirectory: in.Root}
}

// InstallTools installs the linters each detected language needs. A pip
// failure is fatal; missing npm or SDKs only produce advice.
func (in *Installer) InstallTools(ctx context.Context, langs []Language) error {
	in.printf("\nInstalling linting tools...\n")

	if has(langs, Python) {
		var missing []string
		for _, tool := range []string{"black", "ruff", "mypy"} {
			if !in.installed(tool) {
				missing = append(missing, tool)
			}
		}
		if len(missing) == 0 {
			in.printf("  All Python tools already installed\n")
		} else {
			in.printf("  Installing Python tools: %s\n", strings.Join(missing, ", "))
			if _, err := tactile.Run(ctx, in.Exec, in.pip(missing...)); err != nil {
				return fmt.Errorf("failed to install Python tools: %w", err)
			}
			in.printf("  Python tools installed\n")
		}
	}

	if has(langs, TypeScript) {
		in.installNodeTools(ctx)
	}

	if has(langs, Flutter) {
		if in.installed("dart") {
			in.printf("  Dart tooling available (Flutter SDK)\n")
		} else {
			in.printf("  Warning: dart not found, please install the Flutter SDK\n")
		}
	}

	if has(langs, Terraform) {
		if in.installed("terraform") {
			in.printf("  Terraform CLI available\n")
		} else {
			in.printf("  Warning: terraform not found, please install from https://terraform.io/\n")
		}
	}
	return nil
}

func (in *Installer) installNodeTools(ctx context.Context) {
	if !in.installed("npm") {
		in.printf("  Warning: npm not found, skipping TypeScript tool installation\n")
		in.printf("     Please install Node.js: https://nodejs.org/\n")
		return
	}

	var missing []string
	for _, tool := range []string{"eslint", "prettier"} {
		local := filepath.Join(in.Root, "node_modules", ".bin", tool)
		if _, err := os.Stat(local); err != nil && !in.installed(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		in.printf("  All Node.js tools already available\n")
		return
	}

	in.printf("  Installing Node.js tools: %s\n", strings.Join(missing, ", "))
	_, err := tactile.Run(ctx, in.Exec, tactile.Command{
		Binary:           "npm",
		Arguments:        append([]string{"install", "--save-dev"}, missing...),
		WorkingDirectory: in.Root,
	})
	if err != nil {
		in.logger().Warn("npm install failed", zap.Error(err))
		in.printf("  Failed to install Node.js tools: %v\n", err)
		return
	}
	in.printf("  Node.js tools installed\n")
}

// CheckPath advises adding the user-level script directory pip installs to
// when it exists but is not on PATH. It reports whether advice was given.
func (in *Installer) CheckPath() bool {
	in.printf("\nChecking PATH configuration...\n")
	path := in.getenv("PATH")

	if in.goos() == "windows" {
		scripts := filepath.Join(in.getenv("APPDATA"), "Python", "Scripts")
		if dirExists(scripts) && !strings.Contains(path, scripts) {
			in.printf("  Warning: %s not in PATH\n", scripts)
			in.printf("     Add it via System Properties > Environment Variables\n")
			in.printf("     Or run in PowerShell:\n")
			in.printf("     [Environment]::SetEnvironmentVariable(\"Path\", \"$env:Path;%s\", \"User\")\n", scripts)
			return true
		}
		in.printf("  PATH configured correctly\n")
		return false
	}

	localBin := filepath.Join(in.Home, ".local", "bin")
	if dirExists(localBin) && !strings.Contains(path, localBin) {
		rc := filepath.Join(in.Home, ".bashrc")
		if _, err := os.Stat(filepath.Join(in.Home, ".zshrc")); err == nil {
			rc = filepath.Join(in.Home, ".zshrc")
		}
		in.printf("  Warning: %s not in PATH\n", localBin)
		in.printf("     Add this to %s:\n", rc)
		in.printf("     export PATH=\"$HOME/.local/bin:$PATH\"\n")
		in.printf("     Then run: source %s\n", rc)
		return true
	}
	in.printf("  PATH configured correctly\n")
	return false
}

// GenerateConfig writes .pre-commit-config.yaml and, for Python projects
// without one, a pyproject.toml with ruff and mypy settings.
func (in *Installer) GenerateConfig(langs []Language) (string, error) {
	in.printf("\nGenerating %s...\n", ConfigFile)

	data, err := RenderConfig(langs)
	if err != nil {
		return "", err
	}
	path := filepath.Join(in.Root, ConfigFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ConfigFile, err)
	}

	if has(langs, Python) {
		pyproject := filepath.Join(in.Root, "pyproject.toml")
		if _, err := os.Stat(pyproject); errors.Is(err, os.ErrNotExist) {
			in.printf("  Creating pyproject.toml with ruff configuration\n")
			if err := os.WriteFile(pyproject, []byte(PyProjectTemplate), 0644); err != nil {
				return "", fmt.Errorf("failed to write pyproject.toml: %w", err)
			}
		}
	}
	in.printf("  Created %s\n", path)
	return path, nil
}

// InstallHooks runs pre-commit install, installing pre-commit with pip
// first when it is missing.
func (in *Installer) InstallHooks(ctx context.Context) error {
	in.printf("\nInstalling pre-commit hooks...\n")

	if _, err := os.Stat(filepath.Join(in.Root, ".git")); err != nil {
		in.printf("  Warning: not a git repository, skipping hook installation\n")
		in.printf("     Run 'git init' first, then re-run this command\n")
		return nil
	}

	install := tactile.Command{Binary: "pre-commit", Arguments: []string{"install"}, WorkingDirectory: in.Root}
	_, err := tactile.Run(ctx, in.Exec, install)
	if errors.Is(err, tactile.ErrBinaryNotFound) {
		in.printf("  pre-commit not found, installing...\n")
		if _, err := tactile.Run(ctx, in.Exec, in.pip("pre-commit")); err != nil {
			return fmt.Errorf("failed to install pre-commit: %w", err)
		}
		_, err = tactile.Run(ctx, in.Exec, install)
	}
	if err != nil {
		return fmt.Errorf("failed to install hooks: %w", err)
	}
	in.printf("  Pre-commit hooks installed\n")
	return nil
}

// TestHooks runs every hook once over the whole tree. Failures are expected
// on a first run because formatters rewrite files, so they are reported,
// not returned. It reports whether all hooks passed.
func (in *Installer) TestHooks(ctx context.Context) bool {
	in.printf("\nTesting pre-commit hooks...\n")
	res, err := in.Exec.Execute(ctx, tactile.Command{
		Binary:           "pre-commit",
		Arguments:        []string{"run", "--all-files"},
		WorkingDirectory: in.Root,
	})
	if err != nil {
		in.printf("  Warning: pre-commit not in PATH, skipping test\n")
		return false
	}
	if res.Ok() {
		in.printf("  All hooks passed\n")
		return true
	}
	in.printf("  Some hooks made changes or failed:\n%s\n", res.Output())
	in.printf("\n  This is normal for first run - hooks may auto-fix formatting\n")
	in.printf("  Run 'git diff' to see changes, then commit them\n")
	return false
}

// Run performs detection and every enabled step.
func (in *Installer) Run(ctx context.Context, opts Options) ([]Language, error) {
	in.printf("%s\nGit Workflow - Linting Setup\n%s\n\n", strings.Repeat("=", 60), strings.Repeat("=", 60))

	in.printf("Detecting project languages...\n")
	langs, err := DetectLanguages(in.Root)
	if err != nil {
		return nil, err
	}
	for _, l := range langs {
		in.printf("  %s detected\n", l.Label())
	}
	if len(langs) == 0 {
		return nil, ErrNoLanguages
	}
	in.logger().Debug("languages detected", zap.Any("languages", langs))

	if !opts.SkipInstall {
		if err := in.InstallTools(ctx, langs); err != nil {
			return langs, err
		}
		in.CheckPath()
	}
	if _, err := in.GenerateConfig(langs); err != nil {
		return langs, err
	}
	if !opts.SkipHooks {
		if err := in.InstallHooks(ctx); err != nil {
			return langs, err
		}
		in.TestHooks(ctx)
	}

	in.printf("\n%s\nSetup complete!\n%s\n", strings.Repeat("=", 60), strings.Repeat("=", 60))
	in.printf("\nNext steps:\n")
	in.printf("  1. Review changes: git diff\n")
	in.printf("  2. Commit config files: git add %s pyproject.toml\n", ConfigFile)
	in.printf("  3. Hooks will now run automatically on 'git commit'\n")
	in.printf("  4. Bypass hooks if needed: git commit --no-verify\n")
	return langs, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
