package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"agileskills/internal/config"
	"agileskills/internal/logging"
	"agileskills/internal/tactile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// newExecutor builds the executor for external tools; tests swap in a fake.
var newExecutor = func() tactile.Executor { return tactile.NewDirectExecutor(logger) }

var lookPath tactile.LookPathFunc = exec.LookPath

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "skills",
	Short: "Validate, package and support the agile-workflow skills",
	Long: `skills maintains a corpus of agent skills: each skill is a directory
holding a SKILL.md with YAML front-matter.

It lints skill documents, packages them into distributable archives,
publishes and serves those archives, and provides the helper tools the
skills rely on (board setup, linting setup, SharePoint access, document
conversion).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		var err error
		if cmd.Annotations[annotationNoConfig] == "" {
			if cfg, err = loadConfig(); err != nil {
				return err
			}
		}
		logger, err = logging.New(logging.Options{
			Verbose: verbose,
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Named(logger, logging.CategoryBoot).Debug("starting",
			zap.String("command", cmd.CommandPath()),
			zap.String("workspace", workspace))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/"+config.FileName+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workspaceDir returns the absolute workspace root.
func workspaceDir() (string, error) {
	ws := workspace
	if ws == "" {
		var err error
		if ws, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Abs(ws)
}

// annotationNoConfig marks commands that run before a config file exists.
const annotationNoConfig = "skills/no-config"

// configFile returns the config path and whether the user named it.
func configFile() (string, bool, error) {
	if configPath != "" {
		return configPath, true, nil
	}
	ws, err := workspaceDir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(ws, config.FileName), false, nil
}

func loadConfig() (*config.Config, error) {
	path, explicit, err := configFile()
	if err != nil {
		return nil, err
	}
	if explicit {
		return config.LoadExplicit(path)
	}
	return config.Load(path)
}

// app bundles what every command needs.
type app struct {
	ws   string
	cfg  *config.Config
	exec tactile.Executor
	log  *zap.Logger
}

func newApp() (*app, error) {
	ws, err := workspaceDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &app{ws: ws, cfg: cfg, exec: newExecutor(), log: logging.OrNop(logger)}, nil
}

// path resolves a config or flag path against the workspace.
func (a *app) path(p string) string {
	return config.ResolvePath(a.ws, p)
}

func (a *app) skillsDir() string {
	return a.path(a.cfg.SkillsDir)
}

// rel shows p relative to the workspace when it lies inside it.
func (a *app) rel(p string) string {
	r, err := filepath.Rel(a.ws, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return p
	}
	return r
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// commandContext is a signal context bounded by --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signalContext()
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
