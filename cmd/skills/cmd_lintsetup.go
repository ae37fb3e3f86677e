package main

import (
	"fmt"
	"os"
	"runtime"

	"agileskills/internal/lintsetup"

	"github.com/spf13/cobra"
)

var (
	lintSetupSkipInstall bool
	lintSetupSkipHooks   bool
	lintSetupDryRun      bool
	lintSetupProject     string
)

// lintSetupCmd installs linters and pre-commit hooks
var lintSetupCmd = &cobra.Command{
	Use:   "lint-setup",
	Short: "Detect project languages and install linters plus pre-commit hooks",
	Long: `Detects Python, TypeScript/JS, Flutter, C# and Terraform sources, installs
the matching linters, writes .pre-commit-config.yaml and installs the git
hooks.

Use --dry-run to print the generated pre-commit config without touching
anything.`,
	Args: cobra.NoArgs,
	RunE: runLintSetup,
}

func init() {
	lintSetupCmd.Flags().BoolVar(&lintSetupSkipInstall, "skip-install", false, "Skip tool installation")
	lintSetupCmd.Flags().BoolVar(&lintSetupSkipHooks, "skip-hooks", false, "Skip pre-commit hook installation")
	lintSetupCmd.Flags().BoolVar(&lintSetupDryRun, "dry-run", false, "Print the generated config only")
	lintSetupCmd.Flags().StringVar(&lintSetupProject, "project", "", "Project directory (default: workspace)")
	rootCmd.AddCommand(lintSetupCmd)
}

func runLintSetup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	root := a.ws
	if lintSetupProject != "" {
		root = a.path(lintSetupProject)
	}
	out := cmd.OutOrStdout()

	if lintSetupDryRun {
		langs, err := lintsetup.DetectLanguages(root)
		if err != nil {
			return err
		}
		if len(langs) == 0 {
			return lintsetup.ErrNoLanguages
		}
		data, err := lintsetup.RenderConfig(langs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s (dry run)\n", lintsetup.ConfigFile)
		_, err = out.Write(data)
		return err
	}

	home, _ := homeDir()
	in := &lintsetup.Installer{
		Root:     root,
		Exec:     a.exec,
		LookPath: lookPath,
		Out:      out,
		GOOS:     runtime.GOOS,
		Home:     home,
		Getenv:   os.Getenv,
		Logger:   a.log,
	}
	_, err = in.Run(ctx, lintsetup.Options{
		SkipInstall: lintSetupSkipInstall,
		SkipHooks:   lintSetupSkipHooks,
	})
	return err
}
