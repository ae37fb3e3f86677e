package main

import (
	"encoding/json"
	"fmt"
	"io"

	"agileskills/internal/logging"
	"agileskills/internal/skill"
	"agileskills/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	lintFormat string
	lintWatch  bool
)

// lintCmd validates skill documents
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate SKILL.md front-matter and relative links",
	Long: `Checks every skill under the skills directory:
  - SKILL.md starts with YAML front-matter declaring name and description
  - names are lowercase-hyphenated, unique, and match their directory
  - relative links and images in every Markdown file resolve

Exits non-zero when any error-severity finding exists.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVar(&lintFormat, "format", "text", "Output format: text or json")
	lintCmd.Flags().BoolVar(&lintWatch, "watch", false, "Re-run on every change until interrupted")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	if lintFormat != "text" && lintFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", lintFormat)
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if lintWatch {
		return watchLint(out, a)
	}
	_, err = lintOnce(out, a)
	return err
}

// lintOnce lints the skills dir and prints the findings.
func lintOnce(out io.Writer, a *app) (skill.Summary, error) {
	log := logging.Named(a.log, logging.CategoryLint)
	timer := logging.StartTimer(log, "lint")
	defer timer.Stop()

	set, err := skill.Discover(a.skillsDir())
	if err != nil {
		return skill.Summary{}, err
	}
	findings := skill.Lint(set, skill.Options{
		AllowedModels:  a.cfg.Lint.AllowedModels,
		MaxDescription: a.cfg.Lint.MaxDescription,
		Root:           a.ws,
	})
	sum := skill.Summarize(findings)
	log.Debug("lint finished",
		zap.Int("skills", len(set.Skills)+len(set.Failures)),
		zap.Int("errors", sum.Errors),
		zap.Int("warnings", sum.Warnings))

	if lintFormat == "json" {
		if findings == nil {
			findings = []skill.Finding{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(findings); err != nil {
			return sum, err
		}
	} else {
		for _, f := range findings {
			fmt.Fprintln(out, f.String())
		}
		fmt.Fprintf(out, "%d skills checked: %s\n", len(set.Skills)+len(set.Failures), sum)
	}

	if sum.Errors > 0 {
		return sum, fmt.Errorf("lint failed: %s", sum)
	}
	return sum, nil
}

func watchLint(out io.Writer, a *app) error {
	ctx, stop := signalContext()
	defer stop()

	w, err := watch.New(a.skillsDir(), watch.DefaultDebounce, a.log)
	if err != nil {
		return err
	}
	_, _ = lintOnce(out, a)
	fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)...\n", a.rel(a.skillsDir()))

	return w.Run(ctx, func(paths []string) {
		fmt.Fprintf(out, "\n%d file(s) changed, re-linting...\n", len(paths))
		_, _ = lintOnce(out, a)
	})
}
