package main

import (
	"errors"
	"fmt"
	"os"

	"agileskills/cmd/skills/ui"
	"agileskills/internal/skill"

	"github.com/spf13/cobra"
)

// doctorCmd checks the environment
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check required and optional tools and the skills directory",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorTool is an external binary some command relies on.
type doctorTool struct {
	Binary   string
	Purpose  string
	Required bool
}

var doctorTools = []doctorTool{
	{"git", "build: versions, tracked files, archives", true},
	{"gh", "board setup: repository auto-detect", false},
	{"az", "sharepoint: Graph tokens", false},
	{"pandoc", "convert: docx, odt, rtf, html, pptx", false},
	{"pdftotext", "convert: PDFs without pandoc", false},
	{"pre-commit", "lint-setup: git hooks", false},
	{"npx", "board: ZenHub MCP server", false},
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	styles := ui.DefaultStyles()
	failed := 0

	fmt.Fprintln(out, styles.Title.Render("Tools"))
	for _, t := range doctorTools {
		path, err := lookPath(t.Binary)
		switch {
		case err == nil:
			fmt.Fprintln(out, styles.Check(ui.StatusOK, t.Binary, path))
		case t.Required:
			failed++
			fmt.Fprintln(out, styles.Check(ui.StatusFail, t.Binary, "required for "+t.Purpose))
		default:
			fmt.Fprintln(out, styles.Check(ui.StatusWarn, t.Binary, "optional, "+t.Purpose))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Title.Render("Skills"))
	dir := a.skillsDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		failed++
		fmt.Fprintln(out, styles.Check(ui.StatusFail, a.rel(dir), "skills directory not found"))
	} else {
		set, err := skill.Discover(dir)
		if err != nil {
			return err
		}
		sum := skill.Summarize(skill.Lint(set, skill.Options{
			AllowedModels:  a.cfg.Lint.AllowedModels,
			MaxDescription: a.cfg.Lint.MaxDescription,
		}))
		status := ui.StatusOK
		switch {
		case sum.Errors > 0:
			status = ui.StatusFail
			failed++
		case sum.Warnings > 0:
			status = ui.StatusWarn
		}
		detail := fmt.Sprintf("%d skills, %s", len(set.Skills)+len(set.Failures), sum)
		fmt.Fprintln(out, styles.Check(status, a.rel(dir), detail))
	}

	if failed > 0 {
		return errors.New("doctor found problems")
	}
	return nil
}
