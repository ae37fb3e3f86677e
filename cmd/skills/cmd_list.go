package main

import (
	"fmt"
	"os"

	"agileskills/cmd/skills/ui"
	"agileskills/internal/skill"

	"github.com/spf13/cobra"
)

var showRaw bool

// listCmd lists skills
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills with their model and description",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// showCmd renders one skill
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Render a skill's SKILL.md",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the Markdown body without rendering")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	set, err := skill.Discover(a.skillsDir())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(set.Skills) == 0 && len(set.Failures) == 0 {
		fmt.Fprintf(out, "No skills found in %s\n", a.rel(a.skillsDir()))
		return nil
	}
	table := ui.NewSimpleTable(fmt.Sprintf("Skills (%d)", len(set.Skills)), "NAME", "MODEL", "DESCRIPTION")
	for _, s := range set.Skills {
		model := s.Model
		if model == "" {
			model = "-"
		}
		table.AddRow(s.Name, model, ui.Truncate(s.Description, 60))
	}
	fmt.Fprint(out, table.View(ui.DefaultStyles()))
	for _, f := range set.Failures {
		fmt.Fprintf(out, "Warning: %s: %v\n", a.rel(f.Path), f.Err)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	set, err := skill.Discover(a.skillsDir())
	if err != nil {
		return err
	}
	s, ok := set.Get(args[0])
	if !ok {
		return fmt.Errorf("skill %q not found in %s", args[0], a.rel(a.skillsDir()))
	}

	out := cmd.OutOrStdout()
	if showRaw {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	styles := ui.DefaultStyles()
	fmt.Fprintln(out, styles.Title.Render(s.Name))
	if s.Model != "" {
		fmt.Fprintln(out, styles.Muted.Render("model: "+s.Model))
	}
	fmt.Fprintln(out, styles.Body.Render(s.Description))
	fmt.Fprint(out, ui.RenderMarkdown(s.Body, 100, styles.Theme))
	return nil
}
