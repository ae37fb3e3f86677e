package main

import (
	"fmt"
	"os"

	"agileskills/internal/board"

	"github.com/spf13/cobra"
)

var (
	boardOpts board.Options
	boardDir  string
)

// homeDir locates ~/.claude.json and ~/.claude/settings.json.
var homeDir = os.UserHomeDir

// boardCmd groups agile board commands
var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Configure the agile board used by the board skills",
}

var boardSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive wizard writing .claude/agile-board-config.json",
	Long: `Writes the project's board configuration and, for ZenHub, registers the
ZenHub MCP server in ~/.claude.json and its permission wildcard in
~/.claude/settings.json.

Every prompt can be answered with a flag; with --force and all flags given
the wizard runs non-interactively.

Examples:
  skills board setup
  skills board setup --board-type zenhub --api-token zh_xxx \
    --workspace-id 5e1a... --organization-id Z2lk... --force`,
	Args: cobra.NoArgs,
	RunE: runBoardSetup,
}

var boardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the project's board configuration",
	Args:  cobra.NoArgs,
	RunE:  runBoardShow,
}

func init() {
	f := boardSetupCmd.Flags()
	f.StringVar(&boardOpts.BoardType, "board-type", "", "Board type: zenhub, jira or linear")
	f.BoolVar(&boardOpts.Force, "force", false, "Overwrite existing config without asking")
	f.StringVar(&boardOpts.APIToken, "api-token", "", "ZenHub API token (default: $ZENHUB_API_TOKEN)")
	f.StringVar(&boardOpts.WorkspaceID, "workspace-id", "", "ZenHub workspace ID")
	f.StringVar(&boardOpts.RepositoryID, "repository-id", "", "GitHub repository GraphQL ID")
	f.StringVar(&boardOpts.OrganizationID, "organization-id", "", "ZenHub organization ID")
	f.StringVar(&boardOpts.DefaultPipelineID, "default-pipeline-id", "", "Default pipeline ID")
	f.StringVar(&boardOpts.DefaultPipelineName, "default-pipeline-name", "", "Default pipeline name")
	f.StringVar(&boardOpts.DefaultLabels, "default-labels", "", "Comma-separated default labels")
	f.StringVar(&boardOpts.JiraURL, "jira-url", "", "Jira site URL")
	f.StringVar(&boardOpts.ProjectKey, "project-key", "", "Jira project key")
	f.StringVar(&boardOpts.TeamID, "team-id", "", "Linear team ID")
	f.StringVar(&boardOpts.LinearWorkspaceID, "linear-workspace-id", "", "Linear workspace ID")

	for _, c := range []*cobra.Command{boardSetupCmd, boardShowCmd} {
		c.Flags().StringVar(&boardDir, "project", "", "Project directory (default: workspace)")
	}

	boardCmd.AddCommand(boardSetupCmd)
	boardCmd.AddCommand(boardShowCmd)
	rootCmd.AddCommand(boardCmd)
}

func (a *app) projectDir() string {
	if boardDir != "" {
		return a.path(boardDir)
	}
	return a.ws
}

func runBoardSetup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	home, err := homeDir()
	if err != nil {
		return fmt.Errorf("could not find home directory: %w", err)
	}
	opts := boardOpts
	if opts.APIToken == "" {
		opts.APIToken = a.cfg.Board.APIToken
	}

	out := cmd.OutOrStdout()
	w := &board.Wizard{
		Prompter:   board.NewPrompter(cmd.InOrStdin(), out),
		Exec:       a.exec,
		ProjectDir: a.projectDir(),
		Home:       home,
		NewZenHub: func(token string) board.ZenHubAPI {
			return board.NewZenHubClient(a.cfg.Board.ZenHubEndpoint, token)
		},
		MCPURL: a.cfg.Board.ZenHubMCPURL,
		Out:    out,
		Logger: a.log,
	}
	_, err = w.Run(ctx, opts)
	return err
}

func runBoardShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	cfg, err := board.LoadConfig(a.projectDir())
	if err != nil {
		return fmt.Errorf("%w (run 'skills board setup')", err)
	}

	out := cmd.OutOrStdout()
	show := func(label, v string) {
		if v != "" {
			fmt.Fprintf(out, "%-10s %s\n", label+":", v)
		}
	}
	show("Board", cfg.BoardType.Title())
	show("Workspace", cfg.WorkspaceID)
	show("Repo", cfg.RepositoryID)
	show("Org", cfg.OrganizationID)
	if cfg.DefaultPipelineID != "" {
		show("Pipeline", fmt.Sprintf("%s (%s)", cfg.DefaultPipelineName, cfg.DefaultPipelineID))
	}
	show("Jira", cfg.JiraURL)
	show("Project", cfg.ProjectKey)
	show("Team", cfg.TeamID)
	if len(cfg.DefaultLabels) > 0 {
		show("Labels", fmt.Sprint(cfg.DefaultLabels))
	}
	return nil
}
