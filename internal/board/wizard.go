package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"agileskills/internal/logging"
	"agileskills/internal/tactile"

	"go.uber.org/zap"
)

var (
	// ErrConfigExists is returned when a config exists, --force is not set
	// and there is no input to confirm overwriting it.
	ErrConfigExists = errors.New("config exists and no --force flag provided")
	// ErrCancelled is returned when the user declines to overwrite.
	ErrCancelled = errors.New("setup cancelled")
	// ErrInvalidChoice is returned for an out-of-range menu answer.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrOrganizationRequired is returned in non-interactive mode when the
	// organization id is neither given nor discoverable.
	ErrOrganizationRequired = errors.New("organization ID is required in non-interactive mode")
)

// DefaultZenHubMCPURL is the hosted ZenHub MCP endpoint.
const DefaultZenHubMCPURL = "https://api.zenhub.com/mcp"

// Options are the answers that can be given up front. Anything left empty
// is asked for interactively.
type Options struct {
	BoardType           string
	Force               bool
	APIToken            string
	WorkspaceID         string
	RepositoryID        string
	OrganizationID      string
	DefaultPipelineID   string
	DefaultPipelineName string
	DefaultLabels       string
	JiraURL             string
	ProjectKey          string
	TeamID              string
	LinearWorkspaceID   string
}

// ZenHubAPI is the ZenHub surface the wizard needs.
type ZenHubAPI interface {
	SearchWorkspaces(ctx context.Context, query string) ([]Workspace, error)
	WorkspacePipelines(ctx context.Context, workspaceID string) ([]Pipeline, string, error)
}

// Wizard walks through board setup for one project.
type Wizard struct {
	Prompter   *Prompter
	Exec       tactile.Executor
	ProjectDir string
	// Home is the user's home directory holding .claude.json and .claude/.
	Home string
	// NewZenHub builds a client once the token is known.
	NewZenHub func(token string) ZenHubAPI
	MCPURL    string
	Out       io.Writer
	Logger    *zap.Logger
}

// Result reports what the wizard wrote.
type Result struct {
	Config           *Config
	ConfigPath       string
	ClaudeJSONPath   string
	ClaudeJSONStatus string
	SettingsPath     string
	PermissionAdded  bool
	Gitignore        GitignoreStatus
}

func (w *Wizard) printf(format string, args ...any) {
	fmt.Fprintf(w.Out, format, args...)
}

func (w *Wizard) println(args ...any) {
	fmt.Fprintln(w.Out, args...)
}

// Run executes the wizard.
func (w *Wizard) Run(ctx context.Context, opts Options) (*Result, error) {
	log := logging.Named(w.Logger, logging.CategoryBoard)
	configPath := ConfigPath(w.ProjectDir)

	w.println("Agile Board Setup Wizard")
	w.println(strings.Repeat("=", 50))
	w.println()
	w.printf("Current project: %s\n", w.ProjectDir)
	w.printf("Config will be saved to: %s\n\n", configPath)

	if _, err := os.Stat(configPath); err == nil {
		if opts.Force {
			w.println("Overwriting existing config (--force)")
		} else {
			w.println("Config file already exists!")
			answer, err := w.Prompter.Ask("Overwrite existing config? (y/N): ")
			if errors.Is(err, ErrNoInput) {
				return nil, ErrConfigExists
			}
			if err != nil {
				return nil, err
			}
			if strings.ToLower(answer) != "y" {
				return nil, ErrCancelled
			}
		}
		w.println()
	}

	boardType, err := w.chooseType(opts)
	if err != nil {
		return nil, err
	}
	log.Debug("board type selected", zap.String("type", string(boardType)))

	var (
		cfg    *Config
		server *MCPServer
	)
	switch boardType {
	case TypeZenHub:
		cfg, server, err = w.setupZenHub(ctx, opts)
	case TypeJira:
		cfg, err = w.setupJira(opts)
	case TypeLinear:
		cfg, err = w.setupLinear(opts)
	}
	if err != nil {
		return nil, err
	}
	cfg.BoardType = boardType

	res := &Result{Config: cfg}
	res.ConfigPath, err = cfg.Save(w.ProjectDir)
	if err != nil {
		return nil, err
	}
	w.printf("Project config saved: %s\n", res.ConfigPath)

	if server != nil {
		res.ClaudeJSONPath = filepath.Join(w.Home, ".claude.json")
		switch err := UpdateClaudeJSON(res.ClaudeJSONPath, w.ProjectDir, boardType, *server); {
		case errors.Is(err, ErrNoClaudeJSON):
			res.ClaudeJSONStatus = "skipped"
			w.printf("Warning: %s not found - skipping MCP server setup\n", res.ClaudeJSONPath)
		case err != nil:
			res.ClaudeJSONStatus = "failed"
			log.Warn("failed to update claude.json", zap.Error(err))
			w.printf("Warning: %v\nYou may need to manually add the MCP server configuration.\n", err)
		default:
			res.ClaudeJSONStatus = "updated"
			w.printf("Updated MCP server config: %s\n", res.ClaudeJSONPath)
		}

		res.SettingsPath = filepath.Join(w.Home, ".claude", "settings.json")
		added, err := UpdateSettings(res.SettingsPath, boardType)
		switch {
		case err != nil:
			log.Warn("failed to update settings", zap.Error(err))
			w.printf("Warning: %v\n", err)
		case added:
			res.PermissionAdded = true
			w.printf("Added permission wildcard: %s\n", PermissionWildcard(boardType))
		default:
			w.printf("Permission wildcard already exists: %s\n", PermissionWildcard(boardType))
		}
	}

	res.Gitignore, err = UpdateGitignore(w.ProjectDir)
	if err != nil {
		return nil, err
	}
	switch res.Gitignore {
	case GitignoreAdded:
		w.printf("Added to .gitignore: %s\n", ConfigRelPath)
	case GitignorePresent:
		w.printf("Already in .gitignore: %s\n", ConfigRelPath)
	case GitignoreMissing:
		w.printf("No .gitignore found - add this to .gitignore: %s\n", ConfigRelPath)
	}

	w.println()
	w.println("Setup complete!")
	w.println()
	w.println("Next steps:")
	w.println("  - Restart Claude Code if it's currently running")
	w.println("  - Use the agile-board skill to create issues")
	w.printf("  - To reconfigure: skills board setup --force\n")
	return res, nil
}

func (w *Wizard) chooseType(opts Options) (Type, error) {
	if opts.BoardType != "" {
		t, err := ParseType(opts.BoardType)
		if err != nil {
			return "", err
		}
		w.printf("Board type: %s (from args)\n\n", t.Title())
		return t, nil
	}

	w.println("Which agile board do you use?")
	for i, t := range Types {
		label := t.Title()
		if t.Planned() {
			label += " (planned)"
		}
		w.printf("  %d. %s\n", i+1, label)
	}
	w.println()
	idx, err := w.Prompter.Choose(fmt.Sprintf("Enter choice (1-%d): ", len(Types)), len(Types))
	if err != nil {
		return "", err
	}
	w.printf("Selected: %s\n\n", Types[idx].Title())
	return Types[idx], nil
}

func maskToken(token string) string {
	if len(token) > 10 {
		token = token[:10]
	}
	return token + "..."
}

func (w *Wizard) setupZenHub(ctx context.Context, opts Options) (*Config, *MCPServer, error) {
	w.println("ZenHub Configuration")
	w.println(strings.Repeat("-", 50))
	w.println()

	token := opts.APIToken
	var err error
	if token != "" {
		w.printf("API Token: %s\n", maskToken(token))
	} else {
		w.println("You'll need a ZenHub API Token:")
		w.println("  Get it from: app.zenhub.com -> Settings -> API Tokens")
		w.println()
		if token, err = w.Prompter.Ask("ZenHub API Token (starts with 'zh_'): "); err != nil {
			return nil, nil, err
		}
	}
	w.println()

	repoID := opts.RepositoryID
	if repoID == "" && w.Exec != nil {
		repo, err := DetectGitHubRepo(ctx, w.Exec, w.ProjectDir)
		if err == nil {
			repoID = repo.ID
			w.printf("Auto-detected repository: %s (ID: %s)\n", repo.NameWithOwner, repo.ID)
		} else {
			logging.Named(w.Logger, logging.CategoryBoard).Debug("repository auto-detect failed", zap.Error(err))
		}
	}
	if repoID == "" {
		w.println("Could not auto-detect GitHub repository ID")
		if repoID, err = w.Prompter.Ask("GitHub Repository ID (GraphQL ID): "); err != nil {
			return nil, nil, err
		}
	}
	w.println()

	var zh ZenHubAPI
	if w.NewZenHub != nil {
		zh = w.NewZenHub(token)
	}

	workspaceID := opts.WorkspaceID
	if workspaceID != "" {
		w.printf("Workspace ID: %s (from args)\n", workspaceID)
	} else if workspaceID, err = w.selectWorkspace(ctx, zh); err != nil {
		return nil, nil, err
	}
	w.println()

	pipelineID := opts.DefaultPipelineID
	pipelineName := opts.DefaultPipelineName
	orgID := opts.OrganizationID

	if pipelineID == "" || orgID == "" {
		w.println("Fetching workspace pipelines and organization...")
		var pipelines []Pipeline
		var fetchedOrg string
		if zh != nil {
			pipelines, fetchedOrg, err = zh.WorkspacePipelines(ctx, workspaceID)
			if err != nil {
				w.printf("Warning: %v\n", err)
			}
		}
		if fetchedOrg != "" && orgID == "" {
			orgID = fetchedOrg
			w.printf("Organization ID: %s\n", orgID)
		}

		switch {
		case pipelineID != "":
		case len(pipelines) == 0:
			w.println("Could not fetch pipelines. Please enter manually.")
			if pipelineID, err = w.Prompter.Ask("Default pipeline ID: "); err != nil {
				return nil, nil, err
			}
			if pipelineName, err = w.Prompter.Ask("Default pipeline name (e.g., 'Product Backlog'): "); err != nil {
				return nil, nil, err
			}
		default:
			w.println()
			w.println("Available pipelines:")
			for i, p := range pipelines {
				w.printf("  %d. %s (ID: %s)\n", i+1, p.Name, p.ID)
			}
			w.println()
			idx, err := w.Prompter.Choose(fmt.Sprintf("Select default pipeline (1-%d): ", len(pipelines)), len(pipelines))
			if err != nil {
				return nil, nil, err
			}
			pipelineID, pipelineName = pipelines[idx].ID, pipelines[idx].Name
			w.printf("Selected: %s\n", pipelineName)
		}
	} else {
		w.printf("Pipeline: %s (from args)\n", pipelineName)
	}

	if orgID == "" {
		if opts.Force {
			return nil, nil, ErrOrganizationRequired
		}
		w.println("Could not fetch organization ID")
		if orgID, err = w.Prompter.Ask("Organization ID: "); err != nil {
			return nil, nil, err
		}
	}
	w.println()

	var labels string
	switch {
	case opts.DefaultLabels != "":
		labels = opts.DefaultLabels
		w.printf("Labels: %s (from args)\n", labels)
	case opts.Force:
		w.println("Labels: (none)")
	default:
		if labels, err = w.Prompter.Ask("Default labels (comma-separated, optional): "); err != nil && !errors.Is(err, ErrNoInput) {
			return nil, nil, err
		}
	}

	mcpURL := w.MCPURL
	if mcpURL == "" {
		mcpURL = DefaultZenHubMCPURL
	}
	server := ZenHubMCPServer(mcpURL, token, workspaceID)

	return &Config{
		WorkspaceID:         workspaceID,
		RepositoryID:        repoID,
		OrganizationID:      orgID,
		DefaultPipelineID:   pipelineID,
		DefaultPipelineName: pipelineName,
		DefaultLabels:       SplitLabels(labels),
	}, &server, nil
}

func (w *Wizard) selectWorkspace(ctx context.Context, zh ZenHubAPI) (string, error) {
	w.println("To find your workspace, search by name.")
	w.println("You can get the workspace name from app.zenhub.com")
	w.println()
	name, err := w.Prompter.Ask("Workspace name (or part of it): ")
	if err != nil {
		return "", err
	}

	manual := func(reason string) (string, error) {
		w.println(reason)
		w.println("You can find it at: app.zenhub.com/workspaces/{workspace-id}/...")
		return w.Prompter.Ask("Workspace ID: ")
	}

	if name == "" {
		return manual("Workspace name required. Please enter workspace ID manually.")
	}

	w.printf("Searching for workspaces matching '%s'...\n", name)
	var workspaces []Workspace
	if zh != nil {
		workspaces, err = zh.SearchWorkspaces(ctx, name)
		if err != nil {
			w.printf("Warning: %v\n", err)
		}
	}
	if len(workspaces) == 0 {
		return manual("No workspaces found. Please enter workspace ID manually.")
	}

	w.println()
	w.println("Found workspaces:")
	for i, ws := range workspaces {
		w.printf("  %d. %s (ID: %s)\n", i+1, ws.Name, ws.ID)
		if len(ws.Repositories) > 0 {
			names := make([]string, len(ws.Repositories))
			for j, r := range ws.Repositories {
				names[j] = r.Name
			}
			w.printf("     Repositories: %s\n", strings.Join(names, ", "))
		}
	}
	w.println()

	if len(workspaces) == 1 {
		w.printf("Selected: %s\n", workspaces[0].Name)
		return workspaces[0].ID, nil
	}
	idx, err := w.Prompter.Choose(fmt.Sprintf("Select workspace (1-%d): ", len(workspaces)), len(workspaces))
	if err != nil {
		return "", err
	}
	w.printf("Selected: %s\n", workspaces[idx].Name)
	return workspaces[idx].ID, nil
}

func (w *Wizard) planned(t Type) {
	w.printf("%s Configuration\n", t.Title())
	w.println(strings.Repeat("-", 50))
	w.println()
	w.printf("%s integration is planned but not yet implemented.\n", t.Title())
	w.println("This will create a placeholder configuration.")
	w.println()
}

func (w *Wizard) setupJira(opts Options) (*Config, error) {
	w.planned(TypeJira)
	var err error
	url := opts.JiraURL
	if url == "" {
		if url, err = w.Prompter.Ask("Jira URL (e.g., https://your-company.atlassian.net): "); err != nil {
			return nil, err
		}
	}
	key := opts.ProjectKey
	if key == "" {
		if key, err = w.Prompter.Ask("Project key (e.g., PROJ): "); err != nil {
			return nil, err
		}
	}
	return &Config{
		JiraURL:       strings.TrimRight(url, "/"),
		ProjectKey:    strings.ToUpper(key),
		DefaultLabels: []string{},
	}, nil
}

func (w *Wizard) setupLinear(opts Options) (*Config, error) {
	w.planned(TypeLinear)
	var err error
	team := opts.TeamID
	if team == "" {
		if team, err = w.Prompter.Ask("Team ID: "); err != nil {
			return nil, err
		}
	}
	ws := opts.LinearWorkspaceID
	if ws == "" {
		if ws, err = w.Prompter.Ask("Workspace ID: "); err != nil {
			return nil, err
		}
	}
	return &Config{TeamID: team, WorkspaceID: ws, DefaultLabels: []string{}}, nil
}
