// Package board configures agile board integration for a project: the
// project-local board config, the MCP server entry in ~/.claude.json, the
// permission wildcard in ~/.claude/settings.json and the .gitignore entry.
package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigRelPath is where the board config lives inside a project.
const ConfigRelPath = ".claude/agile-board-config.json"

// Type is a supported board.
type Type string

const (
	TypeZenHub Type = "zenhub"
	TypeJira   Type = "jira"
	TypeLinear Type = "linear"
)

// Types lists boards in menu order.
var Types = []Type{TypeZenHub, TypeJira, TypeLinear}

// ParseType validates a board type name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == strings.ToLower(strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown board type %q (want zenhub, jira or linear)", s)
}

// Title returns the display name.
func (t Type) Title() string {
	switch t {
	case TypeZenHub:
		return "ZenHub"
	case TypeJira:
		return "Jira"
	case TypeLinear:
		return "Linear"
	}
	return string(t)
}

// Planned reports whether the board only gets a placeholder config.
func (t Type) Planned() bool {
	return t == TypeJira || t == TypeLinear
}

// Config is the project-local board configuration. Skills read it once
// per project; only the setup wizard writes it.
type Config struct {
	BoardType           Type     `json:"board_type"`
	WorkspaceID         string   `json:"workspace_id,omitempty"`
	RepositoryID        string   `json:"repository_id,omitempty"`
	OrganizationID      string   `json:"organization_id,omitempty"`
	DefaultPipelineID   string   `json:"default_pipeline_id,omitempty"`
	DefaultPipelineName string   `json:"default_pipeline_name,omitempty"`
	JiraURL             string   `json:"jira_url,omitempty"`
	ProjectKey          string   `json:"project_key,omitempty"`
	TeamID              string   `json:"team_id,omitempty"`
	DefaultLabels       []string `json:"default_labels"`
}

type zenHubJSON struct {
	BoardType           Type     `json:"board_type"`
	WorkspaceID         string   `json:"workspace_id"`
	RepositoryID        string   `json:"repository_id"`
	OrganizationID      string   `json:"organization_id"`
	DefaultPipelineID   string   `json:"default_pipeline_id"`
	DefaultPipelineName string   `json:"default_pipeline_name"`
	DefaultLabels       []string `json:"default_labels"`
}

type jiraJSON struct {
	BoardType     Type     `json:"board_type"`
	JiraURL       string   `json:"jira_url"`
	ProjectKey    string   `json:"project_key"`
	DefaultLabels []string `json:"default_labels"`
}

type linearJSON struct {
	BoardType     Type     `json:"board_type"`
	TeamID        string   `json:"team_id"`
	WorkspaceID   string   `json:"workspace_id"`
	DefaultLabels []string `json:"default_labels"`
}

// MarshalJSON writes every key of the board's shape, empty or not, and
// never writes default_labels as null.
func (c Config) MarshalJSON() ([]byte, error) {
	labels := c.DefaultLabels
	if labels == nil {
		labels = []string{}
	}
	switch c.BoardType {
	case TypeZenHub:
		return json.Marshal(zenHubJSON{
			BoardType:           c.BoardType,
			WorkspaceID:         c.WorkspaceID,
			RepositoryID:        c.RepositoryID,
			OrganizationID:      c.OrganizationID,
			DefaultPipelineID:   c.DefaultPipelineID,
			DefaultPipelineName: c.DefaultPipelineName,
			DefaultLabels:       labels,
		})
	case TypeJira:
		return json.Marshal(jiraJSON{BoardType: c.BoardType, JiraURL: c.JiraURL, ProjectKey: c.ProjectKey, DefaultLabels: labels})
	case TypeLinear:
		return json.Marshal(linearJSON{BoardType: c.BoardType, TeamID: c.TeamID, WorkspaceID: c.WorkspaceID, DefaultLabels: labels})
	}
	type plain Config
	p := plain(c)
	p.DefaultLabels = labels
	return json.Marshal(p)
}

// ConfigPath returns the board config path for a project.
func ConfigPath(projectDir string) string {
	return filepath.Join(projectDir, filepath.FromSlash(ConfigRelPath))
}

// LoadConfig reads the project's board config.
func LoadConfig(projectDir string) (*Config, error) {
	path := ConfigPath(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config with two-space indentation.
func (c *Config) Save(projectDir string) (string, error) {
	path := ConfigPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal board config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write board config: %w", err)
	}
	return path, nil
}

// SplitLabels splits a comma-separated label list, dropping blanks.
func SplitLabels(s string) []string {
	labels := []string{}
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
