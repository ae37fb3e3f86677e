package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoClaudeJSON is returned when ~/.claude.json does not exist yet.
var ErrNoClaudeJSON = errors.New("~/.claude.json not found")

// MCPServer is an MCP server entry in ~/.claude.json.
type MCPServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// ZenHubMCPServer runs the ZenHub MCP endpoint through mcp-remote. The
// token is passed via the API_TOKEN env var, not on the command line.
func ZenHubMCPServer(mcpURL, token, workspaceID string) MCPServer {
	return MCPServer{
		Command: "npx",
		Args: []string{
			"-y",
			"mcp-remote",
			mcpURL,
			"--header",
			"Authorization:${API_TOKEN}",
			"--header",
			"X-zh-workspace:" + workspaceID,
		},
		Env: map[string]string{"API_TOKEN": token},
	}
}

// PermissionWildcard is the allow rule that auto-approves a board's MCP tools.
func PermissionWildcard(board Type) string {
	return fmt.Sprintf("mcp__%s__*", board)
}

func defaultProjectEntry() map[string]any {
	return map[string]any{
		"allowedTools":               []any{},
		"mcpContextUris":             []any{},
		"mcpServers":                 map[string]any{},
		"enabledMcpjsonServers":      []any{},
		"disabledMcpjsonServers":     []any{},
		"hasTrustDialogAccepted":     true,
		"projectOnboardingSeenCount": 1,
	}
}

// UpdateClaudeJSON sets projects[<projectDir>].mcpServers[<board>] in the
// file at path, keeping every other key. A missing file yields ErrNoClaudeJSON.
func UpdateClaudeJSON(path, projectDir string, board Type, server MCPServer) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoClaudeJSON
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	projects, ok := doc["projects"].(map[string]any)
	if !ok {
		projects = map[string]any{}
		doc["projects"] = projects
	}
	project, ok := projects[projectDir].(map[string]any)
	if !ok {
		project = defaultProjectEntry()
		projects[projectDir] = project
	}
	servers, ok := project["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
		project["mcpServers"] = servers
	}
	servers[string(board)] = server

	return writeJSON(path, doc)
}

// UpdateSettings adds the board's permission wildcard to
// permissions.allow in the settings file at path, creating it if needed.
// An unreadable file is replaced. It reports whether the rule was added.
func UpdateSettings(path string, board Type) (bool, error) {
	settings := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &settings); err != nil || settings == nil {
			settings = map[string]any{}
		}
	}

	perms, ok := settings["permissions"].(map[string]any)
	if !ok {
		perms = map[string]any{}
		settings["permissions"] = perms
	}
	allow, _ := perms["allow"].([]any)

	wildcard := PermissionWildcard(board)
	for _, v := range allow {
		if s, ok := v.(string); ok && s == wildcard {
			return false, nil
		}
	}
	perms["allow"] = append(allow, wildcard)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := writeJSON(path, settings); err != nil {
		return false, err
	}
	return true, nil
}

// GitignoreStatus is the outcome of UpdateGitignore.
type GitignoreStatus int

const (
	GitignoreAdded GitignoreStatus = iota
	GitignorePresent
	GitignoreMissing
)

// UpdateGitignore appends the board config path to the project's
// .gitignore under a comment, unless it is already listed. A project
// without a .gitignore is left alone.
func UpdateGitignore(projectDir string) (GitignoreStatus, error) {
	path := filepath.Join(projectDir, ".gitignore")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return GitignoreMissing, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read .gitignore: %w", err)
	}
	if strings.Contains(string(data), ConfigRelPath) {
		return GitignorePresent, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "\n# Agile board config (project-specific)\n%s\n", ConfigRelPath); err != nil {
		return 0, fmt.Errorf("failed to update .gitignore: %w", err)
	}
	return GitignoreAdded, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, append(data, '\n'), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
