package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultZenHubEndpoint is the public GraphQL API.
const DefaultZenHubEndpoint = "https://api.zenhub.com/public/graphql"

// ZenHubClient talks to the ZenHub GraphQL API.
type ZenHubClient struct {
	Endpoint string
	Token    string
	HTTP     *http.Client
}

// NewZenHubClient returns a client with a bounded HTTP timeout.
func NewZenHubClient(endpoint, token string) *ZenHubClient {
	if endpoint == "" {
		endpoint = DefaultZenHubEndpoint
	}
	return &ZenHubClient{Endpoint: endpoint, Token: token, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Repository is a GitHub repository connected to a workspace.
type Repository struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	GhID int64  `json:"ghId"`
}

// Workspace is a ZenHub workspace.
type Workspace struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Repositories []Repository `json:"-"`
}

// Pipeline is a board column.
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *ZenHubClient) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("zenhub request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read zenhub response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zenhub returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("failed to parse zenhub response: %w", err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("zenhub GraphQL error: %s", strings.Join(msgs, "; "))
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return errors.New("zenhub response contained no data")
	}
	return json.Unmarshal(gr.Data, out)
}

const searchWorkspacesQuery = `query SearchWorkspaces($query: String!) {
  viewer {
    searchWorkspaces(query: $query) {
      nodes { id name repositoriesConnection { nodes { id name ghId } } }
    }
  }
}`

// SearchWorkspaces finds workspaces whose name matches query. ZenHub has no
// way to list every workspace, so a search term is required.
func (c *ZenHubClient) SearchWorkspaces(ctx context.Context, query string) ([]Workspace, error) {
	var data struct {
		Viewer struct {
			SearchWorkspaces struct {
				Nodes []struct {
					ID                     string `json:"id"`
					Name                   string `json:"name"`
					RepositoriesConnection struct {
						Nodes []Repository `json:"nodes"`
					} `json:"repositoriesConnection"`
				} `json:"nodes"`
			} `json:"searchWorkspaces"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, searchWorkspacesQuery, map[string]any{"query": query}, &data); err != nil {
		return nil, err
	}
	var out []Workspace
	for _, n := range data.Viewer.SearchWorkspaces.Nodes {
		out = append(out, Workspace{ID: n.ID, Name: n.Name, Repositories: n.RepositoriesConnection.Nodes})
	}
	return out, nil
}

const workspacePipelinesQuery = `query WorkspacePipelines($id: ID!) {
  workspace(id: $id) {
    pipelinesConnection { nodes { id name } }
    zenhubOrganization { id }
  }
}`

// WorkspacePipelines returns a workspace's pipelines and its organization id.
func (c *ZenHubClient) WorkspacePipelines(ctx context.Context, workspaceID string) ([]Pipeline, string, error) {
	var data struct {
		Workspace *struct {
			PipelinesConnection struct {
				Nodes []Pipeline `json:"nodes"`
			} `json:"pipelinesConnection"`
			ZenhubOrganization *struct {
				ID string `json:"id"`
			} `json:"zenhubOrganization"`
		} `json:"workspace"`
	}
	if err := c.do(ctx, workspacePipelinesQuery, map[string]any{"id": workspaceID}, &data); err != nil {
		return nil, "", err
	}
	if data.Workspace == nil {
		return nil, "", fmt.Errorf("workspace %s not found", workspaceID)
	}
	org := ""
	if data.Workspace.ZenhubOrganization != nil {
		org = data.Workspace.ZenhubOrganization.ID
	}
	return data.Workspace.PipelinesConnection.Nodes, org, nil
}
