package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agileskills/internal/tactile"
)

const repoIDQuery = `query($owner: String!, $repo: String!) { repository(owner: $owner, name: $repo) { id nameWithOwner } }`

// GitHubRepo identifies the repository of the current project.
type GitHubRepo struct {
	ID            string
	NameWithOwner string
}

// DetectGitHubRepo asks gh for the GraphQL id of the repository checked out
// in dir. gh fills {owner} and {repo} from the local git remote.
func DetectGitHubRepo(ctx context.Context, exec tactile.Executor, dir string) (*GitHubRepo, error) {
	res, err := tactile.Run(ctx, exec, tactile.Command{
		Binary: "gh",
		Arguments: []string{
			"api", "graphql",
			"-F", "owner={owner}",
			"-F", "repo={repo}",
			"-f", "query=" + repoIDQuery,
		},
		WorkingDirectory: dir,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Repository *struct {
				ID            string `json:"id"`
				NameWithOwner string `json:"nameWithOwner"`
			} `json:"repository"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse gh output: %w", err)
	}
	if payload.Data.Repository == nil || payload.Data.Repository.ID == "" {
		return nil, errors.New("gh returned no repository")
	}
	return &GitHubRepo{ID: payload.Data.Repository.ID, NameWithOwner: payload.Data.Repository.NameWithOwner}, nil
}
