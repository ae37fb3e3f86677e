package sharepoint

import (
	"context"
	"errors"
	"fmt"

	"agileskills/internal/tactile"
)

var (
	// ErrAzureCLIMissing is returned when az is not installed.
	ErrAzureCLIMissing = errors.New(`Azure CLI not installed.

Install Azure CLI:
  Linux:   curl -sL https://aka.ms/InstallAzureCLIDeb | sudo bash
  macOS:   brew install azure-cli
  Windows: https://aka.ms/installazurecliwindows`)

	// ErrNotAuthenticated is returned when az has no usable login.
	ErrNotAuthenticated = errors.New(`not authenticated to Azure.

Authenticate with:
  az login --allow-no-subscriptions

If tenant mismatch, use:
  az login --allow-no-subscriptions --tenant <tenant-id>`)
)

// DefaultResource is the Graph token audience.
const DefaultResource = "https://graph.microsoft.com"

// TokenSource supplies Graph bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, for tests and pre-fetched tokens.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// AzureCLITokenSource gets tokens from `az account get-access-token`.
type AzureCLITokenSource struct {
	Exec     tactile.Executor
	Resource string

	token string
}

// Check verifies az is installed.
func (a *AzureCLITokenSource) Check(ctx context.Context) error {
	res, err := a.Exec.Execute(ctx, tactile.Command{Binary: "az", Arguments: []string{"version"}})
	if err != nil || !res.Ok() {
		return ErrAzureCLIMissing
	}
	return nil
}

// Token returns a cached token or fetches one.
func (a *AzureCLITokenSource) Token(ctx context.Context) (string, error) {
	if a.token != "" {
		return a.token, nil
	}
	resource := a.Resource
	if resource == "" {
		resource = DefaultResource
	}
	res, err := a.Exec.Execute(ctx, tactile.Command{
		Binary:    "az",
		Arguments: []string{"account", "get-access-token", "--resource=" + resource, "--query", "accessToken", "-o", "tsv"},
	})
	if errors.Is(err, tactile.ErrBinaryNotFound) {
		return "", ErrAzureCLIMissing
	}
	if err != nil {
		return "", err
	}
	if !res.Ok() || res.TrimmedStdout() == "" {
		return "", fmt.Errorf("%w\n\naz: %s", ErrNotAuthenticated, res.Failure())
	}
	a.token = res.TrimmedStdout()
	return a.token, nil
}
