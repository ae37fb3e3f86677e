package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// ErrNoDrives is returned when a site has no document library.
var ErrNoDrives = errors.New("no document libraries found")

// APIError is a non-2xx Graph response.
type APIError struct {
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error %d (%s): %s", e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("graph API error %d: %s", e.Status, e.Body)
}

// Site is a SharePoint site.
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Drive is a document library.
type Drive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IdentitySet names who touched an item.
type IdentitySet struct {
	User struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

// Item is a drive item (file or folder).
type Item struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	CreatedBy            *IdentitySet `json:"createdBy,omitempty"`
	LastModifiedBy       *IdentitySet `json:"lastModifiedBy,omitempty"`
	Folder               *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool { return i.Folder != nil }

// Client calls Microsoft Graph.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

// NewClient returns a client with a bounded HTTP timeout.
func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: 5 * time.Minute}, Tokens: tokens}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Body = envelope.Error.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse graph response: %w", err)
	}
	return nil
}

// Site resolves a site by host and server-relative path.
func (c *Client) Site(ctx context.Context, loc Location) (*Site, error) {
	var s Site
	endpoint := "/sites/" + loc.Host
	if loc.SitePath != "" {
		endpoint += ":" + escapePath(loc.SitePath)
	}
	if err := c.get(ctx, endpoint, &s); err != nil {
		return nil, fmt.Errorf("could not access site %s%s: %w", loc.Host, loc.SitePath, err)
	}
	return &s, nil
}

// Drives lists a site's document libraries.
func (c *Client) Drives(ctx context.Context, siteID string) ([]Drive, error) {
	var resp struct {
		Value []Drive `json:"value"`
	}
	if err := c.get(ctx, "/sites/"+siteID+"/drives", &resp); err != nil {
		return nil, fmt.Errorf("could not get document libraries: %w", err)
	}
	if len(resp.Value) == 0 {
		return nil, ErrNoDrives
	}
	return resp.Value, nil
}

// Children lists a folder by drive-relative path ("" is the root).
func (c *Client) Children(ctx context.Context, driveID, rel string) ([]Item, error) {
	endpoint := "/drives/" + driveID + "/root/children"
	if rel != "" {
		endpoint = "/drives/" + driveID + "/root:/" + escapePath(rel) + ":/children"
	}
	var resp struct {
		Value []Item `json:"value"`
	}
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("could not list folder %s: %w", rel, err)
	}
	return resp.Value, nil
}

// Item fetches one item by drive-relative path.
func (c *Client) Item(ctx context.Context, driveID, rel string) (*Item, error) {
	endpoint := "/drives/" + driveID + "/root"
	if rel != "" {
		endpoint += ":/" + escapePath(rel)
	}
	var item Item
	if err := c.get(ctx, endpoint, &item); err != nil {
		return nil, fmt.Errorf("item not found %s: %w", rel, err)
	}
	return &item, nil
}

// Download streams item's content into dir and returns the written path.
func (c *Client) Download(ctx context.Context, item *Item, dir string) (string, error) {
	if item.DownloadURL == "" {
		return "", fmt.Errorf("no download URL available for %s", item.Name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.DownloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, filepath.Base(item.Name))
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("download failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return out, nil
}
