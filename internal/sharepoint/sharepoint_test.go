package sharepoint

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"agileskills/internal/tactile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Location
	}{
		{
			name: "file path",
			raw:  "https://acme.sharepoint.com/sites/Product/Shared%20Documents/specs/req.docx",
			want: Location{Host: "acme.sharepoint.com", SitePath: "/sites/Product", ItemPath: "/Shared Documents/specs/req.docx"},
		},
		{
			name: "site root",
			raw:  "https://acme.sharepoint.com/sites/Product",
			want: Location{Host: "acme.sharepoint.com", SitePath: "/sites/Product"},
		},
		{
			name: "no site",
			raw:  "https://acme.sharepoint.com/Shared%20Documents/a.pdf",
			want: Location{Host: "acme.sharepoint.com", ItemPath: "/Shared Documents/a.pdf"},
		},
		{
			name: "id parameter wins",
			raw:  "https://acme.sharepoint.com/sites/Product/Documents%20partages/Forms/AllItems.aspx?id=%2Fsites%2FProduct%2FDocuments%20partages%2FSpecs%2F2024&viewid=x",
			want: Location{Host: "acme.sharepoint.com", SitePath: "/sites/Product", ItemPath: "/Documents partages/Specs/2024"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseURL("not a url")
	assert.Error(t, err)
}

func TestDriveRelativePath(t *testing.T) {
	assert.Equal(t, "specs/req.docx", DriveRelativePath("/Shared Documents/specs/req.docx", false))
	assert.Equal(t, "", DriveRelativePath("/Shared Documents", true))
	assert.Equal(t, "Shared Documents", DriveRelativePath("/Shared Documents", false))
	assert.Equal(t, "", DriveRelativePath("", true))
}

func TestAzureCLITokenSource(t *testing.T) {
	ctx := context.Background()

	exec := tactile.NewFakeExecutor()
	exec.On("az", "version").Returns("{}", 0)
	exec.On("az", "account", "get-access-token").Returns("eyJ0eXAi\n", 0).Times(1)
	src := &AzureCLITokenSource{Exec: exec}

	require.NoError(t, src.Check(ctx))
	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eyJ0eXAi", tok)
	// cached
	tok, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "eyJ0eXAi", tok)
	assert.True(t, exec.Called("az", "account", "get-access-token", "--resource=https://graph.microsoft.com", "--query", "accessToken", "-o", "tsv"))

	missing := &AzureCLITokenSource{Exec: tactile.NewFakeExecutor()}
	assert.ErrorIs(t, missing.Check(ctx), ErrAzureCLIMissing)
	_, err = missing.Token(ctx)
	assert.ErrorIs(t, err, ErrAzureCLIMissing)

	exec = tactile.NewFakeExecutor()
	exec.On("az", "account").Returns("", 1).Stderr("Please run 'az login'")
	_, err = (&AzureCLITokenSource{Exec: exec}).Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func newGraph(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/sites/acme.sharepoint.com:/sites/Product":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"id":"site-1","name":"Product","displayName":"Product Team"}`)
		case "/v1.0/sites/site-1/drives":
			fmt.Fprint(w, `{"value":[{"id":"drive-1","name":"Documents"},{"id":"drive-2","name":"Other"}]}`)
		case "/v1.0/drives/drive-1/root:/specs:/children":
			fmt.Fprint(w, `{"value":[
				{"name":"zeta.docx","size":2048,"file":{},"lastModifiedDateTime":"2024-05-01T10:00:00Z"},
				{"name":"Archive","size":1048576,"folder":{"childCount":3}},
				{"name":"alpha.pdf","size":512,"file":{},"lastModifiedDateTime":"2024-04-01T10:00:00Z"}
			]}`)
		case "/v1.0/drives/drive-1/root:/specs/req one.docx":
			fmt.Fprintf(w, `{"name":"req one.docx","size":4096,"file":{},"createdDateTime":"2024-01-02T00:00:00Z",
				"createdBy":{"user":{"displayName":"Ada"}},"webUrl":"https://x",
				"@microsoft.graph.downloadUrl":"%s/content/req"}`, srv.URL)
		case "/content/req":
			fmt.Fprint(w, "DOCX-BYTES")
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":"itemNotFound","message":"The resource could not be found."}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL+"/v1.0", StaticToken("tok"))
}

func TestSessionList(t *testing.T) {
	_, c := newGraph(t)
	loc, err := ParseURL("https://acme.sharepoint.com/sites/Product/Shared%20Documents/specs")
	require.NoError(t, err)

	var out bytes.Buffer
	s, err := Open(context.Background(), c, loc, &out)
	require.NoError(t, err)
	assert.Equal(t, "drive-1", s.Drive.ID)

	require.NoError(t, s.List(context.Background()))
	text := out.String()
	assert.Contains(t, text, "Site: Product Team (Product)")
	assert.Contains(t, text, "Library: Documents")
	assert.Contains(t, text, "Items: 3")
	assert.Contains(t, text, "[dir]  Archive (3 items, 1.0 MB)")
	assert.Contains(t, text, "[file] zeta.docx (2.0 KB, modified: 2024-05-01)")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("alpha.pdf")), bytes.Index(out.Bytes(), []byte("zeta.docx")))
}

func TestSessionDownloadAndMetadata(t *testing.T) {
	_, c := newGraph(t)
	loc, err := ParseURL("https://acme.sharepoint.com/sites/Product/Shared%20Documents/specs/req%20one.docx")
	require.NoError(t, err)

	var out bytes.Buffer
	s, err := Open(context.Background(), c, loc, &out)
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := s.Download(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "req one.docx"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DOCX-BYTES", string(data))

	out.Reset()
	item, err := s.Metadata(context.Background())
	require.NoError(t, err)
	assert.False(t, item.IsFolder())
	assert.Contains(t, out.String(), "Created By: Ada")
	assert.Contains(t, out.String(), "Modified By: Unknown")
	assert.Contains(t, out.String(), "Created: 2024-01-02")
}

func TestItemNotFound(t *testing.T) {
	_, c := newGraph(t)
	_, err := c.Item(context.Background(), "drive-1", "missing.docx")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "itemNotFound", apiErr.Code)
}
