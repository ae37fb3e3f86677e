package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agileskills/internal/packager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	skills := filepath.Join(root, "skills")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "skills"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(skills, "testing"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "skills", "testing.zip"), []byte("PK"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(skills, "testing", "SKILL.md"),
		[]byte("---\nname: testing\ndescription: Write tests\nmodel: sonnet\n---\n"), 0644))

	m := &packager.Manifest{
		BuildID: "id-1",
		Version: "v2.0.0",
		Archives: []packager.Archive{
			{Name: "claude-code-skills", Path: "claude-code-skills-v2.0.0.zip", Size: 10},
			{Name: "testing", Path: "skills/testing.zip", Size: 2},
		},
	}
	require.NoError(t, m.Write(filepath.Join(dist, packager.ManifestName)))
	return &Server{DistDir: dist, SkillsDir: skills, Logger: zap.NewNop()}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, r, "/api/skills")
	require.Equal(t, http.StatusOK, rec.Code)
	var list SkillList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "v2.0.0", list.Version)
	assert.Equal(t, "id-1", list.BuildID)
	require.Len(t, list.Skills, 1)
	assert.Equal(t, "testing", list.Skills[0].Name)

	rec = get(t, r, "/api/skills/testing")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry SkillEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "testing", entry.Name)
	assert.Equal(t, "Write tests", entry.Description)
	assert.Equal(t, "sonnet", entry.Model)
	assert.Equal(t, "v2.0.0", entry.Version)

	rec = get(t, r, "/api/skills/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the full distribution is not a skill
	rec = get(t, r, "/api/skills/claude-code-skills")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, r, "/download/testing.zip")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PK", rec.Body.String())

	rec = get(t, r, "/download/absent.zip")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListWithoutManifest(t *testing.T) {
	s := &Server{DistDir: t.TempDir()}
	rec := get(t, s.Router(), "/api/skills")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
