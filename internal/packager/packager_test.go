package packager

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGit serves tracked files from a fixed list.
type fakeGit struct {
	root       string
	tracked    []string
	changes    []string
	version    string
	archiveErr error
}

func (g *fakeGit) Version(ctx context.Context) string { return g.version }

func (g *fakeGit) LsFiles(ctx context.Context, path string) ([]string, error) {
	var out []string
	for _, f := range g.tracked {
		if strings.HasPrefix(f, path) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (g *fakeGit) Status(ctx context.Context) ([]string, error) { return g.changes, nil }

func (g *fakeGit) Archive(ctx context.Context, out string) error {
	if g.archiveErr != nil {
		return g.archiveErr
	}
	return os.WriteFile(out, []byte("PK-full"), 0644)
}

func newFixture(t *testing.T) (*Packager, *fakeGit) {
	t.Helper()
	root := t.TempDir()
	tracked := []string{
		"README.md",
		"skills/agile-board/SKILL.md",
		"skills/agile-board/references/zenhub.md",
		"skills/agile-board/scripts/setup.py",
		"skills/testing/SKILL.md",
	}
	for _, f := range tracked {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("content of "+f), 0644))
	}
	g := &fakeGit{root: root, tracked: tracked, version: "v1.2.0"}
	p := &Packager{
		Git:       g,
		Root:      root,
		OutputDir: filepath.Join(root, "dist"),
		Level:     6,
		Workers:   2,
		Logger:    zap.NewNop(),
	}
	return p, g
}

func TestDiscoverSkills(t *testing.T) {
	files := []string{
		"skills/b/SKILL.md",
		"skills/a/SKILL.md",
		"skills/a/references/SKILL.md",
		"skills/c/README.md",
		"docs/x/SKILL.md",
		"skills/a/SKILL.md",
	}
	assert.Equal(t, []string{"a", "b"}, DiscoverSkills(SkillsPrefix, files))
	assert.Equal(t, []string{"x"}, DiscoverSkills("docs/", files))
	assert.Empty(t, DiscoverSkills(SkillsPrefix, nil))
}

func TestBuildCustomSkillsPath(t *testing.T) {
	p, g := newFixture(t)
	g.tracked = []string{"content/skills/writer/SKILL.md", "content/skills/writer/ref.md"}
	for _, f := range g.tracked {
		path := filepath.Join(p.Root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0644))
	}
	p.SkillsPath = "content/skills"

	names, err := p.Skills(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"writer"}, names)

	a, err := p.BuildSkill(context.Background(), "writer")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Files)
}

func TestBuildReportsChangesFirst(t *testing.T) {
	p, g := newFixture(t)
	g.changes = []string{"?? notes.txt"}

	var seen []string
	_, err := p.Build(context.Background(), Options{OnChanges: func(changes []string) {
		seen = changes
		assert.NoFileExists(t, filepath.Join(p.OutputDir, ManifestName))
		assert.NoDirExists(t, p.SkillsDir())
	}})
	require.NoError(t, err)
	assert.Equal(t, g.changes, seen)
}

func TestBuildSkill(t *testing.T) {
	p, _ := newFixture(t)

	a, err := p.BuildSkill(context.Background(), "agile-board")
	require.NoError(t, err)
	assert.Equal(t, "skills/agile-board.zip", a.Path)
	assert.Equal(t, 3, a.Files)
	assert.Len(t, a.SHA256, 64)

	zr, err := zip.OpenReader(a.AbsPath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
	}
	assert.Equal(t, []string{
		"agile-board/SKILL.md",
		"agile-board/references/zenhub.md",
		"agile-board/scripts/setup.py",
	}, names)
}

func TestBuildSkillWithoutTrackedFiles(t *testing.T) {
	p, _ := newFixture(t)
	a, err := p.BuildSkill(context.Background(), "ghost")
	require.NoError(t, err)
	assert.True(t, a.Skipped)
	assert.NoFileExists(t, a.AbsPath)
}

func TestBuild(t *testing.T) {
	p, g := newFixture(t)
	g.changes = []string{" M skills/testing/SKILL.md"}

	res, err := p.Build(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "claude-code-skills-v1.2.0.zip", res.Full.Path)
	assert.FileExists(t, filepath.Join(p.OutputDir, "claude-code-skills-v1.2.0.zip"))
	require.Len(t, res.Skills, 2)
	assert.Equal(t, "agile-board", res.Skills[0].Name)
	assert.Equal(t, "testing", res.Skills[1].Name)
	assert.Equal(t, g.changes, res.Changes)

	m, err := ReadManifest(p.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", m.Version)
	assert.NotEmpty(t, m.BuildID)
	require.Len(t, m.Archives, 3)
	assert.Equal(t, res.Manifest.BuildID, m.BuildID)

	_, ok := m.FindSkill("claude-code-skills")
	assert.False(t, ok)
	assert.Len(t, m.SkillArchives(), 2)
	a, ok := m.FindSkill("testing")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(p.OutputDir, "skills", "testing.zip"), a.AbsPath)
	assert.Equal(t, res.Skills[1].SHA256, a.SHA256)
}

func TestBuildVersionOverride(t *testing.T) {
	p, _ := newFixture(t)
	p.ArchivePrefix = "team-skills"
	res, err := p.Build(context.Background(), Options{Version: "v9"})
	require.NoError(t, err)
	assert.Equal(t, "team-skills-v9.zip", res.Full.Path)
}

func TestBuildArchiveFailure(t *testing.T) {
	p, g := newFixture(t)
	g.archiveErr = errors.New("git archive failed: exit status 128")
	_, err := p.Build(context.Background(), Options{})
	assert.ErrorContains(t, err, "git archive failed")
}

func TestPreview(t *testing.T) {
	p, _ := newFixture(t)
	pv, err := p.Preview(context.Background())
	require.NoError(t, err)
	assert.Len(t, pv.Files, 5)
	assert.Equal(t, []string{"agile-board", "testing"}, pv.Skills)
	assert.Equal(t, map[string]int{"agile-board": 3, "testing": 1}, pv.SkillFiles)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 KB", FormatSize(500))
	assert.Equal(t, "12 KB", FormatSize(12*1024+100))
	assert.Equal(t, "1023 KB", FormatSize(1023*1024))
	assert.Equal(t, "1.0 MB", FormatSize(1024*1024))
	assert.Equal(t, "2.5 MB", FormatSize(2560*1024))
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.ErrorContains(t, err, "skills build")
}
