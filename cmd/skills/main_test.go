package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agileskills/internal/board"
	"agileskills/internal/config"
	"agileskills/internal/lintsetup"
	"agileskills/internal/packager"
	"agileskills/internal/publish"
	"agileskills/internal/sharepoint"
	"agileskills/internal/skill"
	"agileskills/internal/tactile"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setup points the CLI at a fresh workspace with a fake executor.
func setup(t *testing.T) (string, *tactile.FakeExecutor) {
	t.Helper()
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	configPath = ""
	timeout = time.Minute

	fake := tactile.NewFakeExecutor()
	origExec, origLook, origHome := newExecutor, lookPath, homeDir
	newExecutor = func() tactile.Executor { return fake }
	home := t.TempDir()
	homeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() {
		workspace, configPath = "", ""
		newExecutor, lookPath, homeDir = origExec, origLook, origHome
	})
	return ws, fake
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader(""))
	err := fn(cmd, args)
	return buf.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeSkill(t *testing.T, ws, name, body string) {
	t.Helper()
	writeFile(t, filepath.Join(ws, "skills", name, "SKILL.md"),
		fmt.Sprintf("---\nname: %s\ndescription: Does %s things\nmodel: sonnet\n---\n%s", name, name, body))
}

func TestLintCommand(t *testing.T) {
	ws, _ := setup(t)
	lintFormat, lintWatch = "text", false
	writeSkill(t, ws, "alpha", "# Alpha\n\nSee [ref](ref.md).\n")
	writeFile(t, filepath.Join(ws, "skills", "alpha", "ref.md"), "# Ref\n")

	out, err := run(t, runLint)
	require.NoError(t, err)
	assert.Contains(t, out, "1 skills checked: 0 error(s), 0 warning(s)")

	writeSkill(t, ws, "beta", "Broken [link](nope.md)\n")
	out, err = run(t, runLint)
	require.Error(t, err)
	assert.Contains(t, out, "skills/beta/SKILL.md:6: error [broken-link]")
	assert.Contains(t, err.Error(), "1 error(s)")

	lintFormat = "json"
	t.Cleanup(func() { lintFormat = "text" })
	out, err = run(t, runLint)
	require.Error(t, err)
	var findings []skill.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, skill.RuleBrokenLink, findings[0].Rule)
}

func TestLintCommandMissingSkillsDir(t *testing.T) {
	setup(t)
	lintFormat, lintWatch = "text", false
	_, err := run(t, runLint)
	assert.ErrorContains(t, err, "skills directory")
}

// scriptGit answers the git commands a build issues for one skill.
func scriptGit(t *testing.T, ws string, fake *tactile.FakeExecutor) {
	t.Helper()
	writeSkill(t, ws, "alpha", "# Alpha\n")
	writeFile(t, filepath.Join(ws, "README.md"), "# Repo\n")

	fake.On("git", "--version").Returns("git version 2.45.0\n", 0)
	fake.On("git", "describe").Returns("v1.2.0\n", 0)
	fake.On("git", "status").Returns(" M README.md\n", 0)
	fake.On("git", "ls-files", "-z", "skills/alpha/").Returns("skills/alpha/SKILL.md\x00", 0)
	fake.On("git", "ls-files", "-z", "skills/").Returns("skills/alpha/SKILL.md\x00", 0)
	fake.On("git", "ls-files", "-z").Returns("README.md\x00skills/alpha/SKILL.md\x00", 0)
	fake.On("git", "archive").Do(func(cmd tactile.Command) error {
		for _, arg := range cmd.Arguments {
			if out, ok := strings.CutPrefix(arg, "--output="); ok {
				return os.WriteFile(out, []byte("PK-full"), 0644)
			}
		}
		return fmt.Errorf("no --output in %v", cmd.Arguments)
	})
}

func TestBuildCommandWithoutGit(t *testing.T) {
	_, _ = setup(t)
	buildVersion, buildOutput, buildList, buildPublish = "", "", false, false

	_, err := run(t, runBuild)
	assert.ErrorIs(t, err, errGitMissing)
}

func TestBuildCommand(t *testing.T) {
	ws, fake := setup(t)
	scriptGit(t, ws, fake)
	buildVersion, buildOutput, buildList, buildPublish = "", "", false, false

	out, err := run(t, runBuild)
	require.NoError(t, err)

	assert.Contains(t, out, "Warning: uncommitted changes will NOT be included")
	assert.Contains(t, out, " M README.md")
	assert.Less(t, strings.Index(out, "Warning: uncommitted"), strings.Index(out, "Full distribution:"))
	assert.Contains(t, out, "Full distribution:  "+filepath.Join("dist", "claude-code-skills-v1.2.0.zip"))
	assert.Contains(t, out, filepath.Join("dist", "skills", "alpha.zip"))
	assert.Contains(t, out, "unzip claude-code-skills-v1.2.0.zip -d claude-code-skills")

	zr, err := zip.OpenReader(filepath.Join(ws, "dist", "skills", "alpha.zip"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "alpha/SKILL.md", zr.File[0].Name)

	m, err := packager.ReadManifest(filepath.Join(ws, "dist"))
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", m.Version)
	assert.Len(t, m.Archives, 2)
}

func TestBuildCommandList(t *testing.T) {
	ws, fake := setup(t)
	scriptGit(t, ws, fake)
	buildVersion, buildOutput, buildList, buildPublish = "", "", true, false
	t.Cleanup(func() { buildList = false })

	out, err := run(t, runBuild)
	require.NoError(t, err)
	assert.Contains(t, out, "Full distribution (2 files):")
	assert.Contains(t, out, "alpha  (1 files)")
	assert.NoDirExists(t, filepath.Join(ws, "dist"))
}

type memS3 struct {
	mu   sync.Mutex
	keys []string
}

func (m *memS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (m *memS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = io.Copy(io.Discard, in.Body)
	m.keys = append(m.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestBuildAndPublish(t *testing.T) {
	ws, fake := setup(t)
	scriptGit(t, ws, fake)
	t.Setenv("SKILLS_S3_BUCKET", "skills-bucket")

	store := &memS3{}
	orig := newS3
	newS3 = func(ctx context.Context, a *app) (publish.S3API, error) { return store, nil }
	t.Cleanup(func() { newS3 = orig })

	buildVersion, buildOutput, buildList, buildPublish = "2.0.0", "", false, true
	t.Cleanup(func() { buildVersion, buildPublish = "", false })

	out, err := run(t, runBuild)
	require.NoError(t, err)
	assert.Contains(t, out, "Publishing 2.0.0 to s3://skills-bucket/")
	assert.Equal(t, []string{
		"skills/2.0.0/claude-code-skills-2.0.0.zip",
		"skills/2.0.0/skills/alpha.zip",
		"skills/2.0.0/manifest.json",
	}, store.keys)

	// publish re-reads the manifest from dist
	store.keys = nil
	publishDist = ""
	out, err = run(t, runPublish)
	require.NoError(t, err)
	assert.Contains(t, out, "Published 3 objects")
}

func TestPublishWithoutBucket(t *testing.T) {
	ws, _ := setup(t)
	t.Setenv("SKILLS_S3_BUCKET", "")
	m := packager.NewManifest("1.0.0", time.Now())
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "dist"), 0755))
	require.NoError(t, m.Write(filepath.Join(ws, "dist", packager.ManifestName)))

	publishDist = ""
	_, err := run(t, runPublish)
	assert.ErrorIs(t, err, publish.ErrNoBucket)
}

func TestBoardSetupAndShow(t *testing.T) {
	ws, _ := setup(t)
	writeFile(t, filepath.Join(ws, ".gitignore"), "dist/\n")
	boardDir = ""
	boardOpts = board.Options{
		BoardType:  "jira",
		Force:      true,
		JiraURL:    "https://acme.atlassian.net/",
		ProjectKey: "web",
	}
	t.Cleanup(func() { boardOpts = board.Options{} })

	out, err := run(t, runBoardSetup)
	require.NoError(t, err)
	assert.Contains(t, out, "Setup complete!")

	cfg, err := board.LoadConfig(ws)
	require.NoError(t, err)
	assert.Equal(t, board.TypeJira, cfg.BoardType)
	assert.Equal(t, "https://acme.atlassian.net", cfg.JiraURL)
	assert.Equal(t, "WEB", cfg.ProjectKey)

	out, err = run(t, runBoardShow)
	require.NoError(t, err)
	assert.Contains(t, out, "Jira")
	assert.Contains(t, out, "WEB")
}

func TestBoardShowWithoutConfig(t *testing.T) {
	setup(t)
	boardDir = ""
	_, err := run(t, runBoardShow)
	assert.ErrorContains(t, err, "skills board setup")
}

func TestLintSetupDryRun(t *testing.T) {
	ws, fake := setup(t)
	writeFile(t, filepath.Join(ws, "pyproject.toml"), "[project]\n")
	lintSetupDryRun, lintSetupProject = true, ""
	t.Cleanup(func() { lintSetupDryRun = false })

	out, err := run(t, runLintSetup)
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "https://github.com/psf/black")
	assert.Empty(t, fake.Calls())
	assert.NoFileExists(t, filepath.Join(ws, ".pre-commit-config.yaml"))
}

func TestLintSetupNoLanguages(t *testing.T) {
	setup(t)
	lintSetupDryRun, lintSetupProject = false, ""
	lintSetupSkipInstall, lintSetupSkipHooks = true, true
	t.Cleanup(func() { lintSetupSkipInstall, lintSetupSkipHooks = false, false })

	_, err := run(t, runLintSetup)
	assert.ErrorIs(t, err, lintsetup.ErrNoLanguages)
}

func TestSharePointList(t *testing.T) {
	ws, _ := setup(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/sites/acme.sharepoint.com:/sites/Product":
			fmt.Fprint(w, `{"id":"s1","name":"Product","displayName":"Product"}`)
		case "/v1.0/sites/s1/drives":
			fmt.Fprint(w, `{"value":[{"id":"d1","name":"Documents"}]}`)
		case "/v1.0/drives/d1/root/children":
			fmt.Fprint(w, `{"value":[{"name":"spec.docx","size":3072,"file":{},"lastModifiedDateTime":"2024-03-04T00:00:00Z"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	writeFile(t, filepath.Join(ws, ".skills.yaml"), "sharepoint:\n  graph_base_url: "+srv.URL+"/v1.0\n")

	orig := newTokenSource
	newTokenSource = func(ctx context.Context, a *app) (sharepoint.TokenSource, error) {
		return sharepoint.StaticToken("tok"), nil
	}
	t.Cleanup(func() { newTokenSource = orig })

	sharepointURL = "https://acme.sharepoint.com/sites/Product/Shared%20Documents"
	out, err := run(t, sharepointListCmd.RunE)
	require.NoError(t, err)
	assert.Contains(t, out, "Site: /sites/Product")
	assert.Contains(t, out, "Library: Documents")
	assert.Contains(t, out, "[file] spec.docx (3.0 KB, modified: 2024-03-04)")
}

func TestSharePointRequiresAzureCLI(t *testing.T) {
	setup(t)
	sharepointURL = "https://acme.sharepoint.com/sites/Product/Shared%20Documents"
	_, err := run(t, sharepointListCmd.RunE)
	assert.ErrorIs(t, err, sharepoint.ErrAzureCLIMissing)
}

func TestConvertCommand(t *testing.T) {
	ws, _ := setup(t)
	convertSupportedFormats = true
	out, err := run(t, runConvert)
	convertSupportedFormats = false
	require.NoError(t, err)
	assert.Contains(t, out, ".docx    - Word Document")

	src := filepath.Join(ws, "docs")
	writeFile(t, filepath.Join(src, "guide.html"), "<h2>Guide</h2><p>text</p>")
	writeFile(t, filepath.Join(src, "old.doc"), "binary")
	convertFile, convertFolder, convertOutput = "", src, ""
	convertQuiet = true
	t.Cleanup(func() { convertFolder, convertQuiet = "", false })

	out, err = run(t, runConvert)
	require.Error(t, err)
	assert.Contains(t, out, "Successfully converted: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.FileExists(t, filepath.Join(src, "Markdown", "guide.md"))

	convertFolder = ""
	_, err = run(t, runConvert)
	assert.ErrorContains(t, err, "--file or --folder")
}

func TestDoctor(t *testing.T) {
	ws, _ := setup(t)
	lookPath = tactile.FakeLookPath("git", "gh")

	out, err := run(t, runDoctor)
	require.Error(t, err)
	assert.Contains(t, out, "skills directory not found")

	writeSkill(t, ws, "alpha", "# Alpha\n")
	out, err = run(t, runDoctor)
	require.NoError(t, err)
	assert.Contains(t, out, "/usr/bin/git")
	assert.Contains(t, out, "optional, convert: PDFs without pandoc")
	assert.Contains(t, out, "1 skills, 0 error(s), 0 warning(s)")

	lookPath = tactile.FakeLookPath()
	_, err = run(t, runDoctor)
	assert.Error(t, err)
}

func TestListAndShow(t *testing.T) {
	ws, _ := setup(t)
	out, err := run(t, runList)
	require.NoError(t, err)
	assert.Contains(t, out, "No skills found")

	writeSkill(t, ws, "alpha", "# Alpha\n\nBody text.\n")
	writeSkill(t, ws, "beta", "# Beta\n")
	out, err = run(t, runList)
	require.NoError(t, err)
	assert.Contains(t, out, "Skills (2)")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "Does beta things")

	showRaw = true
	out, err = run(t, runShow, "alpha")
	showRaw = false
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---\nname: alpha\n"))

	out, err = run(t, runShow, "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "Does alpha things")
	assert.Contains(t, out, "Body")

	_, err = run(t, runShow, "gamma")
	assert.ErrorContains(t, err, `skill "gamma" not found`)
}

func TestConfigInitAndShow(t *testing.T) {
	ws, _ := setup(t)
	configForce = false
	t.Cleanup(func() { configForce = false })

	out, err := run(t, runConfigInit)
	require.NoError(t, err)
	path := filepath.Join(ws, ".skills.yaml")
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = run(t, runConfigInit)
	assert.ErrorContains(t, err, "already exists")
	configForce = true
	_, err = run(t, runConfigInit)
	require.NoError(t, err)

	t.Setenv("AWS_SECRET_ACCESS_KEY", "top-secret")
	out, err = run(t, runConfigShow)
	require.NoError(t, err)
	assert.Contains(t, out, "skills_dir: skills")
	assert.NotContains(t, out, "top-secret")
}

func TestExplicitConfigMustExist(t *testing.T) {
	ws, _ := setup(t)
	configPath = filepath.Join(ws, "missing.yaml")

	_, err := newApp()
	assert.ErrorIs(t, err, config.ErrConfigNotFound)

	// config init creates the named file
	configForce = false
	_, err = run(t, runConfigInit)
	require.NoError(t, err)
	_, err = newApp()
	assert.NoError(t, err)
}
