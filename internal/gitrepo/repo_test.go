package gitrepo

import (
	"context"
	"testing"
	"time"

	"agileskills/internal/tactile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
}

func TestVersion(t *testing.T) {
	ctx := context.Background()

	fake := tactile.NewFakeExecutor()
	fake.On("git", "describe").Returns("v1.4.0-3-gabc123-dirty\n", 0)
	r := &Repo{Dir: "/repo", Exec: fake, Now: fixedClock}
	assert.Equal(t, "v1.4.0-3-gabc123-dirty", r.Version(ctx))
	assert.Equal(t, "/repo", fake.Calls()[0].WorkingDirectory)

	t.Run("falls back on failure", func(t *testing.T) {
		fake := tactile.NewFakeExecutor()
		fake.On("git", "describe").Returns("", 128)
		r := &Repo{Exec: fake, Now: fixedClock}
		assert.Equal(t, "20260307", r.Version(ctx))
	})

	t.Run("falls back without git", func(t *testing.T) {
		r := &Repo{Exec: tactile.NewFakeExecutor(), Now: fixedClock}
		assert.Equal(t, "20260307", r.Version(ctx))
	})

	t.Run("falls back on empty output", func(t *testing.T) {
		fake := tactile.NewFakeExecutor()
		fake.On("git", "describe").Returns("  \n", 0)
		r := &Repo{Exec: fake, Now: fixedClock}
		assert.Equal(t, "20260307", r.Version(ctx))
	})
}

func TestLsFiles(t *testing.T) {
	fake := tactile.NewFakeExecutor()
	fake.On("git", "ls-files", "-z", "skills/").Returns("skills/b/SKILL.md\x00skills/a/SKILL.md\x00", 0)
	fake.On("git", "ls-files", "-z").Returns("README.md\x00", 0)
	r := New("/repo", fake)

	files, err := r.LsFiles(context.Background(), "skills/")
	require.NoError(t, err)
	assert.Equal(t, []string{"skills/a/SKILL.md", "skills/b/SKILL.md"}, files)

	files, err = r.LsFiles(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, files)
}

func TestLsFilesNonASCII(t *testing.T) {
	fake := tactile.NewFakeExecutor()
	fake.On("git", "ls-files", "-z").Returns("skills/r\u00e9sum\u00e9/SKILL.md\x00skills/a b/notes.md\x00", 0)

	files, err := New("/repo", fake).LsFiles(context.Background(), "skills/")
	require.NoError(t, err)
	assert.Equal(t, []string{"skills/a b/notes.md", "skills/résumé/SKILL.md"}, files)
	assert.Equal(t, []string{"ls-files", "-z", "skills/"}, fake.Calls()[0].Arguments)
}

func TestLsFilesFailure(t *testing.T) {
	fake := tactile.NewFakeExecutor()
	fake.On("git", "ls-files").Returns("", 128).Stderr("fatal: not a git repository")
	_, err := New("/tmp", fake).LsFiles(context.Background(), "")
	assert.ErrorContains(t, err, "not a git repository")
}

func TestStatusAndArchive(t *testing.T) {
	fake := tactile.NewFakeExecutor()
	fake.On("git", "status").Returns(" M skills/a/SKILL.md\n?? notes.txt\n", 0)
	fake.On("git", "archive").Returns("", 0)
	r := New("/repo", fake)

	changes, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{" M skills/a/SKILL.md", "?? notes.txt"}, changes)

	require.NoError(t, r.Archive(context.Background(), "/out/full.zip"))
	assert.True(t, fake.Called("git", "archive", "--format=zip", "--output=/out/full.zip", "HEAD"))
}

func TestAvailable(t *testing.T) {
	fake := tactile.NewFakeExecutor()
	assert.False(t, New("", fake).Available(context.Background()))
	fake.On("git", "--version").Returns("git version 2.44.0", 0)
	assert.True(t, New("", fake).Available(context.Background()))
}
