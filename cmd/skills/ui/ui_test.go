package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "0;15")
	t.Setenv("SKILLS_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark)

	t.Setenv("SKILLS_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark)
}

func TestSimpleTable(t *testing.T) {
	styles := NewStyles(LightTheme())
	table := NewSimpleTable("Skills", "NAME", "MODEL")
	assert.Empty(t, table.View(styles))

	table.AddRow("lint", "sonnet")
	table.AddRow("requirements-design")
	view := table.View(styles)

	assert.Contains(t, view, "Skills")
	assert.Contains(t, view, "NAME")
	assert.Contains(t, view, "requirements-design")
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	assert.Len(t, lines, 5)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", Truncate("a \n  b", 10))
}

func TestCheck(t *testing.T) {
	styles := NewStyles(LightTheme())
	assert.Contains(t, styles.Check(StatusOK, "git", "/usr/bin/git"), "[ok]")
	assert.Contains(t, styles.Check(StatusWarn, "pandoc", ""), "[--]")
	assert.Contains(t, styles.Check(StatusFail, "skills dir", "missing"), "missing")
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# Title\n\nSome **bold** text.\n", 60, LightTheme())
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}
