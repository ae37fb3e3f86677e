package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders md for the terminal, wrapped at width. Rendering
// failures return md unchanged.
func RenderMarkdown(md string, width int, theme Theme) string {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
