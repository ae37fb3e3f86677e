package skill

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Link is a link or image destination found in a Markdown document.
type Link struct {
	Target string
	Line   int
	Image  bool
}

var markdown = goldmark.New()

// ExtractLinks returns every inline link and image destination in src, with
// the 1-based line the link text starts on.
func ExtractLinks(src []byte) []Link {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var links []Link
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			links = append(links, Link{Target: string(node.Destination), Line: lineOf(node, src)})
		case *ast.Image:
			links = append(links, Link{Target: string(node.Destination), Line: lineOf(node, src), Image: true})
		}
		return ast.WalkContinue, nil
	})
	return links
}

// lineOf returns the line of the first text segment under n. Links with no
// text fall back to the first line of the enclosing block.
func lineOf(n ast.Node, src []byte) int {
	offset := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			offset = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if offset < 0 {
		for p := n; p != nil; p = p.Parent() {
			if p.Type() != ast.TypeBlock {
				continue
			}
			if lines := p.Lines(); lines != nil && lines.Len() > 0 {
				offset = lines.At(0).Start
				break
			}
		}
	}
	if offset < 0 {
		return 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.Count(src[:offset], []byte("\n")) + 1
}

// LocalTarget converts a link destination into a relative file path, or
// returns ok=false for destinations that do not name a local file: URLs with
// a scheme, protocol-relative and root-absolute paths, and pure anchors.
func LocalTarget(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	if u, err := url.Parse(dest); err == nil && u.Scheme != "" {
		return "", false
	}
	if i := strings.IndexAny(dest, "?#"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return "", false
	}
	if decoded, err := url.PathUnescape(dest); err == nil {
		dest = decoded
	}
	return dest, true
}
