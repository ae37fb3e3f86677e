package convert

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// excelToMarkdown writes one table per sheet. The first row is the header;
// blank rows are dropped.
func excelToMarkdown(in string, w io.Writer) error {
	f, err := excelize.OpenFile(in)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		fmt.Fprintf(w, "## %s\n\n", sheet)
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			fmt.Fprint(w, "*Empty sheet*\n\n")
			continue
		}

		width := 0
		for _, r := range rows {
			width = max(width, len(r))
		}
		writeRow(w, rows[0], width)
		fmt.Fprintf(w, "|%s\n", strings.Repeat(" --- |", width))
		for _, r := range rows[1:] {
			if blank(r) {
				continue
			}
			writeRow(w, r, width)
		}
		fmt.Fprintln(w)
	}
	return nil
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func writeRow(w io.Writer, cells []string, width int) {
	out := make([]string, width)
	for i := range out {
		if i < len(cells) {
			out[i] = cellEscaper.Replace(cells[i])
		}
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(out, " | "))
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

const (
	nsDrawing = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresent = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// pptxToMarkdown writes each slide's shape text under a "## Slide N" heading.
func pptxToMarkdown(in string, w io.Writer) error {
	zr, err := zip.OpenReader(in)
	if err != nil {
		return fmt.Errorf("PowerPoint conversion failed: %w", err)
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideName.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n, f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	for i, s := range slides {
		shapes, err := slideText(s.f)
		if err != nil {
			return fmt.Errorf("PowerPoint conversion failed: %s: %w", path.Base(s.f.Name), err)
		}
		fmt.Fprintf(w, "## Slide %d\n\n", i+1)
		for _, text := range shapes {
			fmt.Fprintf(w, "%s\n\n", text)
		}
		fmt.Fprint(w, "---\n\n")
	}
	return nil
}

// slideText returns the text of each shape on a slide, paragraphs joined by
// newlines. Shapes without text are omitted.
func slideText(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		shapes []string
		paras  []string
		para   strings.Builder
		depth  int
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsPresent && t.Name.Local == "sp":
				depth++
				if depth == 1 {
					paras = paras[:0]
				}
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				para.Reset()
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				inText = true
			case t.Name.Space == nsDrawing && t.Name.Local == "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				inText = false
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				if depth > 0 {
					paras = append(paras, para.String())
				}
			case t.Name.Space == nsPresent && t.Name.Local == "sp":
				depth--
				if depth == 0 {
					if text := strings.TrimSpace(strings.Join(paras, "\n")); text != "" {
						shapes = append(shapes, text)
					}
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return shapes, nil
}

// htmlToMarkdown renders headings, paragraphs and list items as Markdown
// text. Loose text under containers such as div or body becomes its own
// paragraph. Script and style content is dropped.
func htmlToMarkdown(in string, w io.Writer) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Errorf("HTML conversion failed: %w", err)
	}

	var blocks []string
	var loose strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(loose.String()), " "); text != "" {
			blocks = append(blocks, text)
		}
		loose.Reset()
	}
	add := func(prefix string, n *html.Node) {
		flush()
		if text := inlineText(n); text != "" {
			blocks = append(blocks, prefix+text)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			loose.WriteString(n.Data)
			loose.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Noscript, atom.Template:
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				add(strings.Repeat("#", int(n.Data[1]-'0'))+" ", n)
				return
			case atom.P, atom.Pre, atom.Blockquote, atom.Td, atom.Th:
				add("", n)
				return
			case atom.Li:
				add("- ", n)
				return
			case atom.Body, atom.Div, atom.Section, atom.Article, atom.Main,
				atom.Header, atom.Footer, atom.Nav, atom.Aside, atom.Table,
				atom.Tr, atom.Ul, atom.Ol, atom.Dl, atom.Dt, atom.Dd,
				atom.Figure, atom.Form, atom.Br, atom.Hr:
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	for _, b := range blocks {
		fmt.Fprintf(w, "%s\n\n", b)
	}
	return nil
}

// inlineText collapses the text under n into one line.
func inlineText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
