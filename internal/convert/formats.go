// Package convert turns office documents, PDFs and HTML into Markdown,
// shelling out to pandoc where it is installed and falling back to native
// readers where one exists.
package convert

import (
	"path/filepath"
	"strings"
)

// Format is a supported input extension.
type Format struct {
	Ext         string
	Description string
}

// Formats lists the supported inputs in display order.
var Formats = []Format{
	{".docx", "Word Document"},
	{".doc", "Word Document (old format)"},
	{".pdf", "PDF Document"},
	{".xlsx", "Excel Spreadsheet"},
	{".xls", "Excel Spreadsheet (old format)"},
	{".pptx", "PowerPoint Presentation"},
	{".ppt", "PowerPoint Presentation (old format)"},
	{".odt", "OpenDocument Text"},
	{".rtf", "Rich Text Format"},
	{".html", "HTML Document"},
	{".htm", "HTML Document"},
}

type route int

const (
	routeNone route = iota
	routePandoc
	routeHTML
	routePDF
	routeExcel
	routePowerPoint
)

var routes = map[string]route{
	".docx": routePandoc,
	".doc":  routePandoc,
	".odt":  routePandoc,
	".rtf":  routePandoc,
	".html": routeHTML,
	".htm":  routeHTML,
	".pdf":  routePDF,
	".xlsx": routeExcel,
	".xls":  routeExcel,
	".pptx": routePowerPoint,
	".ppt":  routePowerPoint,
}

// Supported reports whether path has a convertible extension.
func Supported(path string) bool {
	return routes[strings.ToLower(filepath.Ext(path))] != routeNone
}

// Extensions returns the supported extensions, comma separated.
func Extensions() string {
	exts := make([]string, len(Formats))
	for i, f := range Formats {
		exts[i] = f.Ext
	}
	return strings.Join(exts, ", ")
}

// MarkdownPath replaces path's extension with .md.
func MarkdownPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
}
