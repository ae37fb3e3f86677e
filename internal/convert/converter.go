package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"agileskills/internal/logging"
	"agileskills/internal/tactile"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned for extensions outside Formats.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrPandocMissing is returned when a format needs pandoc and it is absent.
	ErrPandocMissing = errors.New(`pandoc not installed. Install with:
   Linux:   sudo apt install pandoc
   macOS:   brew install pandoc
   Windows: https://pandoc.org/installing.html`)

	// ErrNoPDFTool is returned when neither pandoc nor pdftotext can read a PDF.
	ErrNoPDFTool = errors.New("neither pandoc nor pdftotext available\n   Install: sudo apt install poppler-utils")
)

// Status is the outcome of a single conversion.
type Status int

const (
	Converted Status = iota
	Skipped
)

// Converter converts documents to Markdown.
type Converter struct {
	Exec     tactile.Executor
	LookPath tactile.LookPathFunc

	Overwrite      bool
	ExtractImages  bool
	DeleteOriginal bool
	Quiet          bool

	Out     io.Writer
	Logger  *zap.Logger
	Workers int

	outMu      sync.Mutex
	pandocOnce sync.Once
	pandocOK   bool
}

// New returns a converter writing progress to out.
func New(exec tactile.Executor, lookPath tactile.LookPathFunc, out io.Writer, logger *zap.Logger) *Converter {
	return &Converter{
		Exec:     exec,
		LookPath: lookPath,
		Out:      out,
		Logger:   logging.Named(logger, logging.CategoryConvert),
		Workers:  4,
	}
}

// info prints progress unless quiet.
func (c *Converter) info(format string, args ...any) {
	if c.Quiet {
		return
	}
	c.print(format, args...)
}

// print always prints; used for errors and warnings.
func (c *Converter) print(format string, args ...any) {
	if c.Out == nil {
		return
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Converter) logger() *zap.Logger {
	return logging.OrNop(c.Logger)
}

// PandocAvailable reports whether `pandoc --version` runs. The probe runs once.
func (c *Converter) PandocAvailable(ctx context.Context) bool {
	c.pandocOnce.Do(func() {
		res, err := c.Exec.Execute(ctx, tactile.Command{Binary: "pandoc", Arguments: []string{"--version"}})
		c.pandocOK = err == nil && res.Ok()
		c.logger().Debug("pandoc probe", zap.Bool("available", c.pandocOK))
	})
	return c.pandocOK
}

// ConvertFile converts in to out. An empty out means next to in; out always
// gets a .md extension. An existing output is skipped unless Overwrite.
func (c *Converter) ConvertFile(ctx context.Context, in, out string) (Status, error) {
	if _, err := os.Stat(in); err != nil {
		return Converted, fmt.Errorf("file not found: %s", in)
	}
	ext := strings.ToLower(filepath.Ext(in))
	r := routes[ext]
	if r == routeNone {
		return Converted, fmt.Errorf("%w: %s (%s)\n   Supported: %s", ErrUnsupportedFormat, ext, filepath.Base(in), Extensions())
	}

	if out == "" || filepath.Ext(out) != ".md" {
		if out == "" {
			out = in
		}
		out = MarkdownPath(out)
	}
	if _, err := os.Stat(out); err == nil && !c.Overwrite {
		c.info("Skipping (already exists): %s\n", filepath.Base(out))
		return Skipped, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return Converted, err
	}

	c.info("Converting: %s -> %s\n", filepath.Base(in), filepath.Base(out))
	timer := logging.StartTimer(c.logger(), "convert "+filepath.Base(in))

	var err error
	switch r {
	case routePandoc:
		err = c.pandoc(ctx, in, out)
	case routeHTML:
		err = c.convertHTML(ctx, in, out)
	case routePDF:
		err = c.convertPDF(ctx, in, out)
	case routeExcel:
		err = c.convertExcel(in, out)
	case routePowerPoint:
		err = c.convertPowerPoint(ctx, in, out)
	}
	timer.Stop()
	if err != nil {
		return Converted, err
	}

	c.info("Converted: %s\n", filepath.Base(out))
	if c.DeleteOriginal {
		if err := os.Remove(in); err != nil {
			return Converted, fmt.Errorf("converted but could not delete original: %w", err)
		}
		c.info("Deleted original: %s\n", filepath.Base(in))
	}
	return Converted, nil
}

// PandocArgs is the pandoc command line for in -> out.
func (c *Converter) PandocArgs(in, out string) []string {
	args := []string{in, "-t", "markdown", "-o", out}
	if c.ExtractImages {
		args = append(args, "--extract-media", filepath.Join(filepath.Dir(out), "images"))
	}
	return append(args, "--wrap=none", "--markdown-headings=atx")
}

func (c *Converter) pandoc(ctx context.Context, in, out string) error {
	if !c.PandocAvailable(ctx) {
		return ErrPandocMissing
	}
	if c.ExtractImages {
		if err := os.MkdirAll(filepath.Join(filepath.Dir(out), "images"), 0755); err != nil {
			return err
		}
	}
	if _, err := tactile.Run(ctx, c.Exec, tactile.Command{Binary: "pandoc", Arguments: c.PandocArgs(in, out)}); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return nil
}

// withFallback tries pandoc and, when it is missing or fails, the native
// converter.
func (c *Converter) withFallback(ctx context.Context, in, out string, native func() error) error {
	if c.PandocAvailable(ctx) {
		err := c.pandoc(ctx, in, out)
		if err == nil {
			return nil
		}
		c.logger().Debug("pandoc failed, using fallback", zap.String("file", in), zap.Error(err))
	} else {
		c.info("   Pandoc not available, using built-in reader...\n")
	}
	return native()
}

func (c *Converter) convertHTML(ctx context.Context, in, out string) error {
	return c.withFallback(ctx, in, out, func() error {
		return writeNative(in, out, "HTML", htmlToMarkdown)
	})
}

func (c *Converter) convertPowerPoint(ctx context.Context, in, out string) error {
	return c.withFallback(ctx, in, out, func() error {
		if strings.ToLower(filepath.Ext(in)) == ".ppt" {
			return fmt.Errorf("%w: .ppt needs pandoc; save the file as .pptx", ErrPandocMissing)
		}
		return writeNative(in, out, "PowerPoint", pptxToMarkdown)
	})
}

func (c *Converter) convertExcel(in, out string) error {
	if strings.ToLower(filepath.Ext(in)) == ".xls" {
		return errors.New("Excel conversion failed: .xls is not supported; save the file as .xlsx")
	}
	if err := writeNative(in, out, "Excel", excelToMarkdown); err != nil {
		return fmt.Errorf("Excel conversion failed: %w", err)
	}
	return nil
}

func (c *Converter) convertPDF(ctx context.Context, in, out string) error {
	return c.withFallback(ctx, in, out, func() error {
		if c.LookPath != nil {
			if _, err := c.LookPath("pdftotext"); err != nil {
				return ErrNoPDFTool
			}
		}
		res, err := c.Exec.Execute(ctx, tactile.Command{Binary: "pdftotext", Arguments: []string{in, "-"}})
		if errors.Is(err, tactile.ErrBinaryNotFound) {
			return ErrNoPDFTool
		}
		if err != nil {
			return err
		}
		if !res.Ok() {
			return fmt.Errorf("PDF extraction failed: %s", res.Failure())
		}
		var buf bytes.Buffer
		writeHeader(&buf, in, "PDF - formatting may be limited")
		buf.WriteString(res.Stdout)
		return os.WriteFile(out, buf.Bytes(), 0644)
	})
}

// writeHeader writes the title block every native conversion starts with.
func writeHeader(w io.Writer, in, kind string) {
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	fmt.Fprintf(w, "# %s\n\n*Converted from %s*\n\n---\n\n", stem, kind)
}

func writeNative(in, out, kind string, render func(in string, w io.Writer) error) error {
	var buf bytes.Buffer
	writeHeader(&buf, in, kind)
	if err := render(in, &buf); err != nil {
		return err
	}
	return os.WriteFile(out, buf.Bytes(), 0644)
}
