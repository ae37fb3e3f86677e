package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"agileskills/internal/convert"

	"github.com/spf13/cobra"
)

var (
	convertFile             string
	convertFolder           string
	convertOutput           string
	convertRecursive        bool
	convertOverwrite        bool
	convertExtractImages    bool
	convertDeleteOriginal   bool
	convertQuiet            bool
	convertSupportedFormats bool
)

// convertCmd converts documents to Markdown
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert Word, PDF, Excel, PowerPoint and HTML documents to Markdown",
	Long: `Converts documents with pandoc when installed, falling back to built-in
readers for HTML, PowerPoint (.pptx), Excel (.xlsx) and PDF (via pdftotext).

Examples:
  skills convert --file requirements.docx
  skills convert --folder ./docs/Reference/Original/ --output ./docs/Reference/
  skills convert --folder ./docs/ --output ./docs/Markdown/ --recursive`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertFile, "file", "", "Convert a single file")
	f.StringVar(&convertFolder, "folder", "", "Convert all files in a folder")
	f.StringVar(&convertOutput, "output", "", "Output file/folder (default: next to input, or <folder>/Markdown)")
	f.BoolVar(&convertRecursive, "recursive", false, "Recurse into subfolders (with --folder)")
	f.BoolVar(&convertOverwrite, "overwrite", false, "Overwrite existing .md files")
	f.BoolVar(&convertExtractImages, "extract-images", false, "Extract images to an images/ folder (pandoc)")
	f.BoolVar(&convertDeleteOriginal, "delete-original", false, "Delete the original after a successful conversion")
	f.BoolVar(&convertQuiet, "quiet", false, "Only print errors")
	f.BoolVar(&convertSupportedFormats, "supported-formats", false, "List supported formats and exit")
	convertCmd.MarkFlagsMutuallyExclusive("file", "folder")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if convertSupportedFormats {
		fmt.Fprintln(out, "Supported document formats:")
		for _, f := range convert.Formats {
			fmt.Fprintf(out, "  %-8s - %s\n", f.Ext, f.Description)
		}
		fmt.Fprintln(out, "\nRequired tools:")
		fmt.Fprintln(out, "  - pandoc (most formats)")
		fmt.Fprintln(out, "  - pdftotext (PDFs without pandoc)")
		return nil
	}
	if convertFile == "" && convertFolder == "" {
		return errors.New("one of --file or --folder is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	c := convert.New(a.exec, lookPath, out, a.log)
	c.Overwrite = convertOverwrite
	c.ExtractImages = convertExtractImages
	c.DeleteOriginal = convertDeleteOriginal
	c.Quiet = convertQuiet
	if a.cfg.Convert.Workers > 0 {
		c.Workers = a.cfg.Convert.Workers
	}

	if convertFile != "" {
		_, err := c.ConvertFile(ctx, convertFile, convertOutput)
		return err
	}

	output := convertOutput
	if output == "" {
		output = filepath.Join(convertFolder, "Markdown")
	}
	stats, err := c.ConvertFolder(ctx, convertFolder, output, convertRecursive)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSuccessfully converted: %d\n", stats.Succeeded)
	if stats.Skipped > 0 {
		fmt.Fprintf(out, "Skipped (already converted): %d\n", stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(out, "Failed: %d\n", stats.Failed)
		return fmt.Errorf("%d of %d conversions failed", stats.Failed, stats.Total())
	}
	return nil
}
