package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"agileskills/internal/gitrepo"
	"agileskills/internal/packager"

	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildOutput  string
	buildList    bool
	buildPublish bool
)

// buildCmd packages the skills for distribution
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Package the repository and each skill into zip archives",
	Long: `Builds distribution archives from git-tracked files only:
  - <dist>/<prefix>-<version>.zip  the full repository, for CLI installs
  - <dist>/skills/<name>.zip        one archive per skill, for desktop upload
  - <dist>/manifest.json            build id, version, sizes and checksums

Uncommitted changes are not packaged; a warning lists them.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildVersion, "version", "", "Version string (default: from git tags)")
	buildCmd.Flags().StringVar(&buildOutput, "output", "", "Output directory (default: dist.output_dir)")
	buildCmd.Flags().BoolVar(&buildList, "list", false, "List files that would be packaged without building")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "Upload the build to the configured bucket")
	rootCmd.AddCommand(buildCmd)
}

// errGitMissing is returned by build when git cannot be executed.
var errGitMissing = errors.New("git not found: building requires git on PATH")

func (a *app) packager(repo *gitrepo.Repo, outputFlag string) *packager.Packager {
	out := a.cfg.Dist.OutputDir
	if outputFlag != "" {
		out = outputFlag
	}
	var skillsPath string
	if rel, err := filepath.Rel(a.ws, a.skillsDir()); err == nil && !strings.HasPrefix(rel, "..") {
		skillsPath = filepath.ToSlash(rel)
	}
	return &packager.Packager{
		Git:           repo,
		Root:          a.ws,
		SkillsPath:    skillsPath,
		OutputDir:     a.path(out),
		ArchivePrefix: a.cfg.Dist.ArchivePrefix,
		Level:         a.cfg.Dist.CompressionLevel,
		Workers:       a.cfg.Dist.Workers,
		Logger:        a.log,
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()
	repo := gitrepo.New(a.ws, a.exec)
	if !repo.Available(ctx) {
		return errGitMissing
	}
	p := a.packager(repo, buildOutput)
	if buildList {
		return printPreview(ctx, out, p)
	}

	res, err := p.Build(ctx, packager.Options{
		Version:   buildVersion,
		OnChanges: func(changes []string) { printChanges(out, changes) },
	})
	if err != nil {
		return err
	}
	printBuild(out, a, p, res)

	if buildPublish {
		return publishBuild(ctx, out, a, res.Manifest, p.OutputDir)
	}
	return nil
}

func printPreview(ctx context.Context, out io.Writer, p *packager.Packager) error {
	pv, err := p.Preview(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Full distribution (%d files):\n", len(pv.Files))
	for _, f := range pv.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Individual skills to package for Claude Desktop (%d):\n", len(pv.Skills))
	for _, s := range pv.Skills {
		fmt.Fprintf(out, "  %s  (%d files)\n", s, pv.SkillFiles[s])
	}
	return nil
}

func printChanges(out io.Writer, changes []string) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintln(out, "Warning: uncommitted changes will NOT be included in the archives.")
	fmt.Fprintln(out, "Run 'git commit' first to include them:")
	fmt.Fprintln(out)
	for i, c := range changes {
		if i == packager.MaxListedChanges {
			fmt.Fprintf(out, "  ... and %d more\n", len(changes)-packager.MaxListedChanges)
			break
		}
		fmt.Fprintf(out, "  %s\n", c)
	}
	fmt.Fprintln(out)
}

func printBuild(out io.Writer, a *app, p *packager.Packager, res *packager.Result) {
	fmt.Fprintf(out, "Full distribution:  %s  (%s)\n", a.rel(res.Full.AbsPath), packager.FormatSize(res.Full.Size))

	fmt.Fprintf(out, "\nClaude Desktop skills (%d):\n", len(res.Skills))
	for _, s := range res.Skills {
		if s.Skipped {
			fmt.Fprintf(out, "  Warning: no tracked files found for skill '%s', skipping\n", s.Name)
			continue
		}
		fmt.Fprintf(out, "  %s  (%s)\n", a.rel(s.AbsPath), packager.FormatSize(s.Size))
	}
	fmt.Fprintf(out, "\nManifest: %s (build %s)\n", a.rel(res.ManifestPath), res.Manifest.BuildID)

	full := filepath.Base(res.Full.AbsPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Install instructions ---")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Code (Linux/Mac):")
	fmt.Fprintf(out, "  unzip %s -d claude-code-skills && cd claude-code-skills && bash install.sh\n", full)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Code (Windows):")
	fmt.Fprintf(out, "  Expand-Archive %s -DestinationPath claude-code-skills\n", full)
	fmt.Fprintln(out, `  cd claude-code-skills && .\install.ps1`)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Desktop:")
	fmt.Fprintln(out, "  Settings > Capabilities > Skills > Upload ZIP")
	fmt.Fprintf(out, "  Upload individual skill zips from: %s/\n", a.rel(p.SkillsDir()))
}
