// Package packager builds the distributable archives: one full zip of the
// repository for CLI installs and one zip per skill for desktop upload.
package packager

import (
	"archive/zip"
	"compress/flate"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"agileskills/internal/logging"
	"agileskills/internal/skill"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultArchivePrefix names the full distribution zip.
const DefaultArchivePrefix = "claude-code-skills"

// SkillsPrefix is the default tracked-path prefix under which skills live.
const SkillsPrefix = "skills/"

// SlowBuild is the duration past which a build is logged as slow.
const SlowBuild = time.Minute

// MaxListedChanges caps the uncommitted changes echoed in a build warning.
const MaxListedChanges = 20

// Git is the subset of git the packager relies on.
type Git interface {
	Version(ctx context.Context) string
	LsFiles(ctx context.Context, path string) ([]string, error)
	Status(ctx context.Context) ([]string, error)
	Archive(ctx context.Context, out string) error
}

// Packager builds archives from the tracked files of a repository.
type Packager struct {
	Git  Git
	Root string
	// SkillsPath is the slash-separated tracked path of the skills
	// directory; empty means SkillsPrefix.
	SkillsPath string
	// OutputDir receives the archives; skill zips go to OutputDir/skills.
	OutputDir     string
	ArchivePrefix string
	// Level is the deflate level for skill zips (-1..9).
	Level   int
	Workers int
	Logger  *zap.Logger
}

// Archive describes one built zip.
type Archive struct {
	Name string `json:"name"`
	// Path is relative to the output directory, slash separated.
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	SHA256  string `json:"sha256"`
	Files   int    `json:"files,omitempty"`
	Skipped bool   `json:"-"`

	AbsPath string `json:"-"`
}

// Result is the outcome of a full build.
type Result struct {
	Manifest     *Manifest
	ManifestPath string
	Full         Archive
	Skills       []Archive
	// Changes are uncommitted changes that were not packaged.
	Changes []string
}

// Options tune a build.
type Options struct {
	// Version overrides the git-derived version.
	Version string
	// OnChanges receives uncommitted changes before anything is built.
	OnChanges func(changes []string)
}

func (p *Packager) logger() *zap.Logger {
	return logging.Named(p.Logger, logging.CategoryBuild)
}

func (p *Packager) prefix() string {
	if p.ArchivePrefix == "" {
		return DefaultArchivePrefix
	}
	return p.ArchivePrefix
}

// SkillsDir is where per-skill archives are written.
func (p *Packager) SkillsDir() string {
	return filepath.Join(p.OutputDir, "skills")
}

func (p *Packager) skillsPrefix() string {
	prefix := strings.Trim(filepath.ToSlash(p.SkillsPath), "/")
	if prefix == "" || prefix == "." {
		return SkillsPrefix
	}
	return prefix + "/"
}

// DiscoverSkills returns skill names from tracked paths of the form
// <prefix><name>/SKILL.md, unique and sorted.
func DiscoverSkills(prefix string, files []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range files {
		rest, ok := strings.CutPrefix(filepath.ToSlash(f), prefix)
		if !ok {
			continue
		}
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] == skill.FileName && !seen[parts[0]] {
			seen[parts[0]] = true
			names = append(names, parts[0])
		}
	}
	sort.Strings(names)
	return names
}

// Skills lists the tracked skills.
func (p *Packager) Skills(ctx context.Context) ([]string, error) {
	prefix := p.skillsPrefix()
	files, err := p.Git.LsFiles(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return DiscoverSkills(prefix, files), nil
}

// BuildFull writes the full distribution zip via git archive.
func (p *Packager) BuildFull(ctx context.Context, version string) (Archive, error) {
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return Archive{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.zip", p.prefix(), version)
	out := filepath.Join(p.OutputDir, name)
	if err := p.Git.Archive(ctx, out); err != nil {
		return Archive{}, err
	}
	a := Archive{Name: p.prefix(), Path: name, AbsPath: out}
	if err := a.fill(); err != nil {
		return Archive{}, err
	}
	return a, nil
}

// BuildSkill writes OutputDir/skills/<name>.zip with the skill folder at the
// zip root. A skill with no tracked files is skipped with a warning.
func (p *Packager) BuildSkill(ctx context.Context, name string) (Archive, error) {
	dir := p.SkillsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Archive{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	out := filepath.Join(dir, name+".zip")
	a := Archive{Name: name, Path: path.Join("skills", name+".zip"), AbsPath: out}

	srcPrefix := p.skillsPrefix() + name + "/"
	tracked, err := p.Git.LsFiles(ctx, srcPrefix)
	if err != nil {
		return Archive{}, err
	}
	if len(tracked) == 0 {
		p.logger().Warn("no tracked files found for skill, skipping", zap.String("skill", name))
		a.Skipped = true
		return a, nil
	}

	if err := p.writeZip(out, name, srcPrefix, tracked); err != nil {
		return Archive{}, fmt.Errorf("failed to build %s: %w", name, err)
	}
	a.Files = len(tracked)
	if err := a.fill(); err != nil {
		return Archive{}, err
	}
	p.logger().Debug("built skill archive", zap.String("skill", name), zap.Int64("size", a.Size))
	return a, nil
}

func (p *Packager) writeZip(out, name, srcPrefix string, tracked []string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), "."+name+"-*.zip")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	level := p.Level
	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for _, gitPath := range tracked {
		rel := strings.TrimPrefix(filepath.ToSlash(gitPath), srcPrefix)
		if err := addFile(zw, filepath.Join(p.Root, filepath.FromSlash(gitPath)), name+"/"+rel); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), out)
}

func addFile(zw *zip.Writer, src, arcname string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = arcname
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Build runs a complete build: version, full archive, every skill archive
// concurrently, then the manifest.
func (p *Packager) Build(ctx context.Context, opts Options) (*Result, error) {
	timer := logging.StartTimer(p.logger(), "build")
	defer timer.StopWithThreshold(SlowBuild)

	res := &Result{}
	changes, err := p.Git.Status(ctx)
	if err != nil {
		p.logger().Warn("could not check for uncommitted changes", zap.Error(err))
	}
	res.Changes = changes
	if opts.OnChanges != nil && len(changes) > 0 {
		opts.OnChanges(changes)
	}

	version := opts.Version
	if version == "" {
		version = p.Git.Version(ctx)
	}

	full, err := p.BuildFull(ctx, version)
	if err != nil {
		return nil, err
	}
	res.Full = full

	names, err := p.Skills(ctx)
	if err != nil {
		return nil, err
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}
	archives := make([]Archive, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			a, err := p.BuildSkill(gctx, name)
			if err != nil {
				return err
			}
			archives[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Skills = archives

	m := NewManifest(version, time.Now())
	m.Archives = append(m.Archives, full)
	for _, a := range archives {
		if !a.Skipped {
			m.Archives = append(m.Archives, a)
		}
	}
	res.Manifest = m
	res.ManifestPath = filepath.Join(p.OutputDir, ManifestName)
	if err := m.Write(res.ManifestPath); err != nil {
		return nil, err
	}

	p.logger().Info("build complete",
		zap.String("version", version),
		zap.String("build_id", m.BuildID),
		zap.Int("skills", len(names)))
	return res, nil
}

// Preview lists what a build would package.
type Preview struct {
	Files      []string
	SkillFiles map[string]int
	Skills     []string
}

// Preview returns the tracked files and per-skill file counts.
func (p *Packager) Preview(ctx context.Context) (*Preview, error) {
	files, err := p.Git.LsFiles(ctx, "")
	if err != nil {
		return nil, err
	}
	names, err := p.Skills(ctx)
	if err != nil {
		return nil, err
	}
	pv := &Preview{Files: files, Skills: names, SkillFiles: make(map[string]int, len(names))}
	for _, name := range names {
		sf, err := p.Git.LsFiles(ctx, p.skillsPrefix()+name+"/")
		if err != nil {
			return nil, err
		}
		pv.SkillFiles[name] = len(sf)
	}
	return pv, nil
}

// FormatSize renders a byte count as whole KB below 1024 KB, else MB with
// one decimal.
func FormatSize(size int64) string {
	kb := size / 1024
	if kb < 1024 {
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%.1f MB", float64(kb)/1024)
}

// fill stats and hashes the archive file.
func (a *Archive) fill() error {
	f, err := os.Open(a.AbsPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("failed to hash archive: %w", err)
	}
	a.Size = n
	a.SHA256 = hex.EncodeToString(h.Sum(nil))
	return nil
}

func newBuildID() string {
	return uuid.NewString()
}
