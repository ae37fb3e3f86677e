package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stats counts folder conversion outcomes.
type Stats struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Total is the number of files attempted.
func (s Stats) Total() int { return s.Succeeded + s.Failed + s.Skipped }

// FindDocuments lists supported files in dir, descending when recursive.
func FindDocuments(dir string, recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && Supported(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ConvertFolder converts every supported document in in, writing Markdown
// under out. With recursive the relative layout is preserved; otherwise
// only in's own files are considered. Per-file failures are counted, not
// returned.
func (c *Converter) ConvertFolder(ctx context.Context, in, out string, recursive bool) (Stats, error) {
	var stats Stats
	info, err := os.Stat(in)
	if err != nil || !info.IsDir() {
		return stats, fmt.Errorf("folder not found: %s", in)
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return stats, err
	}

	files, err := FindDocuments(in, recursive)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		c.print("Warning: no supported documents found in %s\n", in)
		return stats, nil
	}

	c.info("\nConverting %d files from %s\n", len(files), in)
	c.info("Output to: %s\n\n", out)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(in, file)
			if err != nil {
				rel = filepath.Base(file)
			}
			target := filepath.Join(out, MarkdownPath(rel))

			status, err := c.ConvertFile(gctx, file, target)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				c.print("Failed: %s: %v\n", rel, err)
				c.logger().Warn("conversion failed", zap.String("file", file), zap.Error(err))
			case status == Skipped:
				stats.Skipped++
			default:
				stats.Succeeded++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}
