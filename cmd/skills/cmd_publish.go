package main

import (
	"context"
	"fmt"
	"io"

	"agileskills/internal/packager"
	"agileskills/internal/publish"

	"github.com/spf13/cobra"
)

var publishDist string

// publishCmd uploads an existing build
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the last build to an S3-compatible bucket",
	Long: `Reads <dist>/manifest.json and uploads every archive plus the manifest
under <prefix>/<version>/ in the configured bucket.

Bucket settings come from the publish section of the config file or
SKILLS_S3_BUCKET, SKILLS_S3_ENDPOINT, SKILLS_S3_REGION and the AWS
credential environment.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishDist, "dist", "", "Dist directory holding manifest.json (default: dist.output_dir)")
	rootCmd.AddCommand(publishCmd)
}

// newS3 builds the bucket client; tests replace it.
var newS3 = func(ctx context.Context, a *app) (publish.S3API, error) {
	return publish.NewS3Client(ctx, a.cfg.Publish)
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	dist := a.cfg.Dist.OutputDir
	if publishDist != "" {
		dist = publishDist
	}
	dist = a.path(dist)
	m, err := packager.ReadManifest(dist)
	if err != nil {
		return fmt.Errorf("no build found (run 'skills build' first): %w", err)
	}
	return publishBuild(ctx, cmd.OutOrStdout(), a, m, dist)
}

func publishBuild(ctx context.Context, out io.Writer, a *app, m *packager.Manifest, dist string) error {
	if !a.cfg.PublishEnabled() {
		return publish.ErrNoBucket
	}
	client, err := newS3(ctx, a)
	if err != nil {
		return err
	}
	p, err := publish.New(client, a.cfg.Publish, a.log)
	if err != nil {
		return err
	}
	if err := p.EnsureBucket(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nPublishing %s to s3://%s/\n", m.Version, a.cfg.Publish.Bucket)
	keys, err := p.Upload(ctx, m, dist)
	for _, k := range keys {
		fmt.Fprintf(out, "  uploaded %s\n", k)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Published %d objects\n", len(keys))
	return nil
}
