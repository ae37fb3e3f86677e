package main

import (
	"fmt"

	"agileskills/internal/catalog"

	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveDist string
)

// serveCmd serves the built catalog over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built archives and skill catalog over HTTP",
	Long: `Serves a dist directory produced by 'skills build':
  GET /healthz              liveness
  GET /api/skills           manifest archives
  GET /api/skills/{name}    one skill with its front-matter
  GET /download/{name}.zip  the skill archive

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: serve.address)")
	serveCmd.Flags().StringVar(&serveDist, "dist", "", "Dist directory (default: dist.output_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	addr := a.cfg.Serve.Address
	if serveAddr != "" {
		addr = serveAddr
	}
	dist := a.cfg.Dist.OutputDir
	if serveDist != "" {
		dist = serveDist
	}

	srv := &catalog.Server{
		DistDir:         a.path(dist),
		SkillsDir:       a.skillsDir(),
		ShutdownTimeout: a.cfg.GetShutdownTimeout(),
		Logger:          a.log,
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", a.rel(srv.DistDir), addr)
	return srv.Serve(ctx, addr)
}
