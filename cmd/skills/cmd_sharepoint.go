package main

import (
	"context"
	"fmt"
	"io"

	"agileskills/internal/logging"
	"agileskills/internal/sharepoint"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sharepointURL    string
	sharepointOutput string
)

// sharepointCmd reads SharePoint document libraries
var sharepointCmd = &cobra.Command{
	Use:   "sharepoint",
	Short: "List, download and inspect SharePoint documents via Microsoft Graph",
	Long: `Accesses SharePoint document libraries with the Azure CLI login
(az login --allow-no-subscriptions).

Examples:
  skills sharepoint list --url "https://company.sharepoint.com/sites/Team/Shared Documents/Specs"
  skills sharepoint download --url ".../Specs/requirements.docx" --output ./docs
  skills sharepoint metadata --url ".../Specs/requirements.docx"`,
}

var sharepointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the folder at --url",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSharePoint(cmd, func(ctx context.Context, s *sharepoint.Session) error {
			return s.List(ctx)
		})
	},
}

var sharepointDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the file at --url",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSharePoint(cmd, func(ctx context.Context, s *sharepoint.Session) error {
			_, err := s.Download(ctx, sharepointOutput)
			return err
		})
	},
}

var sharepointMetadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Show metadata for the item at --url",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSharePoint(cmd, func(ctx context.Context, s *sharepoint.Session) error {
			_, err := s.Metadata(ctx)
			return err
		})
	},
}

func init() {
	sharepointCmd.PersistentFlags().StringVar(&sharepointURL, "url", "", "SharePoint file or folder URL (required)")
	_ = sharepointCmd.MarkPersistentFlagRequired("url")
	sharepointDownloadCmd.Flags().StringVar(&sharepointOutput, "output", ".", "Output directory")

	sharepointCmd.AddCommand(sharepointListCmd)
	sharepointCmd.AddCommand(sharepointDownloadCmd)
	sharepointCmd.AddCommand(sharepointMetadataCmd)
	rootCmd.AddCommand(sharepointCmd)
}

// newTokenSource supplies Graph tokens; tests replace it.
var newTokenSource = func(ctx context.Context, a *app) (sharepoint.TokenSource, error) {
	src := &sharepoint.AzureCLITokenSource{Exec: a.exec, Resource: a.cfg.SharePoint.Resource}
	if err := src.Check(ctx); err != nil {
		return nil, err
	}
	return src, nil
}

func withSharePoint(cmd *cobra.Command, fn func(context.Context, *sharepoint.Session) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	out := cmd.OutOrStdout()

	loc, err := sharepoint.ParseURL(sharepointURL)
	if err != nil {
		return err
	}
	printLocation(out, loc)

	tokens, err := newTokenSource(ctx, a)
	if err != nil {
		return err
	}
	logging.Named(a.log, logging.CategorySharePoint).Debug("resolving site",
		zap.String("host", loc.Host), zap.String("site", loc.SitePath))

	client := sharepoint.NewClient(a.cfg.SharePoint.GraphBaseURL, tokens)
	s, err := sharepoint.Open(ctx, client, loc, out)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

func printLocation(out io.Writer, loc sharepoint.Location) {
	fmt.Fprintf(out, "Host: %s\n", loc.Host)
	fmt.Fprintf(out, "Site: %s\n", orDash(loc.SitePath))
	fmt.Fprintf(out, "Path: %s\n\n", orDash(loc.ItemPath))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
