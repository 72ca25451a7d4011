// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Command galaxydl mirrors GOG Galaxy CDN content: it authenticates
// against the content platform, resolves V1/V2 build manifests, and
// downloads or validates a product's depot content into a local
// MirrorTree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/galaxy-archive/galaxydl/internal/config"
	"github.com/galaxy-archive/galaxydl/internal/credprovider"
	"github.com/galaxy-archive/galaxydl/internal/oauthgog"
	"github.com/galaxy-archive/galaxydl/pkg/contentsystem"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/galaxy-archive/galaxydl/pkg/validator"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var credPath string

var rootCmd = &cobra.Command{
	Use:   "galaxydl",
	Short: "Mirror and validate GOG Galaxy CDN build content",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

// newClient builds an authenticated content-system client from the
// on-disk credential file, which a prior `login` run must have created.
func newClient() (*contentsystem.Client, error) {
	cred, err := credprovider.NewFileProvider(credPath, oauthgog.Refresher{})
	if err != nil {
		return nil, errors.Wrap(err, "loading credentials (run 'galaxydl login' first)")
	}
	sess := transport.New(transport.WithCredentialProvider(cred))
	return contentsystem.New(sess), nil
}

var loginCmd = &cobra.Command{
	Use:   "login <authorization-code>",
	Short: "Exchange an OAuth2 authorization code for a stored access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := oauthgog.ExchangeCode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := credprovider.WriteInitialToken(credPath, tok, loginTimeNow()); err != nil {
			return errors.Wrap(err, "saving credentials")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "authenticated; credentials saved to", credPath)
		return nil
	},
}

var infoPlatform string

var infoCmd = &cobra.Command{
	Use:   "info <product-id>",
	Short: "Show product title and recent builds for a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		productID := args[0]
		out := cmd.OutOrStdout()
		if pi, err := c.ProductInfo(cmd.Context(), productID); err == nil {
			fmt.Fprintf(out, "%s (%s)\n", pi.Title, pi.ID)
		}
		builds, err := c.ListAllBuilds(cmd.Context(), productID, infoPlatform, contentsystem.ListAllBuildsOptions{IncludeDelisted: true})
		if err != nil {
			return errors.Wrap(err, "listing builds")
		}
		fmt.Fprintf(out, "\nBuilds (%s): %d\n", infoPlatform, len(builds))
		for i, b := range builds {
			if i >= 10 {
				fmt.Fprintf(out, "  ... and %d more\n", len(builds)-10)
				break
			}
			fmt.Fprintf(out, "  %d. build %s (gen %d, published %s)\n", i+1, b.BuildID, b.Generation, b.DatePublished)
		}
		return nil
	},
}

var (
	archiveOutDir     string
	archivePlatform   string
	archiveGeneration int
)

var archiveCmd = &cobra.Command{
	Use:   "archive <product-id> <build-identifier>",
	Short: "Download a build's manifests and chunks into a local mirror tree",
	Long: `Download a build's manifests and chunks into a local mirror tree.

build-identifier is a V2 depot hash (as returned by 'info') when
--generation=2 (the default), or a V1 repository timestamp when
--generation=1.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sess := transport.New()
		if cred, err := credprovider.NewFileProvider(credPath, oauthgog.Refresher{}); err == nil {
			sess = transport.New(transport.WithCredentialProvider(cred))
		}
		tree := mirror.NewTree(osfs.New(archiveOutDir))
		arc := mirror.NewArchiver(sess, c, tree)
		stats, err := arc.ArchiveBuild(cmd.Context(), args[0], args[1], archivePlatform, archiveGeneration)
		if err != nil {
			return errors.Wrap(err, "archiving build")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %d chunk(s), skipped %d, failed %d\n", stats.Downloaded, stats.Skipped, stats.Failed)
		if stats.Failed > 0 {
			return errors.Errorf("%d chunk(s) failed to download", stats.Failed)
		}
		return nil
	},
}

var listItemsPlatform string

var listItemsCmd = &cobra.Command{
	Use:   "list-items <product-id> <manifest-hash>",
	Short: "List a V2 depot manifest's files, sizes, and chunk counts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.GetManifest(cmd.Context(), args[0], listItemsPlatform, args[1], 2)
		if err != nil {
			return errors.Wrap(err, "fetching manifest")
		}
		m, err := manifest.ParseV2(raw)
		if err != nil {
			return errors.Wrap(err, "parsing manifest")
		}
		out := cmd.OutOrStdout()
		var totalCompressed, totalUncompressed int64
		idx := 0
		for _, f := range m.Files {
			idx++
			var compressed int64
			for _, c := range f.Chunks {
				compressed += c.CompressedSize
			}
			fmt.Fprintf(out, "%4d. %s\n", idx, f.Path)
			fmt.Fprintf(out, "      Size: %s bytes (uncompressed %s)\n", commaInt(compressed), commaInt(f.Size))
			fmt.Fprintf(out, "      Chunks: %d\n", len(f.Chunks))
			if f.MD5 != "" {
				fmt.Fprintf(out, "      MD5: %s\n", f.MD5)
			}
			totalCompressed += compressed
			totalUncompressed += f.Size
		}
		fmt.Fprintf(out, "\nTotal compressed size: %s bytes\n", commaInt(totalCompressed))
		fmt.Fprintf(out, "Total uncompressed size: %s bytes\n", commaInt(totalUncompressed))
		return nil
	},
}

var sizeReportPlatform string

var sizeReportCmd = &cobra.Command{
	Use:   "size-report <product-id> <manifest-hash>...",
	Short: "Total a build's compressed/uncompressed depot sizes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		productID := args[0]
		ids := args[1:]
		var manifests []*manifest.Manifest
		for _, id := range ids {
			raw, err := c.GetManifest(cmd.Context(), productID, sizeReportPlatform, id, 2)
			if err != nil {
				return errors.Wrapf(err, "fetching manifest %s", id)
			}
			m, err := manifest.ParseV2(raw)
			if err != nil {
				return errors.Wrapf(err, "parsing manifest %s", id)
			}
			manifests = append(manifests, m)
		}
		report := mirror.ComputeSizeReport(ids, manifests)
		out := cmd.OutOrStdout()
		for _, d := range report.Depots {
			fmt.Fprintf(out, "%s: %s compressed, %s uncompressed, %d chunks\n",
				d.ManifestID, commaInt(d.CompressedBytes), commaInt(d.UncompressedBytes), d.ChunkCount)
		}
		fmt.Fprintf(out, "\nTotal: %s compressed, %s uncompressed, %d chunks\n",
			commaInt(report.TotalCompressedBytes), commaInt(report.TotalUncompressedBytes), report.TotalChunks)
		return nil
	},
}

var (
	validateGeneration int
	validatePlatform   string
	validateTimestamp  string
	validateSampleRate float64
	validateSampleSeed int64
)

var validateCmd = &cobra.Command{
	Use:   "validate <mirror-dir> <product-id>",
	Short: "Sample-verify a downloaded build's files against its manifests",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree := mirror.NewTree(osfs.New(args[0]))
		opts := validator.SampleOptions{Seed: validateSampleSeed, Rate: validateSampleRate}
		var report validator.Report
		var err error
		if validateGeneration == 1 {
			report, err = validator.ValidateV1(tree, args[1], validatePlatform, validateTimestamp, opts)
		} else {
			return errors.New("validate for generation 2 requires --manifest-ids; use 'size-report' to inspect sizes or unpack via rgog for a full restore check")
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range report.Entries {
			if e.OK {
				continue
			}
			fmt.Fprintln(out, color.RedString("FAIL"), e.Path+":", e.Error)
		}
		fmt.Fprintf(out, "%d passed, %d failed\n", report.Passed, report.Failed)
		if report.Failed > 0 {
			return errors.Errorf("%d entries failed validation", report.Failed)
		}
		return nil
	},
}

func commaInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().StringVar(&credPath, "cred-file", credprovider.DefaultPath(config.AppName), "path to the stored credential file")

	infoCmd.Flags().StringVar(&infoPlatform, "platform", "windows", "platform to list builds for")

	archiveCmd.Flags().StringVarP(&archiveOutDir, "output", "o", "./mirror", "mirror tree output directory")
	archiveCmd.Flags().StringVar(&archivePlatform, "platform", "", "platform (V1 only; empty auto-detects windows/mac/linux)")
	archiveCmd.Flags().IntVar(&archiveGeneration, "generation", 2, "build generation, 1 or 2")

	listItemsCmd.Flags().StringVar(&listItemsPlatform, "platform", "", "platform, required for some V2 endpoints")

	sizeReportCmd.Flags().StringVar(&sizeReportPlatform, "platform", "", "platform, required for some V2 endpoints")

	validateCmd.Flags().IntVar(&validateGeneration, "generation", 1, "build generation to validate, 1 or 2")
	validateCmd.Flags().StringVar(&validatePlatform, "platform", "windows", "platform (V1 only)")
	validateCmd.Flags().StringVar(&validateTimestamp, "timestamp", "", "V1 repository timestamp")
	validateCmd.Flags().Float64Var(&validateSampleRate, "sample-rate", 1, "fraction of entries to sample, (0,1]")
	validateCmd.Flags().Int64Var(&validateSampleSeed, "sample-seed", 0, "seed for deterministic sampling")

	rootCmd.AddCommand(loginCmd, infoCmd, archiveCmd, listItemsCmd, sizeReportCmd, validateCmd)
}
