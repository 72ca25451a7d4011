// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Command rgog packs, inspects, and restores RGOG archives: the
// project's content-addressed binary bundling of a mirrored build
// tree's product, build, manifest, and chunk data into one or more
// self-describing, deterministic parts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/galaxy-archive/galaxydl/pkg/rgog"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rgog",
	Short: "Pack, inspect, and restore RGOG archives",
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

var packMaxPartMiB int64

var packCmd = &cobra.Command{
	Use:   "pack <mirror-dir> <out-dir> <stem>",
	Short: "Scan a mirror tree's V2 builds and pack them into an RGOG archive",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree := mirror.NewTree(osfs.New(args[0]))
		products, builds, warnings, err := rgog.Scan(tree)
		if err != nil {
			return errors.Wrap(err, "scanning mirror tree")
		}
		for _, w := range warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("warning:"), w)
		}
		if len(builds) == 0 {
			return errors.Errorf("no V2 builds found under %s", args[0])
		}
		opts := rgog.Options{MaxPartBytes: packMaxPartMiB << 20}
		paths, err := rgog.Pack(cmd.Context(), args[1], args[2], products, builds, opts)
		if err != nil {
			return errors.Wrap(err, "packing archive")
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive-part> <mirror-out-dir>",
	Short: "Restore an RGOG archive's content into a v2/ mirror tree layout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := mirror.NewTree(osfs.New(args[1]))
		stats, err := rgog.Unpack(cmd.Context(), args[0], target, rgog.VerifyOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d build(s), %d manifest(s), %d chunk(s)\n", stats.Builds, stats.Manifests, stats.Chunks)
		return nil
	},
}

var (
	listDetailed bool
	listBuildID  uint64
)

var listCmd = &cobra.Command{
	Use:   "list <archive-part>",
	Short: "List an RGOG archive's products and builds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		info, err := rgog.Info(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "RGOG Archive: %s\n\nArchive Info:\n", args[0])
		fmt.Fprintf(out, "  Parts: %d\n  Builds: %d\n  Chunks: %d\n", info.TotalParts, info.TotalBuilds, info.TotalChunks)
		for _, p := range info.Products {
			fmt.Fprintf(out, "\nProduct:\n  ID: %d\n  Name: %s\n", p.ProductID, p.Name)
		}

		var filter *uint64
		if cmd.Flags().Changed("build") {
			filter = &listBuildID
		}
		details, err := rgog.List(cmd.Context(), args[0], filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nBuilds:")
		for _, b := range details {
			fmt.Fprintf(out, "  Build %d:\n    OS: %s\n", b.BuildID, rgog.OSName(b.OS))
			if listDetailed {
				fmt.Fprintf(out, "    Repository: %s (%d bytes)\n", b.RepositoryID, b.RepositorySize)
				fmt.Fprintf(out, "    Manifests: %d\n", len(b.Manifests))
				for i, m := range b.Manifests {
					langInfo := "no languages"
					if len(m.Languages) > 0 {
						langInfo = strings.Join(m.Languages, ", ")
					}
					fmt.Fprintf(out, "      %d. Depot %s (%d bytes, %s)\n", i+1, m.DepotID, m.Size, langInfo)
				}
			} else {
				fmt.Fprintf(out, "    Manifests: %d\n", len(b.Manifests))
			}
		}
		return nil
	},
}

var (
	extractOutDir     string
	extractBuildID    uint64
	extractChunksOnly bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive-part>",
	Short: "Extract an archive's build files and chunks as loose, content-addressed files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rgog.ExtractOptions{ChunksOnly: extractChunksOnly}
		if cmd.Flags().Changed("build") {
			opts.FilterBuildID = &extractBuildID
		}
		stats, err := rgog.Extract(cmd.Context(), args[0], extractOutDir, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "extracted %d build file(s), %d chunk(s) to %s\n", stats.BuildFiles, stats.Chunks, extractOutDir)
		return nil
	},
}

var (
	verifyBuildID  uint64
	verifyQuick    bool
	verifyDetailed bool
	verifyFull     bool
	verifyThreads  int
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive-part>",
	Short: "Verify an RGOG archive's recorded hashes against its stored bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rgog.VerifyOptions{Quick: verifyQuick && !verifyFull, Full: verifyFull, Threads: verifyThreads}
		if cmd.Flags().Changed("build") {
			opts.BuildID = &verifyBuildID
		}
		report, err := rgog.Verify(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range report.Checks {
			if !verifyDetailed && c.OK {
				continue
			}
			label := fmt.Sprintf("%-10s %s", c.Kind, c.ID)
			if c.OK {
				fmt.Fprintln(out, color.GreenString("OK  "), label)
			} else {
				fmt.Fprintln(out, color.RedString("FAIL"), label+":", c.Error)
			}
		}
		fmt.Fprintf(out, "\n%d passed, %d failed\n", report.Passed, report.Failed)
		if report.Failed > 0 {
			return errors.Errorf("%d object(s) failed verification", report.Failed)
		}
		return nil
	},
}

var infoStats bool

var infoCmd = &cobra.Command{
	Use:   "info <archive-part>",
	Short: "Summarize an RGOG archive's parts, builds, and chunk totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := rgog.Info(cmd.Context(), args[0], infoStats)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Parts: %d\nBuilds: %d\nChunks: %d\n", info.TotalParts, info.TotalBuilds, info.TotalChunks)
		for _, p := range info.Products {
			fmt.Fprintf(out, "Product: %d (%s)\n", p.ProductID, p.Name)
		}
		for _, b := range info.Builds {
			fmt.Fprintf(out, "  Build %d: OS=%s repository=%s manifests=%d\n", b.BuildID, rgog.OSName(b.OS), b.RepositoryID, b.ManifestCount)
		}
		if infoStats {
			fmt.Fprintf(out, "Total chunk bytes: %d\n", info.TotalChunkBytes)
		}
		return nil
	},
}

func init() {
	packCmd.Flags().Int64Var(&packMaxPartMiB, "max-part-mib", 2048, "maximum bytes per output part, in MiB")

	listCmd.Flags().BoolVar(&listDetailed, "detailed", false, "show per-manifest detail (depot id, size, languages)")
	listCmd.Flags().Uint64Var(&listBuildID, "build", 0, "restrict listing to one build id")

	extractCmd.Flags().StringVarP(&extractOutDir, "output", "o", "./extracted", "output directory")
	extractCmd.Flags().Uint64Var(&extractBuildID, "build", 0, "restrict build-file extraction to one build id")
	extractCmd.Flags().BoolVar(&extractChunksOnly, "chunks-only", false, "extract chunk payloads only, skip build files")

	verifyCmd.Flags().Uint64Var(&verifyBuildID, "build", 0, "restrict repository/manifest checks to one build id")
	verifyCmd.Flags().BoolVar(&verifyQuick, "quick", false, "skip chunk payload hashing")
	verifyCmd.Flags().BoolVar(&verifyDetailed, "detailed", false, "print every check, not just failures")
	verifyCmd.Flags().BoolVar(&verifyFull, "full", false, "also inflate every chunk and check it against its manifest uncompressed_md5 (overrides --quick)")
	verifyCmd.Flags().IntVar(&verifyThreads, "threads", 0, "concurrent chunk-hashing workers (default 4)")

	infoCmd.Flags().BoolVar(&infoStats, "stats", false, "include total chunk payload bytes across all parts")

	rootCmd.AddCommand(packCmd, unpackCmd, listCmd, extractCmd, verifyCmd, infoCmd)
}
