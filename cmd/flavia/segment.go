// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/pkg/types"
)

var segmentCmd = &cobra.Command{
	Use:   "segment [files...]",
	Short: "Split local papers into numbered sentences",
	Long: `Segment extracts the text of each file with the configured backend,
splits it into sentences, and prints them numbered from 0, the same
indices the web UI shows. Progress and a batch summary go to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().String("backend", "", "extraction backend: native, pdftotext, markitdown, or plain")
	segmentCmd.Flags().Bool("quiet", false, "print only the batch summary")

	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Segmenter.Backend = types.ExtractionBackend(backend)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	seg, err := segment.New(ctx, cfg.Segmenter, segment.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configuring segmenter: %w", err)
	}

	result := segment.SegmentFiles(ctx, seg, args, os.Stderr)

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		printSentences(cmd.OutOrStdout(), result)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed segmentation", result.Failed)
	}
	return nil
}

// printSentences writes each segmented file's sentences, one per line,
// prefixed with their index.
func printSentences(w io.Writer, result segment.BatchResult) {
	multi := len(result.Files) > 1
	for _, f := range result.Files {
		if f.Err != nil {
			continue
		}
		if multi {
			fmt.Fprintf(w, "== %s ==\n", f.Path)
		}
		for i, s := range f.Sentences {
			fmt.Fprintf(w, "%d\t%s\n", i, s)
		}
	}
}
