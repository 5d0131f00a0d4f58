// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/inputs"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/outputs"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Retrieve articles and extract coordinate tables",
	Long: `Extract runs the full pipeline: download full-text article XML (served
from cache when already fetched), reconstruct tables, extract stereotactic
coordinate triples with an inferred reference frame, and write per-article
artifacts plus a combined studyset.json.`,
	RunE: runExtract,
}

func init() {
	addInputFlags(extractCmd)
	extractCmd.Flags().Bool("fail-fast", false, "stop the batch on the first failure")
	extractCmd.Flags().Int("workers", 0, "extraction worker pool size (default: one per CPU)")
	extractCmd.Flags().Bool("skip-xml", false, "do not write article.xml")
	extractCmd.Flags().Bool("skip-text", false, "do not render text.txt")
	extractCmd.Flags().Bool("skip-tables", false, "do not write table CSVs")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	records, err := inputs.Collect(recordSource(cmd.Flags()))
	if err != nil {
		return err
	}

	settings, err := buildSettings()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		settings.Output.Dir = dir
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		settings.Extraction.Workers = workers
	}
	settings.Fetch.FailFast, _ = cmd.Flags().GetBool("fail-fast")
	settings.Output.SkipXML, _ = cmd.Flags().GetBool("skip-xml")
	settings.Output.SkipText, _ = cmd.Flags().GetBool("skip-text")
	settings.Output.SkipTables, _ = cmd.Flags().GetBool("skip-tables")

	deps, cleanup, err := buildDeps(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	writer, err := outputs.NewWriter(settings.Output.Dir)
	if err != nil {
		return err
	}
	deps.Writer = writer
	deps.Progress = os.Stdout

	stats, err := pipeline.Run(cmd.Context(), records, deps)
	if err != nil {
		return err
	}
	if stats.HasFailures() {
		return fmt.Errorf("%d article(s) failed", stats.Failed)
	}
	return nil
}
