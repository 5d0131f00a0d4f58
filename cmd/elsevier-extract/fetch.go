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

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download full-text article XML by DOI or PubMed ID",
	Long: `Fetch retrieves full-text article XML from the Elsevier content API and
writes one directory per article (raw XML, retrieval metadata, plain text).
Responses are cached, so re-running a batch never re-downloads articles.
Table and coordinate extraction is left to the extract command.`,
	RunE: runFetch,
}

func init() {
	addInputFlags(fetchCmd)
	fetchCmd.Flags().Bool("fail-fast", false, "stop the batch on the first failure")
	fetchCmd.Flags().Bool("skip-text", false, "do not render text.txt")

	rootCmd.AddCommand(fetchCmd)
}

// addInputFlags registers the identifier source flags shared by fetch and
// extract.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("dois", "", "comma-separated DOIs")
	cmd.Flags().String("pmids", "", "comma-separated PubMed IDs")
	cmd.Flags().String("doi-file", "", "file with one DOI per line")
	cmd.Flags().String("pmid-file", "", "file with one PubMed ID per line")
	cmd.Flags().String("records", "", "record file (.jsonl, .yaml or .yml)")
	cmd.Flags().String("output-dir", "", "base directory for article outputs")
}

func runFetch(cmd *cobra.Command, args []string) error {
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
	settings.Fetch.FailFast, _ = cmd.Flags().GetBool("fail-fast")
	settings.Output.SkipText, _ = cmd.Flags().GetBool("skip-text")
	settings.Output.SkipTables = true
	settings.Output.SkipCoordinates = true

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
