// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/runstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs",
	Long: `Status lists recent retrieval runs with their article counts, and with
--run shows the per-article outcomes of one run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of runs to show")
	statusCmd.Flags().Int64("run", 0, "show per-article outcomes of one run id")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := runstore.Open(filepath.Join(viper.GetString("cache_dir"), "state"))
	if err != nil {
		return err
	}
	defer store.Close()

	if runID, _ := cmd.Flags().GetInt64("run"); runID > 0 {
		results, err := store.RunArticles(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Printf("no articles recorded for run %d\n", runID)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTIFIER\tTYPE\tSTATUS\tANALYSES\tPOINTS\tERROR")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.Identifier, r.IdentifierType, r.Status, r.Analyses, r.Points, r.Error)
		}
		return w.Flush()
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSUCCEEDED\tFAILED\tSKIPPED")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Succeeded, run.Failed, run.Skipped)
	}
	return w.Flush()
}
