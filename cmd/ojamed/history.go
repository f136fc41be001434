// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ojamed/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversion attempts",
	Long: `History lists the most recent conversion attempts recorded in the local
history database (history_db setting), newest first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of attempts to list")
	historyCmd.Flags().Bool("json", false, "output attempts as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	if cfg.HistoryDB == "" {
		return fmt.Errorf("history is disabled: set history_db in ojamed.yaml or OJAMED_HISTORY_DB")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	attempts, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, attempts)
	}

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tFILE\tOUTCOME\tDURATION\tDETAIL")
	for _, a := range attempts {
		detail := a.DownloadPath
		if a.Category != "" {
			detail = string(a.Category)
		}
		if a.Warning != "" {
			detail = "warning: " + a.Warning
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.StartedAt.Local().Format("2006-01-02 15:04"),
			a.FileName,
			a.Outcome,
			a.Duration().Round(time.Second),
			detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d attempts: %d succeeded, %d failed\n", stats.Total(), stats.Succeeded, stats.Failed)
	return nil
}
