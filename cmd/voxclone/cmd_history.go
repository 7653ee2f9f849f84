package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxclone/internal/store"
)

var (
	historyLimit  int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded batch runs",
	Long: `Without arguments, lists recent batch runs. With a run id, shows the
per-item outcomes of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only show failed items of a run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hs, err := store.NewHistoryStore(resolvePath(cfg.Store.DatabasePath))
	if err != nil {
		return err
	}
	defer hs.Close()

	if len(args) == 1 {
		return showRunItems(hs, args[0])
	}

	runs, err := hs.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		status := fmt.Sprintf("%d/%d ok (%.1f%%)", r.Processed-r.Failed, r.TotalTexts, r.SuccessRate)
		if r.Err != "" {
			status += " error: " + r.Err
		}
		fmt.Printf("%s  %s  %s  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.TextFile, status)
	}
	return nil
}

func showRunItems(hs *store.HistoryStore, runID string) error {
	var (
		items []store.RunItem
		err   error
	)
	if historyFailed {
		items, err = hs.FailedItems(runID)
	} else {
		items, err = hs.RunItems(runID)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No items for this run.")
		return nil
	}

	for _, it := range items {
		if it.Success {
			fmt.Printf("ok    %s  %s\n", it.TextID, it.OutputPath)
		} else {
			fmt.Printf("fail  %s  %s\n", it.TextID, it.Err)
		}
	}
	return nil
}
