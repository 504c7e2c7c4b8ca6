package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/storage"
	"feedarchiver/pkg/ui"
	"feedarchiver/pkg/unlock"
)

var (
	unlockBatchSize   int
	unlockShowBrowser bool
	unlockOutputDir   string
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Recover truncated Q&A answers with a real browser",
	Long: `Open each truncated Q&A item in a browser tab, click through the
free-look overlay and replace the stored answer with the full text.

The command reads the item list saved by 'feedarchiver qa', selects
items whose stored answer is missing or short, and processes them in
small concurrent batches sharing one logged-in browser. Items whose
answers are already long enough are left alone, so re-running only
touches what is still locked.`,
	Example: `  # Headless run over the saved Q&A list
  feedarchiver unlock

  # Watch the browser work, two tabs at a time
  feedarchiver unlock --show-browser --batch-size 2`,
	Run: runUnlock,
}

func init() {
	rootCmd.AddCommand(unlockCmd)
	unlockCmd.Flags().IntVar(&unlockBatchSize, "batch-size", 0, "tabs per batch (overrides config)")
	unlockCmd.Flags().BoolVar(&unlockShowBrowser, "show-browser", false, "run the browser with a visible window")
	unlockCmd.Flags().StringVarP(&unlockOutputDir, "output", "o", "", "Q&A output directory (overrides config)")
}

func runUnlock(cmd *cobra.Command, args []string) {
	cfg, err := buildConfig()
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	if unlockOutputDir != "" {
		cfg.Output.QADir = unlockOutputDir
	}
	if unlockBatchSize > 0 {
		cfg.Unlock.BatchSize = unlockBatchSize
	}
	if unlockShowBrowser {
		cfg.Unlock.Headless = false
	}

	store, err := storage.NewManager(cfg.Output.QADir)
	if err != nil {
		fatal("Failed to open output directory", err)
	}

	items, err := store.LoadItemList(storage.QAListFile)
	if err != nil {
		fatal("Failed to load Q&A item list", err)
	}
	if len(items) == 0 {
		fatal("No Q&A item list found; run 'feedarchiver qa' first", nil)
	}

	ui.PrintInfo("Q&A items", fmt.Sprintf("%d", len(items)))
	ui.PrintInfo("Batch size", fmt.Sprintf("%d", cfg.Unlock.BatchSize))

	processor := unlock.New(cfg, store, logger.GetLogger())
	counts, err := processor.Process(cmd.Context(), items)
	if err != nil {
		fatal("Unlock run failed", err)
	}

	fmt.Println()
	ui.PrintInfo("Unlocked", fmt.Sprintf("%d", counts.Unlocked))
	ui.PrintInfo("Still truncated", fmt.Sprintf("%d", counts.StillShort))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", counts.Skipped))
	if counts.Failed > 0 {
		ui.PrintWarning("Failed", counts.Failed)
	}

	if counts.StillShort > 0 {
		ui.PrintWarning("Some answers stayed short; the account may not have paid for them")
	}
	ui.PrintSuccess("Unlock run finished")
}
