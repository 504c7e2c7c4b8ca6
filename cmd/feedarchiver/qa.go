package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feedarchiver/pkg/archive"
	"feedarchiver/pkg/feed"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/storage"
	"feedarchiver/pkg/ui"
)

var (
	qaListOnly   bool
	qaStartIndex int
	qaOutputDir  string
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Download the profile's Q&A items",
	Long: `Download every paid Q&A item the configured profile has answered.

Q&A pages are server rendered, so this stage captures whatever answer
text the server exposes to the session. Answers truncated behind the
paywall overlay come back short; recover those afterwards with
'feedarchiver unlock'.`,
	Example: `  # Full run
  feedarchiver qa

  # Refresh the item list without downloading
  feedarchiver qa --list-only`,
	Run: runQA,
}

func init() {
	rootCmd.AddCommand(qaCmd)
	qaCmd.Flags().BoolVar(&qaListOnly, "list-only", false, "fetch and save the item list, download nothing")
	qaCmd.Flags().IntVar(&qaStartIndex, "start", 0, "1-based item index to start from")
	qaCmd.Flags().StringVarP(&qaOutputDir, "output", "o", "", "output directory (overrides config)")
}

func runQA(cmd *cobra.Command, args []string) {
	cfg, err := buildConfig()
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	if qaOutputDir != "" {
		cfg.Output.QADir = qaOutputDir
	}

	log := logger.GetLogger()
	ui.PrintInfo("Target UID", cfg.Site.TargetUID)
	ui.PrintInfo("Output", cfg.Output.QADir)

	client, err := feed.NewClient(cfg, log)
	if err != nil {
		fatal("Failed to create HTTP client", err)
	}

	paginator := feed.NewPaginator(client, cfg, log)

	screenName, err := paginator.VerifyProfile()
	if err != nil {
		fatal("Session check failed", err)
	}
	ui.PrintInfo("Profile", screenName)

	items := feed.Deduplicate(paginator.FetchItems())
	qaItems := feed.FilterKind(items, feed.KindQnA)
	ui.PrintInfo("Q&A items found", fmt.Sprintf("%d", len(qaItems)))

	store, err := storage.NewManager(cfg.Output.QADir)
	if err != nil {
		fatal("Failed to prepare output directory", err)
	}
	if err := store.SaveItemList(storage.QAListFile, qaItems); err != nil {
		fatal("Failed to save item list", err)
	}

	if qaListOnly {
		ui.PrintSuccess("Item list saved")
		return
	}

	tally := ui.NewTally()
	counts, err := archive.New(client, store, cfg, log).Run(qaItems, archive.Options{
		StartIndex: qaStartIndex,
		SkipImages: true,
	})
	if err != nil {
		fatal("Q&A run failed", err)
	}

	tally.Success = counts.Success
	tally.Failed = counts.Failed
	tally.Skipped = counts.Skipped
	tally.Print()

	if counts.Failed > 0 {
		ui.PrintWarning("Some items failed; re-run to retry them")
	} else {
		ui.PrintSuccess("Q&A download complete; run 'feedarchiver unlock' for truncated answers")
	}
}
