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
	archiveListOnly   bool
	archiveStartIndex int
	archiveNoImages   bool
	archiveOutputDir  string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Download the profile's articles",
	Long: `Download every article the configured profile has published.

The command verifies the session, walks the article feed page by page,
saves the deduplicated item list next to the output, then downloads
each article's detail page and stores it as HTML, plain text, metadata
and images. Items recorded in the progress file are skipped, so the
command can be re-run safely after an interruption.`,
	Example: `  # Full run
  feedarchiver archive

  # Refresh the item list without downloading
  feedarchiver archive --list-only

  # Resume from item 120, skipping image downloads
  feedarchiver archive --start 120 --no-images`,
	Run: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().BoolVar(&archiveListOnly, "list-only", false, "fetch and save the item list, download nothing")
	archiveCmd.Flags().IntVar(&archiveStartIndex, "start", 0, "1-based item index to start from")
	archiveCmd.Flags().BoolVar(&archiveNoImages, "no-images", false, "skip cover and inline image downloads")
	archiveCmd.Flags().StringVarP(&archiveOutputDir, "output", "o", "", "output directory (overrides config)")
}

func runArchive(cmd *cobra.Command, args []string) {
	cfg, err := buildConfig()
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	if archiveOutputDir != "" {
		cfg.Output.ArticleDir = archiveOutputDir
	}

	log := logger.GetLogger()
	ui.PrintInfo("Target UID", cfg.Site.TargetUID)
	ui.PrintInfo("Output", cfg.Output.ArticleDir)

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
	articles := feed.FilterKind(items, feed.KindArticle)
	ui.PrintInfo("Articles found", fmt.Sprintf("%d", len(articles)))

	store, err := storage.NewManager(cfg.Output.ArticleDir)
	if err != nil {
		fatal("Failed to prepare output directory", err)
	}
	if err := store.SaveItemList(storage.ArticleListFile, articles); err != nil {
		fatal("Failed to save item list", err)
	}

	if archiveListOnly {
		ui.PrintSuccess("Item list saved")
		return
	}

	tally := ui.NewTally()
	counts, err := archive.New(client, store, cfg, log).Run(articles, archive.Options{
		StartIndex: archiveStartIndex,
		SkipImages: archiveNoImages || cfg.Download.SkipImages,
	})
	if err != nil {
		fatal("Archive run failed", err)
	}

	tally.Success = counts.Success
	tally.Failed = counts.Failed
	tally.Skipped = counts.Skipped
	tally.Print()

	if counts.Failed > 0 {
		ui.PrintWarning("Some items failed; re-run to retry them")
	} else {
		ui.PrintSuccess("Archive complete")
	}
}
