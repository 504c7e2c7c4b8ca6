// Package archive drives the download stage: it walks a fetched item
// list, pulls each detail page, extracts its content and persists the
// artifacts, recording completed items in the progress ledger so an
// interrupted run resumes where it stopped.
package archive

import (
	"fmt"
	"time"

	"feedarchiver/internal/downloader"
	"feedarchiver/pkg/config"
	"feedarchiver/pkg/extract"
	"feedarchiver/pkg/feed"
	"feedarchiver/pkg/ledger"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/ratelimit"
	"feedarchiver/pkg/storage"
)

// Fetcher is the HTTP surface the orchestrator needs.
type Fetcher interface {
	GetHTML(url string, timeout time.Duration) (string, error)
	DownloadFile(url string, timeout time.Duration) ([]byte, error)
}

// Options tunes a single run.
type Options struct {
	// StartIndex skips items before this 1-based position. Zero or one
	// means start from the beginning.
	StartIndex int
	// SkipImages archives text and markup only.
	SkipImages bool
}

// Counts summarizes a run.
type Counts struct {
	Success int
	Failed  int
	Skipped int
}

// Orchestrator archives one item list into one output directory.
type Orchestrator struct {
	fetcher    Fetcher
	store      *storage.Manager
	cfg        *config.Config
	pacer      ratelimit.Limiter
	imgLimiter ratelimit.Limiter
	logger     logger.Logger
}

// New creates an orchestrator writing into store's base directory.
func New(fetcher Fetcher, store *storage.Manager, cfg *config.Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		pacer:   ratelimit.NewFixedInterval(cfg.Delays.BetweenItems),
		// CDN images tolerate short bursts, so they get a token bucket
		// instead of the fixed page pacing.
		imgLimiter: ratelimit.NewTokenBucket(10, time.Second),
		logger:     log,
	}
}

// Run archives items in list order. Items already recorded in the
// ledger are skipped, so rerunning after an interruption only touches
// what is missing. A failing item is counted and logged but never
// stops the run; the ledger is flushed after every completed item.
func (o *Orchestrator) Run(items []feed.FeedItem, opts Options) (Counts, error) {
	var counts Counts

	led, err := ledger.Open(o.store.BaseDir())
	if err != nil {
		return counts, fmt.Errorf("failed to open progress ledger: %w", err)
	}

	o.logger.InfoWithFields("Archive run starting", map[string]interface{}{
		"items":     len(items),
		"completed": led.Count(),
	})

	for i, item := range items {
		index := i + 1

		if opts.StartIndex > 1 && index < opts.StartIndex {
			counts.Skipped++
			continue
		}
		if led.Contains(item.ItemID) {
			o.logger.DebugWithFields("Item already archived", map[string]interface{}{
				"index":   index,
				"item_id": item.ItemID,
			})
			counts.Skipped++
			continue
		}

		o.pacer.Wait()

		if err := o.processItem(index, item, opts); err != nil {
			counts.Failed++
			o.logger.ErrorWithFields("Item failed", map[string]interface{}{
				"index":   index,
				"item_id": item.ItemID,
				"title":   item.Title,
				"error":   err.Error(),
			})
			continue
		}

		if err := led.Record(item.ItemID); err != nil {
			return counts, fmt.Errorf("failed to record progress: %w", err)
		}
		counts.Success++
	}

	o.logger.InfoWithFields("Archive run finished", map[string]interface{}{
		"success": counts.Success,
		"failed":  counts.Failed,
		"skipped": counts.Skipped,
	})

	return counts, nil
}

func (o *Orchestrator) processItem(index int, item feed.FeedItem, opts Options) error {
	page, err := o.fetcher.GetHTML(item.DetailURL, o.cfg.Timeouts.Detail)
	if err != nil {
		return fmt.Errorf("failed to fetch detail page: %w", err)
	}

	if item.Kind == feed.KindQnA {
		return o.archiveQA(index, item, page)
	}
	return o.archiveArticle(index, item, page, opts)
}

func (o *Orchestrator) archiveArticle(index int, item feed.FeedItem, page string, opts Options) error {
	content := extract.Article(page)

	title := content.Title
	if title == "" {
		title = item.Title
	}

	dir, err := o.store.ItemDir(index, title)
	if err != nil {
		return err
	}

	err = o.store.WriteArticle(dir, storage.ArticleArtifact{
		ItemID:     item.ItemID,
		Title:      title,
		Author:     item.Author,
		CreatedAt:  item.CreatedAt,
		BodyHTML:   content.BodyHTML,
		BodyText:   content.BodyText,
		ImageCount: len(content.ImageURLs),
	})
	if err != nil {
		return err
	}

	// The cover is fetched even when inline images are skipped.
	urls := content.ImageURLs
	if opts.SkipImages {
		urls = nil
	}
	o.downloadImages(dir, item, urls)

	return nil
}

func (o *Orchestrator) archiveQA(index int, item feed.FeedItem, page string) error {
	content := extract.QA(page)

	question := content.Question
	if question == "" {
		question = item.Title
	}

	dir, err := o.store.ItemDir(index, item.Title)
	if err != nil {
		return err
	}

	return o.store.WriteQA(dir, storage.QAArtifact{
		ItemID:     item.ItemID,
		Title:      item.Title,
		Questioner: item.Questioner,
		PriceInfo:  item.PriceInfo,
		CreatedAt:  item.CreatedAt,
		Question:   question,
		Answer:     content.Answer,
	})
}

// downloadImages fetches the item's cover and inline images through a
// small worker pool. Image failures degrade the item, they do not fail
// it; the text artifacts are already on disk.
func (o *Orchestrator) downloadImages(dir string, item feed.FeedItem, urls []string) {
	if len(urls) == 0 && item.CoverPic == "" {
		return
	}

	workers := o.cfg.Download.ConcurrentImages
	if workers < 1 {
		workers = 1
	}

	pool := downloader.NewPool(workers, o.cfg.Timeouts.Image, o.fetcher, o.store, o.imgLimiter, o.logger)
	pool.Start()

	done := make(chan int, 1)
	go func() {
		failed := 0
		for result := range pool.Results() {
			if !result.Success {
				failed++
			}
		}
		done <- failed
	}()

	if item.CoverPic != "" {
		pool.Submit(downloader.Job{
			URL:      item.CoverPic,
			DestPath: o.store.CoverPath(dir),
			ItemID:   item.ItemID,
		})
	}
	for i, rawURL := range urls {
		dest, err := o.store.ImagePath(dir, i+1, rawURL)
		if err != nil {
			o.logger.WarnWithFields("Skipping image", map[string]interface{}{
				"item_id": item.ItemID,
				"url":     rawURL,
				"error":   err.Error(),
			})
			continue
		}
		pool.Submit(downloader.Job{URL: rawURL, DestPath: dest, ItemID: item.ItemID})
	}

	pool.Stop()
	if failed := <-done; failed > 0 {
		o.logger.WarnWithFields("Some images failed", map[string]interface{}{
			"item_id": item.ItemID,
			"failed":  failed,
		})
	}
}
