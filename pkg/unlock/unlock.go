// Package unlock drives a real browser session over Q&A items whose
// archived answers are truncated behind the site's paywall overlay.
// Logged-in browser sessions see the full answer after the free-look
// button is clicked, so the processor opens each item in a tab, clicks
// through and re-extracts the answer, overwriting the truncated
// artifacts on disk.
package unlock

import (
	"context"
	"sync"
	"time"

	"feedarchiver/pkg/config"
	"feedarchiver/pkg/feed"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/storage"
)

// Task is one Q&A item selected for browser processing.
type Task struct {
	Index int
	Item  feed.FeedItem
	Dir   string
}

// taskOutcome is what one browser pass recovered from the page.
type taskOutcome struct {
	Question string
	Answer   string
}

// runner executes one browser task. Injected in tests.
type runner func(ctx context.Context, url string) (taskOutcome, error)

// Counts summarizes a processing run.
type Counts struct {
	// Unlocked items now hold an answer longer than the threshold.
	Unlocked int
	// StillShort items were processed but the answer stayed truncated,
	// usually because the account has not paid for them.
	StillShort int
	Failed     int
	Skipped    int
}

// Processor batches truncated Q&A items through a shared browser.
type Processor struct {
	cfg    *config.Config
	store  *storage.Manager
	logger logger.Logger
	run    runner
}

// New creates a processor writing into store's base directory.
func New(cfg *config.Config, store *storage.Manager, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{cfg: cfg, store: store, logger: log}
}

// Process selects the items that still need unlocking and runs them in
// batches of the configured size, one tab per item, pausing between
// batches. A task failure never affects the rest of its batch. Items
// whose stored answer already exceeds the threshold are skipped.
func (p *Processor) Process(ctx context.Context, items []feed.FeedItem) (Counts, error) {
	var counts Counts

	tasks, skipped, failed := p.selectTasks(items)
	counts.Skipped = skipped
	counts.Failed = failed

	if len(tasks) == 0 {
		p.logger.Info("Nothing to unlock")
		return counts, nil
	}

	p.logger.InfoWithFields("Unlock run starting", map[string]interface{}{
		"candidates": len(tasks),
		"batch_size": p.cfg.Unlock.BatchSize,
	})

	run := p.run
	if run == nil {
		session, err := newSession(ctx, p.cfg)
		if err != nil {
			return counts, err
		}
		defer session.Close()
		run = session.fetchAnswer
	}

	batchSize := p.cfg.Unlock.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		p.processBatch(ctx, run, tasks[start:end], &counts)

		if end < len(tasks) {
			select {
			case <-time.After(p.cfg.Delays.BetweenBatches):
			case <-ctx.Done():
				return counts, ctx.Err()
			}
		}
	}

	p.logger.InfoWithFields("Unlock run finished", map[string]interface{}{
		"unlocked":    counts.Unlocked,
		"still_short": counts.StillShort,
		"failed":      counts.Failed,
		"skipped":     counts.Skipped,
	})

	return counts, nil
}

// selectTasks maps items to their artifact directories and keeps only
// Q&A items whose stored answer is missing or at or below the
// threshold.
func (p *Processor) selectTasks(items []feed.FeedItem) (tasks []Task, skipped, failed int) {
	threshold := p.cfg.Unlock.AnswerThreshold

	for i, item := range items {
		index := i + 1
		if item.Kind != feed.KindQnA {
			skipped++
			continue
		}

		dir, err := p.store.ItemDir(index, item.Title)
		if err != nil {
			p.logger.ErrorWithFields("Cannot prepare item directory", map[string]interface{}{
				"index":   index,
				"item_id": item.ItemID,
				"error":   err.Error(),
			})
			failed++
			continue
		}

		if length, ok := storage.AnswerLength(dir); ok && length > threshold {
			skipped++
			continue
		}

		tasks = append(tasks, Task{Index: index, Item: item, Dir: dir})
	}
	return tasks, skipped, failed
}

// taskStatus classifies one finished task for the run tally.
type taskStatus int

const (
	taskFailed taskStatus = iota
	taskUnlocked
	taskStillShort
)

// processBatch runs one batch concurrently. Each task persists its own
// artifacts as soon as its tab finishes, so an interrupted run only
// loses tasks that had not completed yet; tasks never share a
// directory. Only the tally is updated after the barrier.
func (p *Processor) processBatch(ctx context.Context, run runner, batch []Task, counts *Counts) {
	statuses := make([]taskStatus, len(batch))

	var wg sync.WaitGroup
	for i, task := range batch {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			outcome, err := run(ctx, task.Item.DetailURL)
			if err != nil {
				statuses[i] = taskFailed
				p.logger.ErrorWithFields("Unlock task failed", map[string]interface{}{
					"index":   task.Index,
					"item_id": task.Item.ItemID,
					"error":   err.Error(),
				})
				return
			}
			statuses[i] = p.persistOutcome(task, outcome)
		}(i, task)
	}
	wg.Wait()

	for _, status := range statuses {
		switch status {
		case taskUnlocked:
			counts.Unlocked++
		case taskStillShort:
			counts.StillShort++
		default:
			counts.Failed++
		}
	}
}

func (p *Processor) persistOutcome(task Task, outcome taskOutcome) taskStatus {
	question := outcome.Question
	if question == "" {
		question = task.Item.Title
	}

	err := p.store.WriteQA(task.Dir, storage.QAArtifact{
		ItemID:     task.Item.ItemID,
		Title:      task.Item.Title,
		Questioner: task.Item.Questioner,
		PriceInfo:  task.Item.PriceInfo,
		CreatedAt:  task.Item.CreatedAt,
		Question:   question,
		Answer:     outcome.Answer,
	})
	if err != nil {
		p.logger.ErrorWithFields("Failed to persist unlocked answer", map[string]interface{}{
			"index":   task.Index,
			"item_id": task.Item.ItemID,
			"error":   err.Error(),
		})
		return taskFailed
	}

	if len([]rune(outcome.Answer)) > p.cfg.Unlock.AnswerThreshold {
		p.logger.InfoWithFields("Answer unlocked", map[string]interface{}{
			"index":   task.Index,
			"item_id": task.Item.ItemID,
			"length":  len([]rune(outcome.Answer)),
		})
		return taskUnlocked
	}

	p.logger.WarnWithFields("Answer still truncated", map[string]interface{}{
		"index":   task.Index,
		"item_id": task.Item.ItemID,
		"length":  len([]rune(outcome.Answer)),
	})
	return taskStillShort
}
