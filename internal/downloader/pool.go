// Package downloader runs the concurrent image fetch stage of an
// archive run. Each item's images go through a small worker pool so
// image-heavy articles do not serialize the whole run, while a shared
// rate limiter keeps the pool from hammering the CDN.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/ratelimit"
)

// Job is a single image to fetch and store.
type Job struct {
	URL      string
	DestPath string
	ItemID   string
}

// Result reports the outcome of one job.
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// ImageFetcher downloads an image body.
type ImageFetcher interface {
	DownloadFile(url string, timeout time.Duration) ([]byte, error)
}

// ImageStorage persists a fetched image.
type ImageStorage interface {
	SaveFile(path string, r io.Reader) error
}

// Pool manages concurrent image download workers.
type Pool struct {
	numWorkers  int
	timeout     time.Duration
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ImageFetcher
	storage     ImageStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewPool creates an image download pool. timeout bounds each
// individual fetch.
func NewPool(
	numWorkers int,
	timeout time.Duration,
	fetcher ImageFetcher,
	storage ImageStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		timeout:     timeout,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.DebugWithFields("Starting image download pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue, waits for workers to finish and closes the
// result channel.
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
}

// Submit queues a job. It fails only when the pool is shutting down.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("download pool is shutting down")
	}
}

// Results returns the channel of completed jobs.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.processJob(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if p.rateLimiter != nil && !p.rateLimiter.Allow() {
		p.rateLimiter.Wait()
	}

	data, err := p.fetcher.DownloadFile(job.URL, p.timeout)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)

		p.logger.WarnWithFields("Image download failed", map[string]interface{}{
			"worker_id": workerID,
			"item_id":   job.ItemID,
			"url":       job.URL,
			"error":     err.Error(),
		})

		return result
	}

	result.Size = len(data)

	if err := p.storage.SaveFile(job.DestPath, bytes.NewReader(data)); err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)

		p.logger.ErrorWithFields("Image save failed", map[string]interface{}{
			"worker_id": workerID,
			"item_id":   job.ItemID,
			"path":      job.DestPath,
			"error":     err.Error(),
		})

		return result
	}

	result.Success = true
	result.Duration = time.Since(start)

	p.logger.DebugWithFields("Image downloaded", map[string]interface{}{
		"worker_id": workerID,
		"item_id":   job.ItemID,
		"size":      result.Size,
	})

	return result
}
