package downloader

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"feedarchiver/pkg/ratelimit"
)

type mockFetcher struct {
	delay   time.Duration
	err     error
	counter int32
}

func (m *mockFetcher) DownloadFile(url string, timeout time.Duration) ([]byte, error) {
	atomic.AddInt32(&m.counter, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return []byte("mock image data"), nil
}

func (m *mockFetcher) fetchCount() int {
	return int(atomic.LoadInt32(&m.counter))
}

type mockStorage struct {
	saved map[string]int
	err   error
	mu    sync.Mutex
}

func newMockStorage() *mockStorage {
	return &mockStorage{saved: make(map[string]int)}
}

func (m *mockStorage) SaveFile(path string, r io.Reader) error {
	if m.err != nil {
		return m.err
	}
	data, _ := io.ReadAll(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[path] = len(data)
	return nil
}

func (m *mockStorage) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func collectResults(pool *Pool) (<-chan []Result, func()) {
	out := make(chan []Result, 1)
	go func() {
		var results []Result
		for result := range pool.Results() {
			results = append(results, result)
		}
		out <- results
	}()
	return out, pool.Stop
}

func TestPoolDownloadsAndStores(t *testing.T) {
	fetcher := &mockFetcher{delay: 10 * time.Millisecond}
	storage := newMockStorage()
	limiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(3, time.Second, fetcher, storage, limiter, nil)
	pool.Start()
	resultsCh, stop := collectResults(pool)

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		job := Job{
			URL:      fmt.Sprintf("https://cdn.site/pic%d.jpg", i),
			DestPath: fmt.Sprintf("/tmp/out/img_%03d.jpg", i),
			ItemID:   "100",
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	stop()
	results := <-resultsCh

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected success for %s, got error: %v", result.Job.URL, result.Error)
		}
	}
	if fetcher.fetchCount() != numJobs {
		t.Errorf("Expected %d fetches, got %d", numJobs, fetcher.fetchCount())
	}
	if storage.savedCount() != numJobs {
		t.Errorf("Expected %d saved images, got %d", numJobs, storage.savedCount())
	}
}

func TestPoolReportsFetchErrors(t *testing.T) {
	fetcher := &mockFetcher{err: fmt.Errorf("connection reset")}
	storage := newMockStorage()
	limiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(2, time.Second, fetcher, storage, limiter, nil)
	pool.Start()
	resultsCh, stop := collectResults(pool)

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(Job{URL: fmt.Sprintf("https://cdn.site/%d", i)}); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	stop()
	results := <-resultsCh

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
	}
	if storage.savedCount() != 0 {
		t.Errorf("Expected no saved images, got %d", storage.savedCount())
	}
}

func TestPoolReportsSaveErrors(t *testing.T) {
	fetcher := &mockFetcher{}
	storage := newMockStorage()
	storage.err = fmt.Errorf("disk full")
	limiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(1, time.Second, fetcher, storage, limiter, nil)
	pool.Start()
	resultsCh, stop := collectResults(pool)

	if err := pool.Submit(Job{URL: "https://cdn.site/a.jpg", DestPath: "/tmp/a.jpg"}); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}

	stop()
	results := <-resultsCh

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Success || results[0].Error == nil {
		t.Error("Expected save failure in result")
	}
}

func TestPoolRunsJobsConcurrently(t *testing.T) {
	fetcher := &mockFetcher{delay: 100 * time.Millisecond}
	storage := newMockStorage()
	limiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(5, time.Second, fetcher, storage, limiter, nil)
	pool.Start()
	resultsCh, stop := collectResults(pool)

	numJobs := 10
	start := time.Now()
	for i := 0; i < numJobs; i++ {
		job := Job{
			URL:      fmt.Sprintf("https://cdn.site/pic%d.jpg", i),
			DestPath: fmt.Sprintf("/tmp/out/img_%03d.jpg", i),
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	stop()
	results := <-resultsCh
	elapsed := time.Since(start)

	// 10 jobs at 100ms each across 5 workers should finish in about
	// two rounds.
	if elapsed > 300*time.Millisecond {
		t.Errorf("Downloads took too long: %v", elapsed)
	}
	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}
