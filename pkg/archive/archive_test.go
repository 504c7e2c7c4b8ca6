package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedarchiver/pkg/config"
	"feedarchiver/pkg/feed"
	"feedarchiver/pkg/storage"
)

type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	pageErrs  map[string]error
	htmlCalls int
	downloads int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string]string),
		pageErrs: make(map[string]error),
	}
}

func (f *fakeFetcher) GetHTML(url string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.htmlCalls++
	if err := f.pageErrs[url]; err != nil {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

func (f *fakeFetcher) DownloadFile(url string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return []byte("imagebytes"), nil
}

func (f *fakeFetcher) htmlCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.htmlCalls
}

func (f *fakeFetcher) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Delays.BetweenItems = 0
	cfg.Download.ConcurrentImages = 2
	return cfg
}

func articlePage(body string) string {
	return fmt.Sprintf(`<html><body><div class="title">Page Title</div>
<script>filterXSS("<p>%s</p>")</script></body></html>`, body)
}

func qaPage(question, answer string) string {
	return fmt.Sprintf(`<html><body><div class="ask_con">%s</div>
<div class="main_answer">%s</div></body></html>`, question, answer)
}

func articleItem(id, url string) feed.FeedItem {
	return feed.FeedItem{ItemID: id, Kind: feed.KindArticle, Title: "t" + id, DetailURL: url}
}

func TestRunArchivesArticlesAndQA(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = articlePage("article body")
	fetcher.pages["https://site/qa/2"] = qaPage("why?", "because")

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	orch := New(fetcher, store, testConfig(), nil)
	counts, err := orch.Run([]feed.FeedItem{
		articleItem("1", "https://site/article/1"),
		{ItemID: "2", Kind: feed.KindQnA, Title: "q2", DetailURL: "https://site/qa/2"},
	}, Options{SkipImages: true})
	require.NoError(t, err)

	assert.Equal(t, Counts{Success: 2}, counts)

	txt, err := os.ReadFile(filepath.Join(store.BaseDir(), "001_Page_Title", storage.ArticleTextFile))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "article body")

	qa, err := os.ReadFile(filepath.Join(store.BaseDir(), "002_q2", storage.QATextFile))
	require.NoError(t, err)
	assert.Contains(t, string(qa), "because")
}

func TestRunIsIdempotent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = articlePage("one")
	fetcher.pages["https://site/article/2"] = articlePage("two")

	dir := t.TempDir()
	items := []feed.FeedItem{
		articleItem("1", "https://site/article/1"),
		articleItem("2", "https://site/article/2"),
	}

	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	counts, err := New(fetcher, store, testConfig(), nil).Run(items, Options{SkipImages: true})
	require.NoError(t, err)
	require.Equal(t, Counts{Success: 2}, counts)
	fetchesAfterFirstRun := fetcher.htmlCallCount()

	// A second run over the same directory must not refetch anything.
	store2, err := storage.NewManager(dir)
	require.NoError(t, err)
	counts, err = New(fetcher, store2, testConfig(), nil).Run(items, Options{SkipImages: true})
	require.NoError(t, err)

	assert.Equal(t, Counts{Skipped: 2}, counts)
	assert.Equal(t, fetchesAfterFirstRun, fetcher.htmlCallCount())
}

func TestRunIsolatesItemFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = articlePage("one")
	fetcher.pageErrs["https://site/article/2"] = fmt.Errorf("server error")
	fetcher.pages["https://site/article/3"] = articlePage("three")

	dir := t.TempDir()
	items := []feed.FeedItem{
		articleItem("1", "https://site/article/1"),
		articleItem("2", "https://site/article/2"),
		articleItem("3", "https://site/article/3"),
	}

	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	counts, err := New(fetcher, store, testConfig(), nil).Run(items, Options{SkipImages: true})
	require.NoError(t, err)
	assert.Equal(t, Counts{Success: 2, Failed: 1}, counts)

	// After the transient failure clears, a rerun touches only the
	// failed item.
	delete(fetcher.pageErrs, "https://site/article/2")
	fetcher.pages["https://site/article/2"] = articlePage("two")

	store2, err := storage.NewManager(dir)
	require.NoError(t, err)
	counts, err = New(fetcher, store2, testConfig(), nil).Run(items, Options{SkipImages: true})
	require.NoError(t, err)

	assert.Equal(t, Counts{Success: 1, Skipped: 2}, counts)
}

func TestRunHonorsStartIndex(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/3"] = articlePage("three")

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	items := []feed.FeedItem{
		articleItem("1", "https://site/article/1"),
		articleItem("2", "https://site/article/2"),
		articleItem("3", "https://site/article/3"),
	}

	counts, err := New(fetcher, store, testConfig(), nil).Run(items, Options{StartIndex: 3, SkipImages: true})
	require.NoError(t, err)

	assert.Equal(t, Counts{Success: 1, Skipped: 2}, counts)
	assert.Equal(t, 1, fetcher.htmlCallCount())
}

func TestRunDownloadsImagesAndCover(t *testing.T) {
	page := `<html><body><div class="title">Pics</div>
<script>filterXSS("<img src=\"https:\/\/cdn.site\/a.jpg\"><img src=\"https:\/\/cdn.site\/b.png\">")</script>
</body></html>`

	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = page

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	item := articleItem("1", "https://site/article/1")
	item.CoverPic = "https://cdn.site/cover.jpg"

	counts, err := New(fetcher, store, testConfig(), nil).Run([]feed.FeedItem{item}, Options{})
	require.NoError(t, err)
	require.Equal(t, Counts{Success: 1}, counts)

	itemDir := filepath.Join(store.BaseDir(), "001_Pics")
	assert.FileExists(t, filepath.Join(itemDir, storage.CoverFileName))
	assert.FileExists(t, filepath.Join(itemDir, storage.ImagesSubdir, "img_001.jpg"))
	assert.FileExists(t, filepath.Join(itemDir, storage.ImagesSubdir, "img_002.png"))
	assert.Equal(t, 3, fetcher.downloadCount())
}

func TestRunSkipImagesStillFetchesCover(t *testing.T) {
	page := `<html><body><div class="title">Pics</div>
<script>filterXSS("<img src=\"https:\/\/cdn.site\/a.jpg\">")</script>
</body></html>`

	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = page

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	item := articleItem("1", "https://site/article/1")
	item.CoverPic = "https://cdn.site/cover.jpg"

	_, err = New(fetcher, store, testConfig(), nil).Run([]feed.FeedItem{item}, Options{SkipImages: true})
	require.NoError(t, err)

	itemDir := filepath.Join(store.BaseDir(), "001_Pics")
	assert.FileExists(t, filepath.Join(itemDir, storage.CoverFileName))
	assert.NoFileExists(t, filepath.Join(itemDir, storage.ImagesSubdir, "img_001.jpg"))
	assert.Equal(t, 1, fetcher.downloadCount())
}

func TestRunEmptyExtractionStillSucceeds(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["https://site/article/1"] = "<html><body><p>nothing recognizable</p></body></html>"

	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	item := articleItem("1", "https://site/article/1")
	counts, err := New(fetcher, store, testConfig(), nil).Run([]feed.FeedItem{item}, Options{SkipImages: true})
	require.NoError(t, err)
	assert.Equal(t, Counts{Success: 1}, counts)

	txt, err := os.ReadFile(filepath.Join(store.BaseDir(), "001_t1", storage.ArticleTextFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(txt), "(empty)"))
}
