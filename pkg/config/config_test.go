package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Site.BaseURL = "https://feed.example.org"
	cfg.Site.TargetUID = "1234567890"
	cfg.Site.APIPaths.Profile = "/ajax/profile/info?uid={uid}"
	cfg.Site.APIPaths.Articles = "/ajax/statuses/mymblog?uid={uid}&page={page}"
	cfg.Site.APIPaths.ArticlePage = "/ttarticle/p/show?id={article_id}"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 200, cfg.Pagination.MaxPages)
	assert.Equal(t, 20, cfg.Pagination.PageSize)
	assert.Equal(t, 5, cfg.Unlock.BatchSize)
	assert.Equal(t, 150, cfg.Unlock.AnswerThreshold)
	assert.Equal(t, 100, cfg.Unlock.MinSelectorText)
	assert.True(t, cfg.Unlock.Headless)
	assert.Equal(t, 2*time.Second, cfg.Delays.BetweenItems)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.List)
	assert.Equal(t, 20*time.Second, cfg.Timeouts.Detail)
	assert.Equal(t, "/p/{qa_id}", cfg.Site.APIPaths.QAPage)
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("placeholder base URL rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Site.BaseURL = "https://example.com"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing uid rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Site.TargetUID = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing api paths rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Site.APIPaths.Articles = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad unlock batch size rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Unlock.BatchSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
site:
  base_url: https://feed.example.org
  target_uid: "42"
  api_paths:
    profile: /ajax/profile/info?uid={uid}
    articles: /ajax/statuses/mymblog?uid={uid}&page={page}
    article_page: /ttarticle/p/show?id={article_id}
cookies:
  SUB: abc
  XSRF-TOKEN: tok123
pagination:
  max_pages: 50
unlock:
  batch_size: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://feed.example.org", cfg.Site.BaseURL)
	assert.Equal(t, "42", cfg.Site.TargetUID)
	assert.Equal(t, 50, cfg.Pagination.MaxPages)
	assert.Equal(t, 3, cfg.Unlock.BatchSize)
	assert.Equal(t, "tok123", cfg.XSRFToken())
	// Defaults survive partial files.
	assert.Equal(t, 20, cfg.Pagination.PageSize)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FEEDARCHIVER_BASE_URLX", "")
	t.Setenv("FEEDARCHIVER_BASE_URL", "https://env.example.org")
	t.Setenv("FEEDARCHIVER_TARGET_UID", "999")
	t.Setenv("FEEDARCHIVER_COOKIE_SUB", "envsub")
	t.Setenv("FEEDARCHIVER_MAX_PAGES", "17")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://env.example.org", cfg.Site.BaseURL)
	assert.Equal(t, "999", cfg.Site.TargetUID)
	assert.Equal(t, "envsub", cfg.Cookies["SUB"])
	assert.Equal(t, 17, cfg.Pagination.MaxPages)
}

func TestSessionCookies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cookies = map[string]string{"SUB": "a", "EMPTY": "", "XSRF-TOKEN": "t"}

	cookies := cfg.SessionCookies()
	assert.Len(t, cookies, 2)
	assert.NotContains(t, cookies, "EMPTY")
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := validConfig()
	cfg.Unlock.BatchSize = 7
	require.NoError(t, cfg.Save(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, 7, reloaded.Unlock.BatchSize)
	assert.Equal(t, cfg.Site.BaseURL, reloaded.Site.BaseURL)
}
