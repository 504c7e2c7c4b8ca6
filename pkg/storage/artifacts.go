package storage

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
)

// Artifact filenames written into each item directory.
const (
	ArticleHTMLFile = "article.html"
	ArticleTextFile = "article.txt"
	QAHTMLFile      = "qa.html"
	QATextFile      = "qa.txt"
	MetadataFile    = "metadata.json"
)

// textDelimiter separates the header block from the body in the plain
// text artifacts. AnswerLength depends on it to find the answer
// portion of qa.txt.
var textDelimiter = strings.Repeat("=", 60)

// emptyBodyPlaceholder is written when extraction produced no text, so
// the item still leaves a complete artifact set behind and the unlock
// pass can later overwrite it.
const emptyBodyPlaceholder = "(empty)"

// ArticleArtifact is everything WriteArticle persists for one article.
type ArticleArtifact struct {
	ItemID     string
	Title      string
	Author     string
	CreatedAt  string
	BodyHTML   string
	BodyText   string
	ImageCount int
}

// QAArtifact is everything WriteQA persists for one Q&A item.
type QAArtifact struct {
	ItemID     string
	Title      string
	Questioner string
	PriceInfo  string
	CreatedAt  string
	Question   string
	Answer     string
}

var articlePage = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 720px; margin: 2em auto; padding: 0 1em; font-family: sans-serif; line-height: 1.7; }
.meta { color: #888; font-size: 0.9em; margin-bottom: 2em; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Author}} {{.CreatedAt}}</div>
<div class="content">{{.Body}}</div>
</body>
</html>
`))

var qaPage = template.Must(template.New("qa").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 720px; margin: 2em auto; padding: 0 1em; font-family: sans-serif; line-height: 1.7; }
.meta { color: #888; font-size: 0.9em; margin-bottom: 2em; }
.question { background: #f5f5f5; padding: 1em; margin-bottom: 2em; white-space: pre-wrap; }
.answer { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Questioner}} {{.PriceInfo}} {{.CreatedAt}}</div>
<div class="question">{{.Question}}</div>
<div class="answer">{{.Answer}}</div>
</body>
</html>
`))

type articlePageData struct {
	Title     string
	Author    string
	CreatedAt string
	Body      template.HTML
}

// WriteArticle renders the article artifacts into dir: a standalone
// HTML page, a plain text version, and a metadata record. Existing
// artifacts are overwritten.
func (m *Manager) WriteArticle(dir string, a ArticleArtifact) error {
	text := a.BodyText
	if strings.TrimSpace(text) == "" {
		text = emptyBodyPlaceholder
	}
	body := a.BodyHTML
	if strings.TrimSpace(body) == "" {
		body = "<p>" + emptyBodyPlaceholder + "</p>"
	}

	var page strings.Builder
	err := articlePage.Execute(&page, articlePageData{
		Title:     a.Title,
		Author:    a.Author,
		CreatedAt: a.CreatedAt,
		Body:      template.HTML(body),
	})
	if err != nil {
		return fmt.Errorf("failed to render article page: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ArticleHTMLFile), []byte(page.String())); err != nil {
		return err
	}

	var txt strings.Builder
	fmt.Fprintf(&txt, "%s\n", a.Title)
	if a.Author != "" {
		fmt.Fprintf(&txt, "%s\n", a.Author)
	}
	if a.CreatedAt != "" {
		fmt.Fprintf(&txt, "%s\n", a.CreatedAt)
	}
	fmt.Fprintf(&txt, "%s\n%s\n", textDelimiter, text)
	if err := writeFileAtomic(filepath.Join(dir, ArticleTextFile), []byte(txt.String())); err != nil {
		return err
	}

	meta := map[string]interface{}{
		"article_id":     a.ItemID,
		"title":          a.Title,
		"author":         a.Author,
		"created_at":     a.CreatedAt,
		"content_length": len([]rune(a.BodyText)),
		"image_count":    a.ImageCount,
	}
	return writeMetadata(dir, meta)
}

// WriteQA renders the Q&A artifacts into dir. Existing artifacts are
// overwritten, which is how the unlock pass replaces truncated answers.
func (m *Manager) WriteQA(dir string, qa QAArtifact) error {
	question := qa.Question
	if strings.TrimSpace(question) == "" {
		question = qa.Title
	}
	answer := qa.Answer
	if strings.TrimSpace(answer) == "" {
		answer = emptyBodyPlaceholder
	}

	var page strings.Builder
	err := qaPage.Execute(&page, map[string]string{
		"Title":      qa.Title,
		"Questioner": qa.Questioner,
		"PriceInfo":  qa.PriceInfo,
		"CreatedAt":  qa.CreatedAt,
		"Question":   question,
		"Answer":     answer,
	})
	if err != nil {
		return fmt.Errorf("failed to render qa page: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, QAHTMLFile), []byte(page.String())); err != nil {
		return err
	}

	var txt strings.Builder
	fmt.Fprintf(&txt, "%s\n", question)
	fmt.Fprintf(&txt, "%s\n%s\n", textDelimiter, answer)
	if err := writeFileAtomic(filepath.Join(dir, QATextFile), []byte(txt.String())); err != nil {
		return err
	}

	meta := map[string]interface{}{
		"question_id":   qa.ItemID,
		"title":         qa.Title,
		"questioner":    qa.Questioner,
		"price_info":    qa.PriceInfo,
		"created_at":    qa.CreatedAt,
		"answer_length": len([]rune(qa.Answer)),
	}
	return writeMetadata(dir, meta)
}

// AnswerLength reads the answer portion of an item directory's qa.txt
// and returns its length in runes. ok is false when the artifact does
// not exist yet or has no recognizable answer section, which callers
// treat as "needs processing".
func AnswerLength(dir string) (length int, ok bool) {
	data, err := os.ReadFile(filepath.Join(dir, QATextFile))
	if err != nil {
		return 0, false
	}

	_, answer, found := strings.Cut(string(data), textDelimiter)
	if !found {
		return 0, false
	}
	answer = strings.TrimSpace(answer)
	if answer == emptyBodyPlaceholder {
		return 0, true
	}
	return len([]rune(answer)), true
}

func writeMetadata(dir string, meta map[string]interface{}) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, MetadataFile), data)
}

// writeFileAtomic writes via a temp file and rename so a crash cannot
// leave a half-written artifact behind.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
