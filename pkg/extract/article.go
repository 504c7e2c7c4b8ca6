package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// scriptPayloadPattern matches the sanitizer call whose first string
// argument carries the real article markup. (?s) lets the payload span
// lines; the lazy group stops at the closing quote before the next
// argument or the call's closing paren.
var scriptPayloadPattern = regexp.MustCompile(`(?s)filterXSS\("(.*?)"\s*(?:,|\))`)

// Content is the result of extracting one article page. A zero Content
// means nothing usable was found; extraction itself never fails.
type Content struct {
	Title     string
	BodyHTML  string
	BodyText  string
	ImageURLs []string
}

// Article pulls the title, body and image URLs out of a raw article
// page. The body normally lives doubly-escaped inside a script-embedded
// sanitizer call; when that payload is absent the extractor falls back
// to the plain-markup content container some pages still render.
func Article(rawHTML string) Content {
	var content Content

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return content
	}

	content.Title = pageTitle(doc)

	if m := scriptPayloadPattern.FindStringSubmatch(rawHTML); m != nil {
		decoded := DecodeScriptLiteral(m[1])
		body, parseErr := goquery.NewDocumentFromReader(strings.NewReader(decoded))
		if parseErr == nil {
			content.BodyHTML = decoded
			content.BodyText = flattenText(body.Selection)
			content.ImageURLs = imageURLs(body)
			return content
		}
	}

	// Plain-markup fallback for pages rendered without the script
	// payload. Images are only collected from the decoded payload, never
	// from fallback markup.
	container := doc.Find("div#article_content").First()
	if container.Length() == 0 {
		container = doc.Find("div.article_content").First()
	}
	if container.Length() > 0 {
		if text := flattenText(container); text != "" {
			if markup, htmlErr := goquery.OuterHtml(container); htmlErr == nil {
				content.BodyHTML = markup
				content.BodyText = text
			}
		}
	}

	return content
}

// pageTitle reads the dedicated title element, falling back to the
// page's first heading.
func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("div.title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func imageURLs(doc *goquery.Document) []string {
	return imageURLsIn(doc.Selection)
}

// imageURLsIn collects downloadable image URLs from img elements,
// preferring src over data-src. Protocol-relative URLs are promoted to
// https, inline data URIs are skipped, and emoticon assets (URLs
// containing "emotion") are skipped.
func imageURLsIn(sel *goquery.Selection) []string {
	var urls []string
	sel.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if strings.HasPrefix(src, "data:") || strings.Contains(src, "emotion") {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		urls = append(urls, src)
	})
	return urls
}
