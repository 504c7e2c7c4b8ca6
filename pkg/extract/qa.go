package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// QAContent holds the question and answer text of a server-rendered
// Q&A page. Either field may be empty when its container is missing.
type QAContent struct {
	Question string
	Answer   string
}

// QA extracts the question and answer from a raw Q&A page. Q&A pages
// render their content directly in the markup, so no payload decoding
// is involved; the extractor only has to find the right containers,
// each of which moved selectors at least once across site revisions.
func QA(rawHTML string) QAContent {
	var content QAContent

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return content
	}

	content.Question = firstText(doc, ".ask_con", `[node-type="askTitle"]`)
	content.Answer = firstText(doc, ".main_answer", ".WB_answer_wrap")

	return content
}

// firstText returns the flattened text of the first selector that
// matches a non-empty element, trying each in order.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := flattenText(sel); text != "" {
			return text
		}
	}
	return ""
}
