package feed

import (
	"strconv"
	"strings"

	"feedarchiver/pkg/config"
)

// articleTypeCode is the numeric type code marking long-form articles.
const articleTypeCode = "24"

// qnaObjectType marks answered-question items in both the object_type
// and source_type fields.
const qnaObjectType = "wenda"

// expand substitutes {name} placeholders in a path template.
func expand(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// ProfileURL builds the profile verification URL for a user.
func ProfileURL(site *config.SiteConfig) string {
	return site.BaseURL + expand(site.APIPaths.Profile, map[string]string{
		"uid": site.TargetUID,
	})
}

// ListURL builds the feed list URL for one page (1-indexed).
func ListURL(site *config.SiteConfig, page int) string {
	return site.BaseURL + expand(site.APIPaths.Articles, map[string]string{
		"uid":  site.TargetUID,
		"page": strconv.Itoa(page),
	})
}

// ArticleURL builds the detail page URL for an article.
func ArticleURL(site *config.SiteConfig, articleID string) string {
	return site.BaseURL + expand(site.APIPaths.ArticlePage, map[string]string{
		"article_id": articleID,
	})
}

// QAURL builds the detail page URL for an answered question.
func QAURL(site *config.SiteConfig, qaID string) string {
	return site.BaseURL + expand(site.APIPaths.QAPage, map[string]string{
		"qa_id": qaID,
	})
}

// RefererURL builds the profile referer header value.
func RefererURL(site *config.SiteConfig) string {
	return site.BaseURL + "/u/" + site.TargetUID
}
