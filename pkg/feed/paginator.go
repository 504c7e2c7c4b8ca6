package feed

import (
	"unicode/utf8"

	"feedarchiver/pkg/config"
	errs "feedarchiver/pkg/errors"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/ratelimit"
)

// titleFallbackRunes caps the summary-derived title used when an
// article carries no explicit title, so no entry ends up untitled.
const titleFallbackRunes = 50

// Paginator walks the feed API page by page and classifies each item.
type Paginator struct {
	client *Client
	cfg    *config.Config
	pacer  ratelimit.Limiter
	logger logger.Logger
}

// NewPaginator builds a paginator over the given transport.
func NewPaginator(client *Client, cfg *config.Config, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Paginator{
		client: client,
		cfg:    cfg,
		pacer:  ratelimit.NewFixedInterval(cfg.Delays.BetweenPages),
		logger: log,
	}
}

// VerifyProfile checks that the session cookies still authenticate
// against the profile API. A failure here is fatal to the whole run:
// every subsequent call would fail identically.
func (p *Paginator) VerifyProfile() (string, error) {
	var resp ProfileResponse
	err := p.client.GetJSON(ProfileURL(&p.cfg.Site), p.cfg.Timeouts.Profile, &resp)
	if err != nil {
		p.logger.WithError(err).Error("profile verification failed")
		return "", errs.Newf(errs.KindAuth, "cookies may have expired: %v", err)
	}

	name := resp.Data.User.ScreenName
	if name == "" {
		return "", errs.New(errs.KindAuth, "profile response carried no user, cookies may have expired")
	}

	p.logger.InfoWithFields("profile verified", map[string]interface{}{
		"uid":         p.cfg.Site.TargetUID,
		"screen_name": name,
	})
	return name, nil
}

// FetchItems walks the feed sequentially, 1-indexed, up to the
// configured page cap. Classified items of interest are returned in
// feed order; items of other kinds are dropped. A transport error or
// non-success status truncates pagination and returns everything
// gathered so far: partial results are a success from the caller's
// point of view.
func (p *Paginator) FetchItems() []FeedItem {
	var items []FeedItem

	for page := 1; page <= p.cfg.Pagination.MaxPages; page++ {
		p.pacer.Wait()

		var resp ListResponse
		url := ListURL(&p.cfg.Site, page)
		if err := p.client.GetJSON(url, p.cfg.Timeouts.List, &resp); err != nil {
			p.logger.WarnWithFields("pagination truncated", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})
			break
		}

		raw := resp.Data.List
		if len(raw) == 0 {
			p.logger.InfoWithFields("no more data", map[string]interface{}{"page": page})
			break
		}

		found := 0
		for _, entry := range raw {
			item, ok := p.classify(entry)
			if !ok {
				continue
			}
			items = append(items, item)
			found++
		}

		p.logger.InfoWithFields("page fetched", map[string]interface{}{
			"page":        page,
			"posts":       len(raw),
			"items_found": found,
		})

		// A short page is the last-page heuristic: the API gives no
		// authoritative total count.
		if len(raw) < p.cfg.Pagination.PageSize {
			p.logger.InfoWithFields("reached last page", map[string]interface{}{"page": page})
			break
		}
	}

	return items
}

// classify derives a typed FeedItem from a raw entry, or reports false
// for kinds outside the pipeline's interest.
func (p *Paginator) classify(entry RawItem) (FeedItem, bool) {
	pi := entry.PageInfo
	if pi.PageID == "" {
		return FeedItem{}, false
	}

	isQnA := pi.ObjectType == qnaObjectType || pi.SourceType == qnaObjectType
	isArticle := pi.Type.String() == articleTypeCode || pi.ObjectType == "article"
	if !isQnA && !isArticle {
		return FeedItem{}, false
	}

	if isQnA {
		question := pi.Content1
		if question == "" {
			question = pi.PageDesc
		}
		return FeedItem{
			ItemID:     pi.PageID,
			Kind:       KindQnA,
			Title:      question,
			Questioner: pi.Content3,
			PriceInfo:  pi.Content2,
			Author:     entry.User.ScreenName,
			PostID:     entry.ID.String(),
			CreatedAt:  entry.CreatedAt,
			Summary:    entry.TextRaw,
			DetailURL:  QAURL(&p.cfg.Site, pi.PageID),
		}, true
	}

	title := pi.Content1
	if title == "" {
		title = truncateRunes(entry.TextRaw, titleFallbackRunes)
	}
	return FeedItem{
		ItemID:    pi.PageID,
		Kind:      KindArticle,
		Title:     title,
		Author:    entry.User.ScreenName,
		PostID:    entry.ID.String(),
		CreatedAt: entry.CreatedAt,
		Summary:   entry.TextRaw,
		CoverPic:  pi.PagePic,
		DetailURL: ArticleURL(&p.cfg.Site, pi.PageID),
	}, true
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Deduplicate collapses items sharing an item ID, first occurrence
// retained. Pagination overlap makes later duplicates possible.
func Deduplicate(items []FeedItem) []FeedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ItemID]; ok {
			continue
		}
		seen[item.ItemID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FilterKind returns the items of one kind, preserving order.
func FilterKind(items []FeedItem, kind Kind) []FeedItem {
	out := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}
