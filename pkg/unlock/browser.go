package unlock

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"feedarchiver/pkg/config"
	errs "feedarchiver/pkg/errors"
)

// unlockButtonSelector is the free-look button rendered over truncated
// answers for logged-in accounts.
const unlockButtonSelector = `[node-type="free_look_btn"]`

// answerSelectors are tried in order; the site has shipped several
// answer container layouts over the years.
var answerSelectors = []string{
	".main_answer",
	".WB_answer_wrap",
	`[node-type="answer_list"]`,
	".article_content",
}

var questionSelectors = []string{
	".ask_con",
	`[node-type="askTitle"]`,
}

// session owns one browser process shared by all tabs of a run.
type session struct {
	cfg          *config.Config
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
	cookieDomain string
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Unlock.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.Site.UserAgent),
	)
	if cfg.Site.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Site.Proxy))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)

	// Launch the browser up front so every tab shares one process and
	// startup failures surface before any item is touched.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, errs.Newf(errs.KindAutomation, "failed to start browser: %v", err)
	}

	return &session{
		cfg:          cfg,
		browserCtx:   browserCtx,
		cancelAlloc:  cancelAlloc,
		cancelBrowse: cancelBrowse,
		cookieDomain: cookieDomain(cfg.Site.BaseURL),
	}, nil
}

func (s *session) Close() {
	s.cancelBrowse()
	s.cancelAlloc()
}

// fetchAnswer opens the item in a fresh tab, gives the page time to
// settle, clicks the free-look button when present, waits for the
// answer to re-render and extracts it.
func (s *session) fetchAnswer(ctx context.Context, pageURL string) (taskOutcome, error) {
	var outcome taskOutcome

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	tabTimeout := s.cfg.Timeouts.Navigation + s.cfg.Unlock.SettleDelay + s.cfg.Unlock.UnlockDelay + 10*time.Second
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, tabTimeout)
	defer cancelTimeout()

	var clicked bool
	err := chromedp.Run(tabCtx,
		s.setCookies(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(s.cfg.Unlock.SettleDelay),
		chromedp.Evaluate(clickUnlockJS(), &clicked),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if clicked {
				return chromedp.Sleep(s.cfg.Unlock.UnlockDelay).Do(ctx)
			}
			return nil
		}),
		chromedp.Evaluate(firstTextJS(questionSelectors, 0), &outcome.Question),
		chromedp.Evaluate(firstTextJS(answerSelectors, s.cfg.Unlock.MinSelectorText), &outcome.Answer),
	)
	if err != nil {
		return outcome, errs.Newf(errs.KindAutomation, "browser task failed for %s: %v", pageURL, err)
	}
	return outcome, nil
}

// setCookies injects the configured session cookies before navigation
// so the page loads logged in.
func (s *session) setCookies() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range s.cfg.SessionCookies() {
			err := network.SetCookie(name, value).
				WithDomain(s.cookieDomain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// cookieDomain derives the cookie scope from the site base URL. The
// leading dot covers the www and api subdomains the site bounces
// between.
func cookieDomain(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if strings.HasPrefix(host, "www.") {
		host = host[len("www."):]
	}
	return "." + host
}

// clickUnlockJS clicks the free-look button if the page shows one and
// reports whether it did.
func clickUnlockJS() string {
	return fmt.Sprintf(`(() => {
	const btn = document.querySelector('%s');
	if (btn) { btn.click(); return true; }
	return false;
})()`, unlockButtonSelector)
}

// firstTextJS returns the inner text of the first selector whose
// trimmed text is longer than minChars. When no candidate clears the
// bar, the first present candidate's text is returned anyway, so a
// short but real answer is still captured instead of being dropped.
func firstTextJS(selectors []string, minChars int) string {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = "'" + sel + "'"
	}
	return fmt.Sprintf(`(() => {
	const selectors = [%s];
	let fallback = "";
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (!el) continue;
		const text = el.innerText.trim();
		if (text.length > %d) return text;
		if (fallback === "") fallback = text;
	}
	return fallback;
})()`, strings.Join(quoted, ", "), minChars)
}
