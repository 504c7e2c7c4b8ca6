package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"feedarchiver/pkg/config"
	errs "feedarchiver/pkg/errors"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/retry"
)

// Client is the authenticated session transport shared by every fetch
// in the pipeline. Authentication is carried entirely by the session
// cookies from configuration; the CSRF-style XSRF-TOKEN cookie is
// additionally promoted into the x-xsrf-token header.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient builds a session transport from configuration.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Site.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Site.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	headers := map[string]string{
		"User-Agent": cfg.Site.UserAgent,
		"Accept":     "application/json, text/plain, */*",
		"Referer":    RefererURL(&cfg.Site),
	}
	if cookie := cookieHeader(cfg.SessionCookies()); cookie != "" {
		headers["Cookie"] = cookie
	}
	if xsrf := cfg.XSRFToken(); xsrf != "" {
		headers["x-xsrf-token"] = xsrf
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		headers:    headers,
		logger:     log,
	}, nil
}

// cookieHeader joins cookies into a header value in stable order.
func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// get performs a GET request with the configured headers and a
// per-operation timeout.
func (c *Client) get(rawURL string, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, errs.Newf(errs.KindUnknown, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		cancel()
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Newf(errs.KindTransport, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	// Tie the context's lifetime to the body.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// getWithRetry performs a GET request, retrying transient failures.
func (c *Client) getWithRetry(rawURL string, timeout time.Duration, maxRetries int) (*http.Response, error) {
	var resp *http.Response

	op := func() error {
		r, err := c.get(rawURL, timeout)
		if err != nil {
			return err
		}
		if errs.IsRetryableStatusCode(r.StatusCode) {
			r.Body.Close()
			return errs.WithCode(errs.KindForStatus(r.StatusCode), r.StatusCode,
				fmt.Sprintf("server returned status %d", r.StatusCode))
		}
		resp = r
		return nil
	}

	err := retry.Do(op, &retry.Config{
		MaxAttempts: maxRetries + 1,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     context.Background(),
		Logger:      c.logger,
	})
	if err != nil {
		c.logger.ErrorWithFields("request failed after retries", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return nil, err
	}
	return resp, nil
}

// checkResponseStatus maps a non-success HTTP status to a classified error.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	kind := errs.KindForStatus(resp.StatusCode)
	c.logger.WarnWithFields("unexpected response status", map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
		"kind":   string(kind),
	})
	return errs.WithCode(kind, resp.StatusCode,
		fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
}

// GetJSON performs a GET request and decodes the JSON response.
func (c *Client) GetJSON(rawURL string, timeout time.Duration, target interface{}) error {
	resp, err := c.get(rawURL, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.WithCode(errs.KindTransport, resp.StatusCode,
			fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.WithCode(errs.KindExtraction, resp.StatusCode,
			fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// GetHTML performs a GET request and returns the raw document body.
func (c *Client) GetHTML(rawURL string, timeout time.Duration) (string, error) {
	resp, err := c.get(rawURL, timeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.WithCode(errs.KindTransport, resp.StatusCode,
			fmt.Sprintf("failed to read response body: %v", err))
	}

	return string(body), nil
}

// DownloadFile fetches a binary asset, retrying transient failures.
func (c *Client) DownloadFile(rawURL string, timeout time.Duration) ([]byte, error) {
	resp, err := c.getWithRetry(rawURL, timeout, 2)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.KindTransport, "failed to download file: %v", err)
	}

	c.logger.DebugWithFields("file downloaded", map[string]interface{}{
		"url":  rawURL,
		"size": len(data),
	})

	return data, nil
}
