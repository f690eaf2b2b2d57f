package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

var blankLinesRe = regexp.MustCompile(`\n{2,}`)

// WebExtractor fetches a page and keeps the longest text block found in the
// usual content containers. Static fetch only; script-rendered pages yield
// whatever the server sends.
type WebExtractor struct {
	client *resty.Client
}

// WebConfig holds web extractor configuration.
type WebConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// NewWebExtractor creates a web extractor.
func NewWebExtractor(cfg *WebConfig) *WebExtractor {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &WebExtractor{client: client}
}

// Extract returns the main textual content of the page at url.
func (e *WebExtractor) Extract(ctx context.Context, url string) (string, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}

	doc.Find("script, style, noscript").Remove()

	best := ""
	for _, selector := range []string{"article", "main", "section", "body"} {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > len(best) {
				best = text
			}
		})
	}

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(best, "\n")), nil
}
