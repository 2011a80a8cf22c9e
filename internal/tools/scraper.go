package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/parakeetchat/parakeet/internal/security"
)

// maxFetchBytes bounds the fetched document size.
const maxFetchBytes = 2 << 20 // 2MB

const fetchUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Page is the readable extraction of a fetched document.
type Page struct {
	URL         string
	Title       string
	Description string
	Content     string
}

// scraper fetches and extracts prospect homepages. Every target passes
// through the SSRF validator before and during the fetch.
type scraper struct {
	validator *security.URL
	client    *http.Client
}

// Fetch downloads a page and reduces it to title, meta description, and the
// readable body text.
func (s *scraper) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(target); err != nil {
		return nil, fmt.Errorf("URL rejected: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return extractPage(target, body)
}

// extractPage pulls the title and meta description with goquery and the main
// text via readability. A page readability cannot parse degrades to the raw
// document text rather than failing the tool call.
func extractPage(target string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	page := &Page{
		URL:         target,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil && strings.TrimSpace(article.TextContent) != "" {
		page.Content = collapseWhitespace(article.TextContent)
		if page.Title == "" {
			page.Title = article.Title
		}
	} else {
		page.Content = collapseWhitespace(doc.Find("body").Text())
	}

	return page, nil
}

// normalizeURL defaults bare hostnames to https.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: missing host")
	}
	return u.String(), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
