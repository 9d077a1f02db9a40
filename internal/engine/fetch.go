package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/net/html"
)

var htmlTagRe = regexp.MustCompile(`(?i)<(html|body|div|p|br|ul|ol|li|h[1-6]|span|strong|em|b|section|article|table)\b[^>]*>`)

// LooksLikeHTML reports whether s is markup rather than plain text.
func LooksLikeHTML(s string) bool {
	return len(htmlTagRe.FindAllStringIndex(s, 3)) >= 2
}

// HTMLToText converts an HTML fragment to readable text: markdown via html-to-markdown,
// falling back to a plain text walk of the parsed tree.
func HTMLToText(s string) string {
	md, err := htmltomarkdown.ConvertString(s)
	if err == nil && strings.TrimSpace(md) != "" {
		return NormalizeNewlines(md)
	}
	return NormalizeNewlines(walkText(s))
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "tr": true, "table": true,
}

// walkText extracts text nodes, skipping script/style and breaking lines at block elements.
func walkText(s string) string {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "li" {
			sb.WriteString("\n- ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(root)
	return sb.String()
}

// JobPosting is the text of a fetched job page.
type JobPosting struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

var contentSelectors = []string{
	"[class*=job-description]", "[id*=job-description]",
	"[class*=description]", "[id*=description]",
	"article", "main", "[role=main]",
}

// FetchJobPosting downloads a job page and reduces it to posting text.
// Successful fetches are cached by URL.
func FetchJobPosting(ctx context.Context, rawURL string) (*JobPosting, error) {
	key := CacheKey("posting", rawURL)
	if cached, ok := CacheLoadJSON[JobPosting](ctx, key); ok {
		return &cached, nil
	}
	metrics.FetchRequests.Add(1)
	posting, err := fetchJobPosting(ctx, rawURL)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return nil, err
	}
	CacheStoreJSON(ctx, key, *posting)
	return posting, nil
}

func fetchJobPosting(ctx context.Context, rawURL string) (*JobPosting, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("fetch: invalid url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	resp, err := stealth.RetryHTTP(ctx, stealth.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		for k, v := range stealth.ChromeHeaders() {
			req.Header.Set(k, v)
		}
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: http %d", u.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", u.Host, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		text := NormalizeNewlines(string(body))
		if text == "" {
			return nil, errors.New("fetch: empty body")
		}
		return &JobPosting{URL: u.String(), Text: text}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: parse html: %w", u.Host, err)
	}
	doc.Find("script, style, noscript, iframe, svg, nav, footer, header, aside, form").Remove()

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	sel := doc.Find("body")
	for _, s := range contentSelectors {
		if found := doc.Find(s).First(); found.Length() > 0 && len(strings.TrimSpace(found.Text())) > 200 {
			sel = found
			break
		}
	}
	fragment, err := sel.Html()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: render content: %w", u.Host, err)
	}
	text := HTMLToText(fragment)
	if title != "" && !strings.Contains(text, title) {
		text = title + "\n\n" + text
	}
	if text == "" {
		return nil, errors.New("fetch: no text content")
	}
	return &JobPosting{URL: u.String(), Title: title, Text: text}, nil
}
