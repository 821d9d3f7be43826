package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	fetchTimeout     = 30 * time.Second
	fetchMaxBodySize = 5 * 1024 * 1024
	fetchMaxChars    = 100_000 // max characters returned to the LLM
	fetchUserAgent   = "torq/1.0 (LLM agent console)"
	fetchCacheTTL    = 15 * time.Minute
)

type fetchCacheEntry struct {
	content   string
	fetchedAt time.Time
}

var (
	fetchCache   = map[string]fetchCacheEntry{}
	fetchCacheMu sync.Mutex
)

func fetchCacheGet(key string) (string, bool) {
	fetchCacheMu.Lock()
	defer fetchCacheMu.Unlock()
	e, ok := fetchCache[key]
	if !ok || time.Since(e.fetchedAt) > fetchCacheTTL {
		if ok {
			delete(fetchCache, key)
		}
		return "", false
	}
	return e.content, true
}

func fetchCacheSet(key, content string) {
	fetchCacheMu.Lock()
	defer fetchCacheMu.Unlock()
	// Evict expired entries when the cache grows large.
	if len(fetchCache) > 100 {
		now := time.Now()
		for k, e := range fetchCache {
			if now.Sub(e.fetchedAt) > fetchCacheTTL {
				delete(fetchCache, k)
			}
		}
	}
	fetchCache[key] = fetchCacheEntry{content: content, fetchedAt: time.Now()}
}

// crossDomainRedirect signals that a fetch was redirected off the original host.
type crossDomainRedirect struct{ URL string }

func (e *crossDomainRedirect) Error() string { return "cross-domain redirect to " + e.URL }

// WebFetchTool fetches a web page and converts it to markdown.
type WebFetchTool struct{}

func (t *WebFetchTool) Name() string                     { return "web_fetch" }
func (t *WebFetchTool) IsReadOnly() bool                 { return true }
func (t *WebFetchTool) PermissionLevel() PermissionLevel { return PermissionRead }

func (t *WebFetchTool) Description() string {
	return `Fetch a web page and convert it to markdown for reading.
Use this to read documentation, articles, and other online content found via web_search.
If the page redirects to a different domain, a new request with the redirect URL is needed.
Results are cached for 15 minutes.`
}

func (t *WebFetchTool) Parameters() map[string]any {
	return map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "The URL to fetch (http or https)",
		},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.URL == "" {
		return ToolResult{}, fmt.Errorf("url is required")
	}

	u, err := url.Parse(p.URL)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid URL: %v", err), IsError: true}, nil
	}
	// Auto-upgrade http to https.
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	if u.Scheme != "https" {
		return ToolResult{Content: "Only http and https URLs are supported", IsError: true}, nil
	}

	fetchURL := u.String()
	if cached, ok := fetchCacheGet(fetchURL); ok {
		return ToolResult{Content: fmt.Sprintf("URL: %s (cached)\n\n%s", fetchURL, cached)}, nil
	}

	originalHost := u.Host
	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			if req.URL.Host == originalHost {
				return nil
			}
			return &crossDomainRedirect{URL: req.URL.String()}
		},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fetchURL, nil)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Failed to create request: %v", err), IsError: true}, nil
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,text/plain,text/markdown,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		var cdr *crossDomainRedirect
		if errors.As(err, &cdr) {
			return ToolResult{
				Content: fmt.Sprintf("Redirect to a different domain detected.\nThe URL redirects to: %s\nMake a new web_fetch request with this URL.", cdr.URL),
			}, nil
		}
		if ctx.Err() != nil {
			return ToolResult{}, fmt.Errorf("cancelled")
		}
		return ToolResult{Content: fmt.Sprintf("HTTP request failed: %v", err), IsError: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ToolResult{
			Content: fmt.Sprintf("HTTP %d %s for %s", resp.StatusCode, http.StatusText(resp.StatusCode), fetchURL),
			IsError: true,
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodySize))
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Failed to read response: %v", err), IsError: true}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	var content string
	switch {
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		content, err = htmltomarkdown.ConvertString(string(body))
		if err != nil {
			return ToolResult{Content: fmt.Sprintf("Failed to convert HTML: %v", err), IsError: true}, nil
		}
	default:
		content = string(body)
	}

	truncated := false
	if len(content) > fetchMaxChars {
		content = content[:fetchMaxChars] + "\n\n[content truncated]"
		truncated = true
	}

	fetchCacheSet(fetchURL, content)
	return ToolResult{
		Content:   fmt.Sprintf("URL: %s\n\n%s", fetchURL, content),
		Truncated: truncated,
	}, nil
}
