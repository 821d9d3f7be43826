package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	searchTimeout     = 30 * time.Second
	defaultMaxResults = 5
	maxSearchResults  = 20
	snippetMaxChars   = 300
)

// SearchResult is the common format for search results across providers.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// WebSearchTool searches the web using a configurable backend.
type WebSearchTool struct {
	Provider string // "tavily", "exa", or "jina"
	APIKey   string

	// HTTPClient overrides the default client, used in tests.
	HTTPClient *http.Client
}

// NewWebSearchTool creates a WebSearchTool with the given config.
// Provider priority: explicit > tavily (if key set) > jina (free fallback).
func NewWebSearchTool(provider, apiKey string) *WebSearchTool {
	if provider == "" {
		if apiKey != "" {
			provider = "tavily"
		} else {
			provider = "jina"
		}
	}
	return &WebSearchTool{Provider: provider, APIKey: apiKey}
}

func (t *WebSearchTool) Name() string                     { return "web_search" }
func (t *WebSearchTool) IsReadOnly() bool                 { return true }
func (t *WebSearchTool) PermissionLevel() PermissionLevel { return PermissionRead }

func (t *WebSearchTool) Description() string {
	return `Search the web for current information, news, or documentation.
Returns a list of relevant results with titles, URLs, and snippets.
Use specific, targeted queries for best results.`
}

func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The search query",
		},
		"max_results": map[string]any{
			"type":        "integer",
			"description": "Maximum number of results (default 5, max 20)",
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Query == "" {
		return ToolResult{}, fmt.Errorf("query is required")
	}
	if p.MaxResults <= 0 {
		p.MaxResults = defaultMaxResults
	}
	if p.MaxResults > maxSearchResults {
		p.MaxResults = maxSearchResults
	}

	switch t.Provider {
	case "tavily":
		return t.searchTavily(ctx, p.Query, p.MaxResults)
	case "exa":
		return t.searchExa(ctx, p.Query, p.MaxResults)
	default:
		return t.searchJina(ctx, p.Query, p.MaxResults)
	}
}

func (t *WebSearchTool) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}

// searchTavily queries the Tavily search API.
func (t *WebSearchTool) searchTavily(ctx context.Context, query string, maxResults int) (ToolResult, error) {
	if t.APIKey == "" {
		return ToolResult{
			Content: "Tavily API key not configured. Set web.search_api_key in config or TAVILY_API_KEY env var, or switch to the jina provider.",
			IsError: true,
		}, nil
	}

	reqBody, _ := json.Marshal(map[string]any{
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "basic",
	})

	body, errResult := t.doSearch(ctx, "POST", "https://api.tavily.com/search", string(reqBody), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + t.APIKey,
	}, "Tavily")
	if errResult != nil {
		return *errResult, nil
	}

	return ToolResult{Content: formatSearchResults(query, parseTavilyResults(body, maxResults))}, nil
}

// searchExa queries the Exa AI search API.
func (t *WebSearchTool) searchExa(ctx context.Context, query string, maxResults int) (ToolResult, error) {
	if t.APIKey == "" {
		return ToolResult{
			Content: "Exa API key not configured. Set web.search_api_key in config or EXA_API_KEY env var.",
			IsError: true,
		}, nil
	}

	reqBody, _ := json.Marshal(map[string]any{
		"query":      query,
		"numResults": maxResults,
		"type":       "auto",
		"contents": map[string]any{
			"text": map[string]any{"maxCharacters": snippetMaxChars},
		},
	})

	body, errResult := t.doSearch(ctx, "POST", "https://api.exa.ai/search", string(reqBody), map[string]string{
		"Content-Type": "application/json",
		"x-api-key":    t.APIKey,
	}, "Exa")
	if errResult != nil {
		return *errResult, nil
	}

	return ToolResult{Content: formatSearchResults(query, parseExaResults(body, maxResults))}, nil
}

// searchJina queries the Jina Search API (free, no key required).
func (t *WebSearchTool) searchJina(ctx context.Context, query string, maxResults int) (ToolResult, error) {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": fetchUserAgent,
	}
	if t.APIKey != "" {
		headers["Authorization"] = "Bearer " + t.APIKey
	}

	searchURL := "https://s.jina.ai/" + url.PathEscape(query)
	body, errResult := t.doSearch(ctx, "GET", searchURL, "", headers, "Jina")
	if errResult != nil {
		return *errResult, nil
	}

	return ToolResult{Content: formatSearchResults(query, parseJinaResults(body, maxResults))}, nil
}

// doSearch performs the HTTP request shared by all search backends.
// On failure it returns a user-facing ToolResult instead of an error so the
// LLM sees the failure and can react.
func (t *WebSearchTool) doSearch(ctx context.Context, method, endpoint, reqBody string, headers map[string]string, label string) ([]byte, *ToolResult) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var bodyReader io.Reader
	if reqBody != "" {
		bodyReader = strings.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, &ToolResult{Content: fmt.Sprintf("Failed to create request: %v", err), IsError: true}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ToolResult{Content: "search cancelled", IsError: true}
		}
		return nil, &ToolResult{Content: fmt.Sprintf("Search request failed: %v", err), IsError: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ToolResult{
			Content: fmt.Sprintf("%s API error (HTTP %d): %s", label, resp.StatusCode, string(snippet)),
			IsError: true,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ToolResult{Content: fmt.Sprintf("Failed to read response: %v", err), IsError: true}
	}
	return body, nil
}

func parseTavilyResults(body []byte, max int) []SearchResult {
	var out []SearchResult
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		if len(out) >= max {
			return false
		}
		out = append(out, SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Snippet: r.Get("content").String(),
		})
		return true
	})
	return out
}

func parseExaResults(body []byte, max int) []SearchResult {
	var out []SearchResult
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		if len(out) >= max {
			return false
		}
		out = append(out, SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Snippet: r.Get("text").String(),
		})
		return true
	})
	return out
}

func parseJinaResults(body []byte, max int) []SearchResult {
	var out []SearchResult
	gjson.GetBytes(body, "data").ForEach(func(_, r gjson.Result) bool {
		if len(out) >= max {
			return false
		}
		snippet := r.Get("description").String()
		if snippet == "" {
			snippet = r.Get("content").String()
			if len(snippet) > snippetMaxChars {
				snippet = snippet[:snippetMaxChars] + "..."
			}
		}
		out = append(out, SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Snippet: snippet,
		})
		return true
	})
	return out
}

// formatSearchResults produces a consistent text output for LLM consumption.
func formatSearchResults(query string, results []SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n\n", query)

	if len(results) == 0 {
		sb.WriteString("No results found.")
		return sb.String()
	}

	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "   URL: %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
