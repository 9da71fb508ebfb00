package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
)

// FetchURLContentTool fetches a page and reports its title, description and
// a short text excerpt.
type FetchURLContentTool struct {
	client *http.Client
}

// NewFetchURLContentTool returns the tool. A nil client gets a default one
// with the fetch timeout.
func NewFetchURLContentTool(client *http.Client) *FetchURLContentTool {
	if client == nil {
		client = &http.Client{Timeout: runtimecfg.ToolFetchHTTPTimeout}
	}
	return &FetchURLContentTool{client: client}
}

// Def returns the tool definition.
func (t *FetchURLContentTool) Def() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "fetchUrlContent",
			Description: "Fetch the content of a URL / web page and return its title, description and a text excerpt.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The URL to fetch.",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

type fetchURLArgs struct {
	URL string `json:"url"`
}

// PageSummary is what fetchUrlContent reports.
type PageSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Excerpt     string `json:"excerpt,omitempty"`
}

// Run executes the tool.
func (t *FetchURLContentTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var a fetchURLArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(strings.TrimSpace(a.URL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("only http and https URLs are supported")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", runtimecfg.ToolFetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	summary, err := summarizePage(io.LimitReader(resp.Body, runtimecfg.ToolFetchMaxReadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	summary.URL = parsedURL.String()
	logger.Info("fetched url", "url", summary.URL, "title", summary.Title)

	data, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return "Fetched URL content: " + string(data), nil
}

// summarizePage extracts title and description, falling back to Open Graph
// tags when the plain ones are missing.
func summarizePage(r io.Reader) (PageSummary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageSummary{}, err
	}

	var s PageSummary
	s.Title = strings.TrimSpace(doc.Find("title").First().Text())
	s.Description = metaContent(doc, `meta[name="description"]`)
	if s.Title == "" {
		s.Title = metaContent(doc, `meta[property="og:title"]`)
	}
	if s.Description == "" {
		s.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	doc.Find("script,style,noscript").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	lines := strings.Split(text, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			clean = append(clean, line)
		}
	}
	excerpt := strings.Join(clean, "\n")
	if runes := []rune(excerpt); len(runes) > runtimecfg.ToolFetchMaxContentChars {
		excerpt = string(runes[:runtimecfg.ToolFetchMaxContentChars]) + "..."
	}
	s.Excerpt = excerpt
	return s, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
