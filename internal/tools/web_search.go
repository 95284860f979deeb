package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilymodels "github.com/diverged/tavily-go/models"
	"golang.org/x/sync/singleflight"
)

// DefaultDDGURL is the DuckDuckGo Instant Answer endpoint.
const DefaultDDGURL = "https://api.duckduckgo.com/"

const (
	maxSearchLines  = 5
	noSearchResults = "No results found."
	searchUserAgent = "agentforge/1.0"
	searchTimeout   = 10 * time.Second
)

// Searcher runs a web search and returns display lines, most relevant first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// WebSearch is the web_search native tool.
type WebSearch struct {
	searcher Searcher
	group    singleflight.Group
}

// NewWebSearch creates the web_search tool over the given searcher.
func NewWebSearch(s Searcher) *WebSearch {
	return &WebSearch{searcher: s}
}

// Run searches for args["query"]. Concurrent identical queries share one
// outbound request.
func (w *WebSearch) Run(ctx context.Context, args Args) (Output, error) {
	query := strings.TrimSpace(args.String("query"))
	if query == "" {
		return Output{}, errors.New("web_search: query is required")
	}

	// The shared search outlives any single caller; each caller stops
	// waiting on its own context.
	ch := w.group.DoChan(query, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchTimeout)
		defer cancel()
		return w.searcher.Search(sctx, query)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Degradedf("Web search error: %s", ctx.Err()), nil
	case res = <-ch:
	}
	if res.Err != nil {
		return Degradedf("Web search error: %s", res.Err), nil
	}

	lines := res.Val.([]string)
	if len(lines) == 0 {
		return Text(noSearchResults), nil
	}
	if len(lines) > maxSearchLines {
		lines = lines[:maxSearchLines]
	}
	return Text(strings.Join(lines, "\n")), nil
}

// TavilySearcher searches through the Tavily API.
type TavilySearcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavilySearcher creates a Tavily-backed searcher.
func NewTavilySearcher(apiKey string) *TavilySearcher {
	return &TavilySearcher{apiKey: apiKey, httpClient: &http.Client{Timeout: searchTimeout}}
}

// WithBaseURL overrides the Tavily endpoint.
func (t *TavilySearcher) WithBaseURL(baseURL string) *TavilySearcher {
	t.baseURL = baseURL
	return t
}

// WithHTTPClient overrides the HTTP client.
func (t *TavilySearcher) WithHTTPClient(client *http.Client) *TavilySearcher {
	t.httpClient = client
	return t
}

func (t *TavilySearcher) Search(ctx context.Context, query string) ([]string, error) {
	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	resp, err := tavilygo.Search(client, tavilymodels.SearchRequest{
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tavily search")
	}

	var lines []string
	if resp.Answer != "" {
		lines = append(lines, "Answer: "+resp.Answer)
	}
	for _, r := range resp.Results {
		switch {
		case r.Title != "" && r.URL != "":
			lines = append(lines, fmt.Sprintf("%s: %s (%s)", r.Title, r.Content, r.URL))
		case r.Content != "":
			lines = append(lines, r.Content)
		}
	}
	return lines, nil
}

// DuckDuckGoSearcher queries the keyless DuckDuckGo Instant Answer endpoint.
type DuckDuckGoSearcher struct {
	endpoint   string
	httpClient *http.Client
}

// NewDuckDuckGoSearcher creates a searcher for endpoint, or DefaultDDGURL when empty.
func NewDuckDuckGoSearcher(endpoint string) *DuckDuckGoSearcher {
	if endpoint == "" {
		endpoint = DefaultDDGURL
	}
	return &DuckDuckGoSearcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: searchTimeout},
	}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Answer        any        `json:"Answer"`
	Definition    string     `json:"Definition"`
	AbstractURL   string     `json:"AbstractURL"`
	DefinitionURL string     `json:"DefinitionURL"`
	AbstractText  string     `json:"AbstractText"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func (d *DuckDuckGoSearcher) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build duckduckgo request")
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "duckduckgo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.Newf("duckduckgo returned status %d", resp.StatusCode)
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decode duckduckgo response")
	}

	var lines []string
	answer := ""
	if s, ok := data.Answer.(string); ok {
		answer = s
	}
	if answer == "" {
		answer = data.Definition
	}
	if answer != "" {
		answerURL := data.AbstractURL
		if answerURL == "" {
			answerURL = data.DefinitionURL
		}
		if answerURL != "" {
			answer += " (" + answerURL + ")"
		}
		lines = append(lines, "Answer: "+answer)
	}
	if data.AbstractText != "" {
		lines = append(lines, "Abstract: "+data.AbstractText)
	}

	for i, r := range data.Results {
		if i == 3 {
			break
		}
		if r.Text == "" {
			continue
		}
		if r.FirstURL != "" {
			lines = append(lines, fmt.Sprintf("%s (%s)", r.Text, r.FirstURL))
		} else {
			lines = append(lines, r.Text)
		}
	}

	for _, item := range data.RelatedTopics {
		if len(lines) >= maxSearchLines {
			break
		}
		if item.Text != "" {
			lines = append(lines, item.Text)
			continue
		}
		for i, t := range item.Topics {
			if i == 2 {
				break
			}
			if t.Text != "" {
				lines = append(lines, t.Text)
			}
		}
	}
	return lines, nil
}
