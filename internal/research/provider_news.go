package research

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const defaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"

// NewsProvider searches recent English-language coverage through NewsAPI.
type NewsProvider struct {
	client     *HTTPClient
	endpoint   string
	apiKey     string
	maxResults int
}

func NewNewsProvider(client *HTTPClient, endpoint, apiKey string, maxResults int) *NewsProvider {
	if endpoint == "" {
		endpoint = defaultNewsAPIEndpoint
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &NewsProvider{client: client, endpoint: endpoint, apiKey: apiKey, maxResults: maxResults}
}

func (p *NewsProvider) Topic() string { return TopicNews }

func (p *NewsProvider) Fetch(ctx context.Context, query string) (Findings, error) {
	if p.apiKey == "" {
		return Findings{}, fmt.Errorf("%w: newsapi key not configured", ErrProviderUnavailable)
	}
	u := fmt.Sprintf("%s?%s", p.endpoint, url.Values{
		"q":        {query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(p.maxResults)},
	}.Encode())

	var resp struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := p.client.GetJSON(ctx, u, map[string]string{"X-Api-Key": p.apiKey}, &resp); err != nil {
		return Findings{}, err
	}
	if resp.Status == "error" {
		return Findings{}, fmt.Errorf("%w: newsapi: %s", ErrProviderUnavailable, resp.Message)
	}

	var items []Item
	for _, a := range resp.Articles {
		// skip removed or content-less entries
		if a.Title == "" || a.URL == "" {
			continue
		}
		desc := a.Description
		if desc == "" {
			desc = a.Content
		}
		if desc == "" {
			continue
		}
		label := a.Title
		if a.Source.Name != "" {
			label = fmt.Sprintf("%s (%s)", a.Title, a.Source.Name)
		}
		items = append(items, Item{Label: label, Value: desc, URL: a.URL})
	}
	if len(items) == 0 {
		return Findings{}, fmt.Errorf("%w: no articles found for %q", ErrNoData, query)
	}

	return Findings{
		Topic:     TopicNews,
		Summary:   fmt.Sprintf("Research findings for %s: %d recent articles", query, len(items)),
		Source:    "NewsAPI",
		FetchedAt: time.Now().UTC(),
		Items:     items,
	}, nil
}
