package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultWikipediaEndpoint = "https://en.wikipedia.org/api/rest_v1/page/summary"

// localTopics answers a handful of common queries without a network round
// trip. Checked before Wikipedia, in order.
var localTopics = []struct {
	Key         string
	Title       string
	Description string
	Related     []string
}{
	{
		Key:         "machine learning",
		Title:       "Machine Learning",
		Description: "Machine learning is a subset of AI in which systems learn from experience without being explicitly programmed, processing data to find patterns and make predictions.",
		Related:     []string{"Supervised Learning", "Unsupervised Learning", "Reinforcement Learning"},
	},
	{
		Key:         "ai",
		Title:       "Artificial Intelligence",
		Description: "Artificial intelligence is the simulation of human intelligence processes by computer systems, covering learning from data, pattern recognition, language understanding and decision making.",
		Related:     []string{"Machine Learning", "Computer Vision", "Natural Language Processing", "Robotics"},
	},
	{
		Key:         "python",
		Title:       "Python Programming Language",
		Description: "Python is a high-level programming language known for simplicity and versatility, and a standard choice for AI and data science work.",
		Related:     []string{"NumPy", "Pandas", "TensorFlow", "PyTorch"},
	},
}

// GeneralProvider answers everything the other topics do not cover: local
// topic table first, then the Wikipedia page summary API.
type GeneralProvider struct {
	client   *HTTPClient
	endpoint string
}

func NewGeneralProvider(client *HTTPClient, endpoint string) *GeneralProvider {
	if endpoint == "" {
		endpoint = defaultWikipediaEndpoint
	}
	return &GeneralProvider{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

func (p *GeneralProvider) Topic() string { return TopicGeneral }

func (p *GeneralProvider) Fetch(ctx context.Context, query string) (Findings, error) {
	cleaned := cleanQuery(query)
	for _, t := range localTopics {
		if strings.Contains(cleaned, t.Key) || strings.Contains(t.Key, cleaned) {
			return Findings{
				Topic:     TopicGeneral,
				Summary:   fmt.Sprintf("Research findings for %s: %s", query, t.Title),
				Source:    "Local Database",
				FetchedAt: time.Now().UTC(),
				Items: []Item{
					{Label: "title", Value: t.Title},
					{Label: "description", Value: t.Description},
					{Label: "related", Value: strings.Join(t.Related, ", ")},
				},
			}, nil
		}
	}

	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	u := p.endpoint + "/" + url.PathEscape(title)

	var resp struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := p.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return Findings{}, err
	}
	if resp.Extract == "" {
		return Findings{}, fmt.Errorf("%w: no summary for %q", ErrNoData, query)
	}

	return Findings{
		Topic:     TopicGeneral,
		Summary:   fmt.Sprintf("Research findings for %s: %s", query, resp.Title),
		Source:    "Wikipedia",
		FetchedAt: time.Now().UTC(),
		Items: []Item{
			{Label: "title", Value: resp.Title, URL: resp.ContentURLs.Desktop.Page},
			{Label: "description", Value: resp.Extract},
		},
	}, nil
}

func cleanQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	return strings.NewReplacer(".", "", "?", "", "!", "").Replace(q)
}
