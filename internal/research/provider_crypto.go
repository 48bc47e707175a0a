package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3"

// coinAliases maps common names and tickers to CoinGecko ids, in priority
// order so a query naming several coins resolves deterministically.
var coinAliases = []struct{ alias, id string }{
	{"bitcoin", "bitcoin"},
	{"btc", "bitcoin"},
	{"ethereum", "ethereum"},
	{"eth", "ethereum"},
	{"cardano", "cardano"},
	{"ada", "cardano"},
	{"ripple", "ripple"},
	{"xrp", "ripple"},
	{"solana", "solana"},
	{"sol", "solana"},
	{"litecoin", "litecoin"},
	{"ltc", "litecoin"},
	{"dogecoin", "dogecoin"},
	{"doge", "dogecoin"},
}

// CryptoProvider fetches live market data from the CoinGecko simple price
// API. Queries that do not name a known coin default to bitcoin.
type CryptoProvider struct {
	client   *HTTPClient
	endpoint string
}

func NewCryptoProvider(client *HTTPClient, endpoint string) *CryptoProvider {
	if endpoint == "" {
		endpoint = defaultCoinGeckoEndpoint
	}
	return &CryptoProvider{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

func (p *CryptoProvider) Topic() string { return TopicCrypto }

func (p *CryptoProvider) Fetch(ctx context.Context, query string) (Findings, error) {
	coin := matchCoin(query)
	u := fmt.Sprintf("%s/simple/price?%s", p.endpoint, url.Values{
		"ids":                {coin},
		"vs_currencies":      {"usd"},
		"include_market_cap": {"true"},
		"include_24h_vol":    {"true"},
		"include_24h_change": {"true"},
	}.Encode())

	var resp map[string]struct {
		USD          float64 `json:"usd"`
		USDMarketCap float64 `json:"usd_market_cap"`
		USD24hVol    float64 `json:"usd_24h_vol"`
		USD24hChange float64 `json:"usd_24h_change"`
	}
	if err := p.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return Findings{}, err
	}
	quote, ok := resp[coin]
	if !ok {
		return Findings{}, fmt.Errorf("%w: no quote for %s", ErrNoData, coin)
	}

	return Findings{
		Topic:     TopicCrypto,
		Summary:   fmt.Sprintf("Research findings for %s: %s trading at $%.2f (%.2f%% over 24h)", query, coin, quote.USD, quote.USD24hChange),
		Source:    "CoinGecko",
		FetchedAt: time.Now().UTC(),
		Items: []Item{
			{Label: "coin", Value: coin},
			{Label: "price_usd", Value: fmt.Sprintf("$%.2f", quote.USD)},
			{Label: "market_cap_usd", Value: fmt.Sprintf("$%.0f", quote.USDMarketCap)},
			{Label: "24h_volume_usd", Value: fmt.Sprintf("$%.0f", quote.USD24hVol)},
			{Label: "24h_change_percent", Value: fmt.Sprintf("%.2f%%", quote.USD24hChange)},
		},
	}, nil
}

func matchCoin(query string) string {
	q := strings.ToLower(query)
	for _, c := range coinAliases {
		if strings.Contains(q, c.alias) {
			return c.id
		}
	}
	return "bitcoin"
}
