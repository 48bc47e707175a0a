package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// Provider turns a query into findings for one topic. Implementations make
// a single attempt bounded by ctx; the retry policy lives in the session.
type Provider interface {
	Topic() string
	Fetch(ctx context.Context, query string) (Findings, error)
}

// Registry classifies queries and dispatches them to the provider registered
// for the topic, with an optional read-through cache in front.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	cache  *Cache
	tele   *telemetry.Telemetry
	logger *log.Logger
}

func NewRegistry(cache *Cache, tele *telemetry.Telemetry, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.Writer(), "[PROVIDER] ", log.LstdFlags)
	}
	return &Registry{providers: map[string]Provider{}, cache: cache, tele: tele, logger: logger}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Topic()] = p
}

// Topics returns the registered topic names, sorted.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Classify maps a free-text query to a topic. Crypto terms win, then news
// terms; everything else is a general lookup.
func (r *Registry) Classify(query string) string {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "bitcoin", "btc", "ethereum", "crypto", "dogecoin", "solana", "cardano"):
		return TopicCrypto
	case containsAny(q, "news", "headline", "article"):
		return TopicNews
	default:
		return TopicGeneral
	}
}

// Fetch dispatches query to the provider registered for topic, falling back
// to the general provider for unknown topics. Cache hits bypass the provider;
// cache faults fall through to a live fetch.
func (r *Registry) Fetch(ctx context.Context, topic, query string) (Findings, error) {
	r.mu.RLock()
	p, ok := r.providers[topic]
	if !ok {
		p, ok = r.providers[TopicGeneral]
	}
	r.mu.RUnlock()
	if !ok {
		return Findings{}, fmt.Errorf("%w: no provider registered for topic %q", ErrProviderUnavailable, topic)
	}

	if f, hit := r.cache.Get(ctx, topic, query); hit {
		r.tele.ProviderCacheHit(topic)
		return f, nil
	}

	start := time.Now()
	f, err := p.Fetch(ctx, query)
	r.tele.ObserveProvider(topic, outcomeLabel(err), time.Since(start))
	if err != nil {
		r.logger.Printf("fetch %s %q: %v", topic, query, err)
		return Findings{}, err
	}
	r.cache.Set(ctx, topic, query, f)
	return f, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unavailable"
	}
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
