package research

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestCacheKeyNormalizesQuery(t *testing.T) {
	cases := []struct {
		topic string
		query string
		want  string
	}{
		{TopicCrypto, "bitcoin price", "findings:crypto:bitcoin price"},
		{TopicCrypto, "  Bitcoin Price ", "findings:crypto:bitcoin price"},
		{TopicNews, "GO News", "findings:news:go news"},
	}
	for _, tc := range cases {
		if got := cacheKey(tc.topic, tc.query); got != tc.want {
			t.Fatalf("cacheKey(%q, %q) = %q, want %q", tc.topic, tc.query, got, tc.want)
		}
	}
}

// An unreachable Redis must degrade to a pass-through: every lookup misses,
// every store attempt is swallowed, and the provider keeps serving.
func TestCacheFaultFallsThroughToProvider(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewCache(client, nil, testLogger())
	ctx := context.Background()

	if _, hit := cache.Get(ctx, TopicGeneral, "anything"); hit {
		t.Fatalf("unreachable cache reported a hit")
	}
	cache.Set(ctx, TopicGeneral, "anything", stubFindings(TopicGeneral))

	calls := 0
	reg := NewRegistry(cache, nil, testLogger())
	reg.Register(&stubProvider{topic: TopicGeneral, fetch: func(ctx context.Context, query string) (Findings, error) {
		calls++
		return stubFindings(TopicGeneral), nil
	}})

	for i := 0; i < 2; i++ {
		f, err := reg.Fetch(ctx, TopicGeneral, "anything")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if f.Source != "Stub" {
			t.Fatalf("fetch %d findings %+v", i, f)
		}
	}
	if calls != 2 {
		t.Fatalf("expected the provider on every call, got %d", calls)
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if _, hit := c.Get(ctx, TopicCrypto, "bitcoin"); hit {
		t.Fatalf("nil cache reported a hit")
	}
	c.Set(ctx, TopicCrypto, "bitcoin", stubFindings(TopicCrypto))
}
