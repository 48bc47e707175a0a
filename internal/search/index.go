// Package search maintains a full-text index over stored research results.
package search

import (
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/researcher/internal/research"
)

// Document is the indexed projection of one stored result.
type Document struct {
	Query   string `json:"query"`
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Body    string `json:"body"`
}

// Hit is one search match pointing back at the stored result.
type Hit struct {
	ID      int64   `json:"id"`
	Query   string  `json:"query"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

// Index is a memory-only bleve index over stored results. It is rebuilt from
// the store at boot and kept in step by the result writer, so losing it on
// restart loses nothing durable. A nil *Index is a valid no-op.
type Index struct {
	mu   sync.RWMutex
	idx  bleve.Index
	meta map[string]Hit
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx, meta: map[string]Hit{}}, nil
}

// Add indexes one stored result under its identifier. Re-adding an id
// replaces the previous document.
func (ix *Index) Add(id int64, query string, f research.Findings) error {
	if ix == nil {
		return nil
	}
	var body strings.Builder
	for _, it := range f.Items {
		body.WriteString(it.Label)
		body.WriteString(" ")
		body.WriteString(it.Value)
		body.WriteString("\n")
	}
	doc := Document{Query: query, Topic: f.Topic, Summary: f.Summary, Source: f.Source, Body: body.String()}

	docID := strconv.FormatInt(id, 10)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.idx.Index(docID, doc); err != nil {
		return err
	}
	ix.meta[docID] = Hit{ID: id, Query: query, Summary: snippet(f.Summary)}
	return nil
}

// Remove drops a deleted result from the index.
func (ix *Index) Remove(id int64) error {
	if ix == nil {
		return nil
	}
	docID := strconv.FormatInt(id, 10)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.meta, docID)
	return ix.idx.Delete(docID)
}

// Search returns up to limit hits for a bleve query string, best first.
func (ix *Index) Search(q string, limit int) ([]Hit, error) {
	if ix == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit, ok := ix.meta[h.ID]
		if !ok {
			continue
		}
		hit.Score = h.Score
		out = append(out, hit)
	}
	return out, nil
}

func snippet(s string) string {
	if len(s) <= 300 {
		return s
	}
	// back off to a rune boundary so the cut never splits an encoding
	cut := 300
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
