package server

import (
	"context"
	"log"

	"github.com/mohammad-safakhou/researcher/internal/research"
	"github.com/mohammad-safakhou/researcher/internal/search"
	"github.com/mohammad-safakhou/researcher/internal/store"
)

// indexedWriter persists results and mirrors them into the search index.
// Indexing is best-effort: by the time it runs the durable write has
// already succeeded, so an index failure is logged, not returned.
type indexedWriter struct {
	store  *store.Store
	index  *search.Index
	logger *log.Logger
}

func (w *indexedWriter) Append(ctx context.Context, query string, f research.Findings) (int64, error) {
	id, err := w.store.Append(ctx, query, f)
	if err != nil {
		return 0, err
	}
	if err := w.index.Add(id, query, f); err != nil && w.logger != nil {
		w.logger.Printf("index result %d: %v", id, err)
	}
	return id, nil
}
