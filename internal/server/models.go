package server

import "github.com/mohammad-safakhou/researcher/internal/store"

// HTTPError is the generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// HistoryResponse lists stored research results, newest first.
type HistoryResponse struct {
	Count   int            `json:"count"`
	History []store.Result `json:"history"`
}

// DeleteResponse acknowledges a permanent delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SearchResponse carries full-text matches over stored results.
type SearchResponse struct {
	Count   int            `json:"count"`
	Results []store.Result `json:"results"`
}

// SummaryResponse is a small rollup of stored research activity.
type SummaryResponse struct {
	TotalResearch int64    `json:"total_research"`
	RecentQueries []string `json:"recent_queries"`
}

// QueryRequest is the client→server message on the research stream.
type QueryRequest struct {
	Query string `json:"query"`
}
