package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/researcher/internal/search"
	"github.com/mohammad-safakhou/researcher/internal/store"
)

// HistoryHandler serves the stored-result endpoints: listing, fetching,
// deleting, full-text search and the activity summary.
type HistoryHandler struct {
	Store        *store.Store
	Index        *search.Index
	DefaultLimit int
	Logger       *log.Logger
}

func (h *HistoryHandler) Register(g *echo.Group) {
	g.GET("/history", h.history)
	g.GET("/results/:id", h.result)
	g.DELETE("/results/:id", h.remove)
	g.GET("/search", h.search)
	g.GET("/summary", h.summary)
}

// history returns the most recent results, newest first.
//
//	@Summary	List research history
//	@Tags		research
//	@Param		limit	query	int	false	"Maximum entries to return"
//	@Produce	json
//	@Success	200	{object}	HistoryResponse
//	@Failure	400	{object}	HTTPError
//	@Router		/api/research/history [get]
func (h *HistoryHandler) history(c echo.Context) error {
	limit := h.DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	results, err := h.Store.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, HistoryResponse{Count: len(results), History: results})
}

// result returns one stored result by id.
//
//	@Summary	Fetch one research result
//	@Tags		research
//	@Param		id	path	int	true	"Result ID"
//	@Produce	json
//	@Success	200	{object}	store.Result
//	@Failure	404	{object}	HTTPError
//	@Router		/api/research/results/{id} [get]
func (h *HistoryHandler) result(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rec, ok, err := h.Store.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "result not found")
	}
	return c.JSON(http.StatusOK, rec)
}

// remove permanently deletes one stored result.
//
//	@Summary	Delete one research result
//	@Tags		research
//	@Param		id	path	int	true	"Result ID"
//	@Produce	json
//	@Success	200	{object}	DeleteResponse
//	@Failure	404	{object}	HTTPError
//	@Router		/api/research/results/{id} [delete]
func (h *HistoryHandler) remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ok, err := h.Store.Delete(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "result not found")
	}
	if err := h.Index.Remove(id); err != nil {
		h.logf("drop result %d from index: %v", id, err)
	}
	return c.JSON(http.StatusOK, DeleteResponse{Success: true, Message: fmt.Sprintf("Research result %d deleted", id)})
}

// search runs a full-text query over stored results.
//
//	@Summary	Search research history
//	@Tags		research
//	@Param		q		query	string	true	"Query string"
//	@Param		limit	query	int		false	"Maximum hits to return"
//	@Produce	json
//	@Success	200	{object}	SearchResponse
//	@Failure	400	{object}	HTTPError
//	@Router		/api/research/search [get]
func (h *HistoryHandler) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	hits, err := h.Index.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("bad query: %v", err))
	}

	ctx := c.Request().Context()
	results := make([]store.Result, 0, len(hits))
	for _, hit := range hits {
		rec, ok, err := h.Store.Get(ctx, hit.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			// deleted since it was indexed
			continue
		}
		results = append(results, rec)
	}
	return c.JSON(http.StatusOK, SearchResponse{Count: len(results), Results: results})
}

// summary reports stored totals and the latest queries.
//
//	@Summary	Research activity summary
//	@Tags		research
//	@Produce	json
//	@Success	200	{object}	SummaryResponse
//	@Router		/api/research/summary [get]
func (h *HistoryHandler) summary(c echo.Context) error {
	ctx := c.Request().Context()
	total, err := h.Store.Count(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	recent, err := h.Store.List(ctx, 5)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	queries := make([]string, 0, len(recent))
	for _, r := range recent {
		queries = append(queries, r.Query)
	}
	return c.JSON(http.StatusOK, SummaryResponse{TotalResearch: total, RecentQueries: queries})
}

func (h *HistoryHandler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}
