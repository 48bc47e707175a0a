package server

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/researcher/internal/store"
)

// ExportHandler turns one stored result into a downloadable CSV.
type ExportHandler struct {
	Store *store.Store
}

func (h *ExportHandler) Register(g *echo.Group) {
	g.POST("/export/:id", h.export)
}

// export builds the whole CSV in memory before sending the first byte, so a
// missing id or a write error can never produce a partial download.
//
//	@Summary	Export one research result as CSV
//	@Tags		research
//	@Param		id	path	int	true	"Result ID"
//	@Produce	text/csv
//	@Success	200	{string}	string
//	@Failure	404	{object}	HTTPError
//	@Router		/api/research/export/{id} [post]
func (h *ExportHandler) export(c echo.Context) error {
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

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		{"field", "value"},
		{"query", rec.Query},
		{"topic", rec.Findings.Topic},
		{"summary", rec.Findings.Summary},
		{"source", rec.Findings.Source},
		{"fetched_at", rec.Findings.FetchedAt.Format(time.RFC3339)},
	}
	for _, item := range rec.Findings.Items {
		value := item.Value
		if item.URL != "" {
			value = fmt.Sprintf("%s (%s)", item.Value, item.URL)
		}
		rows = append(rows, []string{item.Label, value})
	}
	if err := w.WriteAll(rows); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=research_%d.csv", id))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
