package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/researcher/internal/research"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The frontend is served from a separate origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler hosts the live research stream: one websocket per client,
// one orchestrator per connection.
type StreamHandler struct {
	Registry *research.Registry
	Results  research.ResultWriter
	Opts     research.SessionOptions
	Tele     *telemetry.Telemetry
	Logger   *log.Logger
}

func (h *StreamHandler) Register(e *echo.Echo) {
	e.GET("/ws/research", h.serve)
}

// wsSink serializes event writes onto one connection.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(ev research.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

func (h *StreamHandler) serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the failure response.
		return nil
	}
	defer conn.Close()

	logger := h.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[STREAM] ", log.LstdFlags)
	}
	sink := &wsSink{conn: conn}
	orch := research.NewOrchestrator(h.Registry, h.Results, sink, h.Opts, h.Tele, logger)
	defer orch.Close()

	ctx := c.Request().Context()
	remote := conn.RemoteAddr().String()
	logger.Printf("client connected: %s", remote)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Printf("client %s read: %v", remote, err)
			}
			return nil
		}
		var req QueryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if sendErr := sink.Send(research.Event{Status: research.StatusError, Message: "Invalid request payload"}); sendErr != nil {
				return nil
			}
			continue
		}
		if err := orch.Submit(ctx, req.Query); err != nil {
			// A rejection answers this message only; an in-flight session
			// keeps streaming untouched.
			if sendErr := sink.Send(research.Event{Status: research.StatusError, Message: rejectionMessage(err)}); sendErr != nil {
				return nil
			}
		}
	}
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, research.ErrEmptyQuery):
		return "Query must not be empty"
	case errors.Is(err, research.ErrBusy):
		return "A research session is already in progress"
	default:
		return "Unable to start research session"
	}
}
