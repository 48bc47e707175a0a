package research

import "time"

// EventStatus tags one progress event variant on the wire.
type EventStatus string

const (
	StatusStarted   EventStatus = "started"
	StatusProgress  EventStatus = "progress"
	StatusCompleted EventStatus = "completed"
	StatusError     EventStatus = "error"
)

// Task labels attached to progress events.
const (
	TaskClassify = "classify"
	TaskSearch   = "search"
	TaskAnalyze  = "analyze"
)

// Topics a query can classify into.
const (
	TopicCrypto  = "crypto"
	TopicNews    = "news"
	TopicGeneral = "general"
)

// Event is one unit of session status relayed to the client. Its JSON
// encoding is the wire format; nothing downstream rebuilds these shapes.
type Event struct {
	Status    EventStatus `json:"status"`
	Message   string      `json:"message"`
	Task      string      `json:"task,omitempty"`
	ToolCalls int         `json:"tool_calls,omitempty"`
	Results   *Findings   `json:"results,omitempty"`
	ResultID  int64       `json:"result_id,omitempty"`
}

// Terminal reports whether no further events may follow e in its session.
func (e Event) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusError
}

// Findings is the structured outcome of one research session. Items carry
// flattened label/value pairs so exporting and indexing need no per-topic
// knowledge.
type Findings struct {
	Topic     string    `json:"topic"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Items     []Item    `json:"items"`
}

// Item is a single flattened finding field.
type Item struct {
	Label string `json:"label"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}
