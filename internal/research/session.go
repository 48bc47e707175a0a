package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle position of one research session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateStarted
	StateCompleted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionOptions bound the provider call made on behalf of a session.
type SessionOptions struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryBackoff   time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 10 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	return o
}

// Session drives one validated query to a terminal state, emitting the
// ordered event sequence on its channel. Constructed only for non-empty
// queries; validation happens in the orchestrator.
type Session struct {
	ID    string
	Query string

	registry *Registry
	opts     SessionOptions
	logger   *log.Logger

	events    chan Event
	done      bool
	toolCalls int

	mu    sync.Mutex
	state SessionState
}

func NewSession(query string, registry *Registry, opts SessionOptions, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.Writer(), "[SESSION] ", log.LstdFlags)
	}
	return &Session{
		ID:       uuid.NewString(),
		Query:    query,
		registry: registry,
		opts:     opts.withDefaults(),
		logger:   logger,
		events:   make(chan Event, 16),
	}
}

// Events is the ordered event stream for the session. It is closed once the
// session reaches a terminal state.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run executes the session to completion and closes the event channel. The
// emitted sequence is exactly one started, zero or more progress, then one
// completed or error, on every path including cancellation.
func (s *Session) Run(ctx context.Context) {
	defer close(s.events)

	s.setState(StateStarted)
	s.emit(ctx, Event{Status: StatusStarted, Message: "Research session started"})
	s.emit(ctx, Event{Status: StatusProgress, Message: "Analyzing query", Task: TaskClassify})

	topic := s.registry.Classify(s.Query)
	findings, err := s.fetchWithRetry(ctx, topic)
	if err != nil {
		s.setState(StateFailed)
		s.logger.Printf("session %s failed: %v", s.ID, err)
		s.emit(ctx, Event{Status: StatusError, Message: failureMessage(err)})
		return
	}

	s.emit(ctx, Event{Status: StatusProgress, Message: "Analyzing findings", Task: TaskAnalyze, ToolCalls: s.toolCalls})
	s.setState(StateCompleted)
	s.emit(ctx, Event{Status: StatusCompleted, Message: "Research completed", Results: &findings})
}

// fetchWithRetry makes up to MaxAttempts provider calls, each bounded by
// AttemptTimeout, backing off between attempts. Only transient failures are
// retried; a no-data outcome and a cancelled parent context end the loop at
// once.
func (s *Session) fetchWithRetry(ctx context.Context, topic string) (Findings, error) {
	var lastErr error
	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.opts.RetryBackoff * time.Duration(1<<(attempt-1))):
			case <-ctx.Done():
				return Findings{}, ctx.Err()
			}
		}
		s.toolCalls++
		if attempt == 0 {
			s.emit(ctx, Event{Status: StatusProgress, Message: fmt.Sprintf("Searching %s sources", topic), Task: TaskSearch, ToolCalls: s.toolCalls})
		} else {
			s.emit(ctx, Event{Status: StatusProgress, Message: fmt.Sprintf("Retrying %s lookup (attempt %d of %d)", topic, attempt+1, s.opts.MaxAttempts), Task: TaskSearch, ToolCalls: s.toolCalls})
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
		findings, err := s.registry.Fetch(attemptCtx, topic, s.Query)
		cancel()
		if err == nil {
			return findings, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Findings{}, ctx.Err()
		}
		if !transient(err) {
			return Findings{}, err
		}
		s.logger.Printf("session %s attempt %d/%d: %v", s.ID, attempt+1, s.opts.MaxAttempts, err)
	}
	return Findings{}, lastErr
}

// emit forwards ev unless a terminal event has already been sent; once the
// context is cancelled events are dropped rather than blocking on a channel
// nobody drains.
func (s *Session) emit(ctx context.Context, ev Event) {
	if s.done {
		return
	}
	if ev.Terminal() {
		s.done = true
	}
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// failureMessage maps an internal failure to the category message shown to
// the client. Raw causes stay in the logs.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "No data available for this query"
	case errors.Is(err, ErrProviderTimeout):
		return "Research sources timed out"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Research session cancelled"
	case errors.Is(err, ErrProviderUnavailable):
		return "Research sources are unavailable"
	default:
		return "Research failed"
	}
}
