package research

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// Sink receives relayed events for one connection. A Send error means the
// connection is gone and the in-flight session should be abandoned.
type Sink interface {
	Send(Event) error
}

// ResultWriter persists a completed session and returns its identifier.
type ResultWriter interface {
	Append(ctx context.Context, query string, findings Findings) (int64, error)
}

// Orchestrator owns session processing for one live connection: at most one
// machine in flight, events relayed in emission order, the result persisted
// before the completed event is released downstream.
type Orchestrator struct {
	registry *Registry
	results  ResultWriter
	sink     Sink
	opts     SessionOptions
	tele     *telemetry.Telemetry
	logger   *log.Logger

	mu      sync.Mutex
	current *Session
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

func NewOrchestrator(registry *Registry, results ResultWriter, sink Sink, opts SessionOptions, tele *telemetry.Telemetry, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{registry: registry, results: results, sink: sink, opts: opts, tele: tele, logger: logger}
}

// Submit validates query and starts a session for it. The two rejection
// outcomes, ErrEmptyQuery and ErrBusy, leave any in-flight session untouched;
// the caller decides how to report them on the wire.
func (o *Orchestrator) Submit(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}

	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		return ErrBusy
	}
	sess := NewSession(query, o.registry, o.opts, o.logger)
	sctx, cancel := context.WithCancel(ctx)
	o.current, o.cancel = sess, cancel
	o.mu.Unlock()

	o.tele.SessionStarted()
	o.logger.Printf("session %s accepted query %q", sess.ID, query)
	o.wg.Add(1)
	go sess.Run(sctx)
	go o.relay(sctx, cancel, sess)
	return nil
}

// relay drains the session's events in order. The completed event is held
// until its result is stored; a storage failure downgrades it to an error so
// data loss is explicit. A sink failure aborts the session.
func (o *Orchestrator) relay(ctx context.Context, cancel context.CancelFunc, sess *Session) {
	defer o.wg.Done()
	defer func() {
		cancel()
		o.clearCurrent(sess)
	}()

	for ev := range sess.Events() {
		if ev.Status == StatusCompleted && ev.Results != nil {
			id, err := o.results.Append(ctx, sess.Query, *ev.Results)
			if err != nil {
				o.logger.Printf("session %s: persisting result failed: %v", sess.ID, err)
				ev = Event{Status: StatusError, Message: "Failed to save research result"}
			} else {
				ev.ResultID = id
				o.tele.ResultStored()
			}
		}
		if ev.Terminal() {
			o.observeOutcome(ev.Status)
			// free the slot before the client can see the terminal event,
			// so a follow-up query on the same connection is never
			// spuriously rejected
			o.clearCurrent(sess)
		}
		if err := o.sink.Send(ev); err != nil {
			o.logger.Printf("session %s: send failed, aborting: %v", sess.ID, err)
			cancel()
			for range sess.Events() {
			}
			return
		}
	}
}

// Close aborts any in-flight session and waits for its goroutines to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// clearCurrent frees the single-flight slot only while sess still owns it.
// The relay frees the slot before relaying the terminal event, so by the time
// its deferred cleanup runs a follow-up session may already hold the slot.
func (o *Orchestrator) clearCurrent(sess *Session) {
	o.mu.Lock()
	if o.current == sess {
		o.current, o.cancel = nil, nil
	}
	o.mu.Unlock()
}

func (o *Orchestrator) observeOutcome(status EventStatus) {
	if status == StatusCompleted {
		o.tele.SessionCompleted()
	} else {
		o.tele.SessionFailed()
	}
}
