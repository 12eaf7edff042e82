package turn

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/domain"
)

// ErrTurnInFlight rejects a submit while a previous turn is still running.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// State is the lifecycle of one turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingSession
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSession:
		return "awaiting-session"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InFlight reports whether the submit affordance must stay disabled.
func (s State) InFlight() bool {
	return s == StateAwaitingSession || s == StateStreaming
}

// EventSource is the drained side of a council stream. *client.EventStream
// implements it; tests substitute slice-backed fakes.
type EventSource interface {
	Next() (domain.StreamEvent, bool)
	Err() error
	Close() error
}

// API is the slice of the council client a turn needs.
type API interface {
	CreateSession(ctx context.Context) (domain.SessionSummary, error)
	Council(ctx context.Context, content string, cfg domain.ModelConfig, sessionID string) (EventSource, error)
}

// Snapshot is one externally-observable view of the turn: a fresh message
// list plus the turn state. Receivers must treat Messages as immutable.
type Snapshot struct {
	Messages  []domain.Message
	State     State
	SessionID string
}

// Result is the terminal outcome of a turn.
type Result struct {
	State     State
	SessionID string
	Messages  []domain.Message
	// NeedsRefresh signals that the session list should be re-read: the
	// server may have retitled the session during this turn.
	NeedsRefresh bool
	Err          error
}

// Orchestrator owns the optimistic message-list state for turns. Every fold
// step publishes a copy-on-write snapshot; there is no shared mutable
// structure between the orchestrator and its observers.
type Orchestrator struct {
	api      API
	publish  func(Snapshot)
	logger   *slog.Logger
	inFlight atomic.Bool
}

// New creates an orchestrator. publish receives every intermediate snapshot
// and may be nil when only the final Result matters.
func New(api API, publish func(Snapshot), logger *slog.Logger) *Orchestrator {
	if publish == nil {
		publish = func(Snapshot) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{api: api, publish: publish, logger: logger}
}

// Run executes one turn against the base message list:
//
//  1. Resolve a session id, creating a session when none is active. A
//     creation failure aborts before any message is appended.
//  2. Optimistically append the user message and an assistant shell.
//  3. Drain the stream, folding each event into the last message.
//
// A failure before any event was decoded rolls the two optimistic messages
// back; a failure after that point is recorded on the assistant message,
// preserving the partial stage data already folded in. Cancelling ctx
// abandons the turn: the stream read stops and remaining events are
// discarded.
func (o *Orchestrator) Run(ctx context.Context, content string, cfg domain.ModelConfig, sessionID string, base []domain.Message) Result {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Result{State: StateFailed, SessionID: sessionID, Messages: base, Err: ErrTurnInFlight}
	}
	defer o.inFlight.Store(false)

	if sessionID == "" {
		o.publish(Snapshot{Messages: base, State: StateAwaitingSession})
		created, err := o.api.CreateSession(ctx)
		if err != nil {
			o.logger.Error("session creation failed", "error", err)
			o.publish(Snapshot{Messages: base, State: StateFailed})
			return Result{State: StateFailed, Messages: base, Err: err}
		}
		sessionID = created.ID
	}

	// Optimistic append: the user message and the assistant shell travel
	// together, and either both persist or both roll back.
	messages := make([]domain.Message, 0, len(base)+2)
	messages = append(messages, base...)
	messages = append(messages, domain.NewUserMessage(content), domain.NewAssistantShell())
	o.publish(Snapshot{Messages: messages, State: StateStreaming, SessionID: sessionID})

	stream, err := o.api.Council(ctx, content, cfg, sessionID)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			// The whole view resets on credential invalidation; rolling
			// back here would be redundant churn.
			return Result{State: StateFailed, SessionID: sessionID, Messages: messages, Err: err}
		}
		o.publish(Snapshot{Messages: base, State: StateFailed, SessionID: sessionID})
		return Result{State: StateFailed, SessionID: sessionID, Messages: base, Err: err}
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			o.logger.Debug("stream close failed", "error", closeErr)
		}
	}()

	eventCount := 0
	for {
		ev, ok := stream.Next()
		if !ok {
			break
		}
		eventCount++

		switch ev.Type {
		case domain.EventComplete:
			o.publish(Snapshot{Messages: messages, State: StateCompleted, SessionID: sessionID})
			return Result{State: StateCompleted, SessionID: sessionID, Messages: messages, NeedsRefresh: true}

		case domain.EventError:
			messages = o.fold(messages, ev)
			o.publish(Snapshot{Messages: messages, State: StateFailed, SessionID: sessionID})
			return Result{State: StateFailed, SessionID: sessionID, Messages: messages}

		default:
			messages = o.fold(messages, ev)
			o.publish(Snapshot{Messages: messages, State: StateStreaming, SessionID: sessionID})
		}
	}

	if ctx.Err() != nil {
		// Abandoned turn (session switch or shutdown): discard silently.
		return Result{State: StateFailed, SessionID: sessionID, Messages: messages, Err: ctx.Err()}
	}

	streamErr := stream.Err()
	if eventCount == 0 {
		// Nothing was folded yet, so the optimistic pair can be removed
		// cleanly, restoring the pre-submit list.
		o.publish(Snapshot{Messages: base, State: StateFailed, SessionID: sessionID})
		if streamErr == nil {
			streamErr = errors.New("stream closed before any event")
		}
		return Result{State: StateFailed, SessionID: sessionID, Messages: base, Err: streamErr}
	}

	// Partial results stay visible; the failure is recorded in place.
	message := "Connection lost"
	if streamErr != nil {
		message = streamErr.Error()
	}
	messages = o.fold(messages, domain.StreamEvent{Type: domain.EventError, Message: message})
	o.publish(Snapshot{Messages: messages, State: StateFailed, SessionID: sessionID})
	return Result{State: StateFailed, SessionID: sessionID, Messages: messages, Err: streamErr}
}

// fold applies one event to the last message, producing a fresh slice so
// observers holding earlier snapshots never see mutation.
func (o *Orchestrator) fold(messages []domain.Message, ev domain.StreamEvent) []domain.Message {
	next := make([]domain.Message, len(messages))
	copy(next, messages)
	next[len(next)-1] = Apply(next[len(next)-1], ev)
	return next
}
