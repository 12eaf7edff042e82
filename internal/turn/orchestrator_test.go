package turn

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/domain"
)

type fakeStream struct {
	events []domain.StreamEvent
	pos    int
	err    error
	closed bool
}

func (s *fakeStream) Next() (domain.StreamEvent, bool) {
	if s.pos >= len(s.events) {
		return domain.StreamEvent{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { s.closed = true; return nil }

type fakeAPI struct {
	created    int
	createErr  error
	councilErr error
	stream     *fakeStream
	sessionIDs []string
}

func (a *fakeAPI) CreateSession(ctx context.Context) (domain.SessionSummary, error) {
	a.created++
	if a.createErr != nil {
		return domain.SessionSummary{}, a.createErr
	}
	return domain.SessionSummary{ID: "sess-new", Title: domain.DefaultSessionTitle}, nil
}

func (a *fakeAPI) Council(ctx context.Context, content string, cfg domain.ModelConfig, sessionID string) (EventSource, error) {
	a.sessionIDs = append(a.sessionIDs, sessionID)
	if a.councilErr != nil {
		return nil, a.councilErr
	}
	return a.stream, nil
}

func rawData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func happyEvents(t *testing.T) []domain.StreamEvent {
	t.Helper()
	return []domain.StreamEvent{
		{Type: domain.EventStage1Start, Models: []string{"m1"}},
		{Type: domain.EventStage1Complete, Data: rawData(t, map[string]string{"m1": "answer"})},
		{Type: domain.EventStage3Complete, Data: rawData(t, domain.Synthesis{Model: "chair", Response: "final"})},
		{Type: domain.EventComplete},
	}
}

func baseHistory() []domain.Message {
	return []domain.Message{
		domain.NewUserMessage("earlier question"),
		{Role: domain.RoleAssistant, Stage3: &domain.Synthesis{Model: "chair", Response: "earlier answer"}},
	}
}

func TestRunCompletes(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{events: happyEvents(t)}}
	var snaps []Snapshot
	o := New(api, func(s Snapshot) { snaps = append(snaps, s) }, nil)

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", baseHistory())

	assert.Equal(t, StateCompleted, res.State)
	assert.True(t, res.NeedsRefresh)
	assert.Equal(t, "sess-1", res.SessionID)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, "ask", res.Messages[2].Content)
	require.NotNil(t, res.Messages[3].Stage3)
	assert.Equal(t, "final", res.Messages[3].Stage3.Response)
	assert.True(t, api.stream.closed)
	assert.Equal(t, 0, api.created, "no session must be created when one is active")

	require.NotEmpty(t, snaps)
	assert.Equal(t, StateCompleted, snaps[len(snaps)-1].State)
}

func TestRunCreatesExactlyOneSession(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{events: happyEvents(t)}}
	o := New(api, nil, nil)

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "", nil)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, api.created)
	assert.Equal(t, "sess-new", res.SessionID)
	assert.Equal(t, []string{"sess-new"}, api.sessionIDs)
}

func TestRunSessionCreationFailureLeavesListUnchanged(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("boom")}
	o := New(api, nil, nil)
	base := baseHistory()

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "", base)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorContains(t, res.Err, "boom")
	assert.Equal(t, base, res.Messages)
	assert.Empty(t, api.sessionIDs, "the council must not be called")
}

func TestRunOpenFailureRollsBackBothMessages(t *testing.T) {
	api := &fakeAPI{councilErr: errors.New("connection refused")}
	var snaps []Snapshot
	o := New(api, func(s Snapshot) { snaps = append(snaps, s) }, nil)
	base := baseHistory()

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", base)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, base, res.Messages)

	// The optimistic pair was visible before the rollback.
	var sawOptimistic bool
	for _, s := range snaps {
		if len(s.Messages) == len(base)+2 {
			sawOptimistic = true
		}
	}
	assert.True(t, sawOptimistic)
}

func TestRunUnauthorizedOpenDoesNotRollBack(t *testing.T) {
	api := &fakeAPI{councilErr: client.ErrUnauthorized}
	o := New(api, nil, nil)
	base := baseHistory()

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", base)

	assert.ErrorIs(t, res.Err, client.ErrUnauthorized)
	assert.Len(t, res.Messages, len(base)+2, "caller resets the whole view instead")
}

func TestRunEmptyStreamRollsBack(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{err: errors.New("read: connection reset")}}
	o := New(api, nil, nil)
	base := baseHistory()

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", base)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorContains(t, res.Err, "connection reset")
	assert.Equal(t, base, res.Messages)
}

func TestRunMidStreamFailurePreservesPartialResults(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{
		events: []domain.StreamEvent{
			{Type: domain.EventStage1Start, Models: []string{"m1"}},
			{Type: domain.EventStage1Complete, Data: rawData(t, map[string]string{"m1": "partial answer"})},
		},
		err: errors.New("unexpected EOF"),
	}}
	o := New(api, nil, nil)
	base := baseHistory()

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", base)

	assert.Equal(t, StateFailed, res.State)
	require.Len(t, res.Messages, len(base)+2)
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, "partial answer", last.Stage1["m1"])
	assert.Equal(t, "unexpected EOF", last.Err)
	assert.Equal(t, domain.LoadingState{}, last.Loading)
}

func TestRunErrorEventRecordsInPlace(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{events: []domain.StreamEvent{
		{Type: domain.EventStage1Start, Models: []string{"m1"}},
		{Type: domain.EventError, Message: "all council models failed"},
	}}}
	o := New(api, nil, nil)

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", nil)

	assert.Equal(t, StateFailed, res.State)
	assert.NoError(t, res.Err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "all council models failed", res.Messages[1].Err)
}

func TestRunCancelledContextDiscards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeAPI{stream: &fakeStream{}}
	o := New(api, nil, nil)

	res := o.Run(ctx, "ask", domain.ModelConfig{}, "sess-1", nil)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Len(t, res.Messages, 2, "no rollback churn on an abandoned turn")
}

func TestRunRejectsConcurrentTurn(t *testing.T) {
	o := New(&fakeAPI{}, nil, nil)
	o.inFlight.Store(true)

	res := o.Run(context.Background(), "ask", domain.ModelConfig{}, "sess-1", nil)

	assert.ErrorIs(t, res.Err, ErrTurnInFlight)
}
