package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keihibot/keihibot/internal/agent"
	"github.com/keihibot/keihibot/internal/approval"
	"github.com/keihibot/keihibot/internal/config"
	"github.com/keihibot/keihibot/internal/provider"
	"github.com/keihibot/keihibot/internal/session"
	"github.com/keihibot/keihibot/internal/tools"
)

type scriptedProvider struct {
	steps    []func() (*provider.ChatResponse, error)
	requests []*provider.ChatRequest
}

func (s *scriptedProvider) DefaultModel() string { return "test-model" }

func (s *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.steps) {
		return &provider.ChatResponse{Content: "done"}, nil
	}
	return s.steps[len(s.requests)-1]()
}

func reply(text string) func() (*provider.ChatResponse, error) {
	return func() (*provider.ChatResponse, error) {
		return &provider.ChatResponse{Content: text}, nil
	}
}

func requestOp(name string) func() (*provider.ChatResponse, error) {
	return func() (*provider.ChatResponse, error) {
		return &provider.ChatResponse{ToolCalls: []provider.ToolCall{
			{ID: "call_1", Name: name, Arguments: map[string]any{}},
		}}, nil
	}
}

func newTestDesk(t *testing.T, p provider.LLMProvider, decide approval.DecisionFunc) *Desk {
	t.Helper()
	cfg := config.Default(t.TempDir())
	require.NoError(t, cfg.EnsureDirs())
	sessions, err := session.NewManager(cfg.Paths.SessionsDir)
	require.NoError(t, err)

	return NewDesk(DeskOptions{
		Config:   cfg,
		Provider: p,
		Sessions: sessions,
		Fares: &tools.FareTable{
			TrainFares: []tools.TrainRoute{{Departure: "shibuya", Destination: "shinjuku", Fare: 160}},
			FixedFares: map[string]float64{"bus": 210, "taxi": 1500, "airplane": 25000},
		},
		Decide: decide,
	})
}

func proceed(ctx context.Context, op string, args map[string]any) (approval.Decision, error) {
	return approval.Decision{Kind: approval.Proceed}, nil
}

func TestClassifyIsTotal(t *testing.T) {
	cases := []struct {
		turn string
		want Route
	}{
		{"I took the train from Shibuya", RouteTravel},
		{"出張の交通費を申請したい", RouteTravel},
		{"I have a receipt for stationery", RouteReceipt},
		{"領収書の経費を精算したい", RouteReceipt},
		{"hello", RouteClarify},
		{"", RouteClarify},
		{"a receipt for my taxi and train trip to the airport", RouteTravel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.turn), "turn: %q", tc.turn)
	}
}

func TestOpenValidatesIdentity(t *testing.T) {
	d := newTestDesk(t, &scriptedProvider{}, proceed)

	_, err := d.Open("", "2026-08-29")
	assert.Error(t, err)
	_, err = d.Open("Tanaka", "not-a-date")
	assert.Error(t, err)

	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	thread, ok := d.Thread(id)
	require.True(t, ok)
	assert.Equal(t, id, thread.Context().SessionID)
}

func TestDispatchUnknownSession(t *testing.T) {
	d := newTestDesk(t, &scriptedProvider{}, proceed)
	_, err := d.Dispatch(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestClarificationWithoutDelegation(t *testing.T) {
	p := &scriptedProvider{}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), id, "hello there")
	require.NoError(t, err)
	assert.Equal(t, ClarificationReply, out)
	assert.Empty(t, p.requests, "no worker may be invoked for a clarification")
}

func TestAmbiguousFollowUpSticksToActiveWorker(t *testing.T) {
	p := &scriptedProvider{steps: []func() (*provider.ChatResponse, error){
		reply("Where did the trip start?"),
		reply("And the destination?"),
	}}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), id, "I want to file travel expenses")
	require.NoError(t, err)
	assert.Equal(t, "Where did the trip start?", out)

	// "Shibuya" alone carries no routing signal; it must continue the
	// travel conversation rather than bounce to clarification.
	out, err = d.Dispatch(context.Background(), id, "Shibuya")
	require.NoError(t, err)
	assert.Equal(t, "And the destination?", out)
	require.Len(t, p.requests, 2)
	assert.Contains(t, p.requests[1].Messages[0].Content, "travel expense filing desk")
}

func TestWorkersAreIsolatedPerKind(t *testing.T) {
	p := &scriptedProvider{steps: []func() (*provider.ChatResponse, error){
		reply("Travel: where to?"),
		reply("Receipt: which store?"),
	}}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), id, "file my train fare")
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), id, "also a receipt for a book")
	require.NoError(t, err)

	require.Len(t, p.requests, 2)
	// Each worker starts its own conversation; the receipt worker must not
	// see the travel turns.
	assert.Contains(t, p.requests[1].Messages[0].Content, "receipt expense filing desk")
	for _, m := range p.requests[1].Messages {
		assert.NotContains(t, m.Content, "train fare")
	}
}

func TestCancelledReplyForwardedVerbatim(t *testing.T) {
	const closing = "I have cancelled the filing. Let me know if you need anything else."
	p := &scriptedProvider{steps: []func() (*provider.ChatResponse, error){
		requestOp("receipt_report_generator"),
		reply(closing),
	}}
	cancel := func(ctx context.Context, op string, args map[string]any) (approval.Decision, error) {
		return approval.Decision{Kind: approval.Cancel}, nil
	}
	d := newTestDesk(t, p, cancel)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), id, "file this receipt")
	require.NoError(t, err)
	assert.Equal(t, closing, out)
}

func TestLoopLimitBecomesGuidanceNotError(t *testing.T) {
	endless := requestOp("calculate_fare")
	steps := make([]func() (*provider.ChatResponse, error), 0, 8)
	for i := 0; i < 8; i++ {
		steps = append(steps, endless)
	}
	p := &scriptedProvider{steps: steps}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), id, "file my train trip")
	require.NoError(t, err, "an exhausted budget is not a process error")
	assert.Equal(t, loopLimitReply, out)

	// The conversation survives; the next turn runs on a fresh budget.
	p.steps = []func() (*provider.ChatResponse, error){reply("Back with you.")}
	p.requests = nil
	out, err = d.Dispatch(context.Background(), id, "one train segment only")
	require.NoError(t, err)
	assert.Equal(t, "Back with you.", out)
}

func TestModelFailureIsFatal(t *testing.T) {
	p := &scriptedProvider{steps: []func() (*provider.ChatResponse, error){
		func() (*provider.ChatResponse, error) { return nil, errors.New("connection refused") },
	}}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), id, "file my train trip")
	assert.ErrorIs(t, err, agent.ErrModelUnavailable)
}

func TestResetIsAllOrNothing(t *testing.T) {
	p := &scriptedProvider{steps: []func() (*provider.ChatResponse, error){
		reply("Where to?"),
	}}
	d := newTestDesk(t, p, proceed)
	id, err := d.Open("Tanaka", "2026-08-29")
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), id, "file my train trip")
	require.NoError(t, err)

	d.Reset(id)

	_, ok := d.Thread(id)
	assert.False(t, ok)
	_, err = d.Dispatch(context.Background(), id, "continue where we were")
	assert.ErrorIs(t, err, ErrUnknownSession, "a reset session requires a fresh Open")
}
