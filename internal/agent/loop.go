// Package agent implements the bounded agent execution loop.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keihibot/keihibot/internal/approval"
	"github.com/keihibot/keihibot/internal/provider"
	"github.com/keihibot/keihibot/internal/session"
	"github.com/keihibot/keihibot/internal/tools"
)

// WorkerKind identifies one category of filing the desk can handle.
type WorkerKind string

const (
	// KindTravel is the travel expense worker.
	KindTravel WorkerKind = "travel"
	// KindReceipt is the receipt expense worker.
	KindReceipt WorkerKind = "receipt"
)

// ResultKind distinguishes a normal reply from a cancellation the user
// issued through the approval gate.
type ResultKind int

const (
	// ResultMessage is a normal final reply.
	ResultMessage ResultKind = iota
	// ResultCancelled is a final reply produced after the user withdrew the
	// gated operation. Callers must forward the text verbatim.
	ResultCancelled
)

// Result is the outcome of one invocation.
type Result struct {
	Kind ResultKind
	Text string
}

// WorkerOptions configures one worker unit.
type WorkerOptions struct {
	Kind          WorkerKind
	DisplayName   string
	Provider      provider.LLMProvider
	Gate          *approval.Gate
	Sessions      *session.Manager
	SystemPrompt  func(inv InvocationContext) string
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxIterations int
	HistoryWindow int
	// ExtraHooks are composed after the built-in loop control, in order.
	ExtraHooks []Hooks
}

// Worker is a specialized agent handling one category of request end to
// end. It owns its own loop controller and approval gate; neither is shared
// with other workers. Invocations on one worker are strictly sequential.
type Worker struct {
	kind     WorkerKind
	name     string
	provider provider.LLMProvider
	gate     *approval.Gate
	sessions *session.Manager
	registry *tools.Registry
	prompt   func(inv InvocationContext) string

	model         string
	maxTokens     int
	temperature   float64
	historyWindow int

	loopControl *LoopControl
	hooks       Hooks

	boundSession  string
	activeSubject string
}

// NewWorker creates a worker unit. Tools are registered afterwards via
// Registry, so report tools can read the worker's current subject.
func NewWorker(opts WorkerOptions) *Worker {
	name := opts.DisplayName
	if name == "" {
		name = string(opts.Kind)
	}
	lc := NewLoopControl(name, opts.MaxIterations)
	hooks := MultiHooks(append([]Hooks{lc, &LogHooks{}}, opts.ExtraHooks...))

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &Worker{
		kind:          opts.Kind,
		name:          name,
		provider:      opts.Provider,
		gate:          opts.Gate,
		sessions:      opts.Sessions,
		registry:      tools.NewRegistry(),
		prompt:        opts.SystemPrompt,
		model:         opts.Model,
		maxTokens:     maxTokens,
		temperature:   opts.Temperature,
		historyWindow: opts.HistoryWindow,
		loopControl:   lc,
		hooks:         hooks,
	}
}

// Kind returns the worker's category.
func (w *Worker) Kind() WorkerKind { return w.kind }

// Name returns the worker's display name.
func (w *Worker) Name() string { return w.name }

// Registry returns the worker's tool registry.
func (w *Worker) Registry() *tools.Registry { return w.registry }

// CurrentSubject returns the applicant name of the running invocation.
// Report tools use it instead of a model-supplied argument.
func (w *Worker) CurrentSubject() string { return w.activeSubject }

// Iterations returns the successful model-call count of the current or most
// recent invocation.
func (w *Worker) Iterations() int { return w.loopControl.Iterations() }

// Handle runs one bounded invocation for a user turn. The session log is
// durable before Handle returns, on every path.
func (w *Worker) Handle(ctx context.Context, inv InvocationContext, userTurn string) (Result, error) {
	if inv.SessionID == "" {
		return Result{}, fmt.Errorf("worker %s: invocation carries no session", w.name)
	}
	if w.boundSession == "" {
		w.boundSession = inv.SessionID
	} else if w.boundSession != inv.SessionID {
		return Result{}, fmt.Errorf("%w: worker %s bound to %s, got %s",
			ErrSessionMismatch, w.name, w.boundSession, inv.SessionID)
	}

	sess, err := w.sessions.GetOrCreate(sessionKey(inv.SessionID, w.kind), string(w.kind))
	if err != nil {
		return Result{}, err
	}

	w.activeSubject = inv.SubjectName
	w.hooks.OnInvocationStart(w.name)
	defer w.hooks.OnInvocationEnd()

	sess.Append(session.Turn{Role: provider.RoleUser, Content: userTurn})
	messages := w.buildMessages(inv, sess)

	res, runErr := w.run(ctx, sess, messages)
	if saveErr := w.sessions.Save(sess); saveErr != nil {
		if runErr == nil {
			return Result{}, fmt.Errorf("persist session: %w", saveErr)
		}
		slog.Error("Failed to persist session", "session", sess.Key, "error", saveErr)
	}
	return res, runErr
}

func (w *Worker) buildMessages(inv InvocationContext, sess *session.Session) []provider.Message {
	history := sess.History(w.historyWindow)
	messages := make([]provider.Message, 0, len(history)+1)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: w.prompt(inv),
	})
	for _, turn := range history {
		messages = append(messages, provider.Message{
			Role:       turn.Role,
			Content:    turn.Content,
			ToolCalls:  turn.ToolCalls,
			ToolCallID: turn.ToolCallID,
		})
	}
	return messages
}

// run drives the model-call/tool-call cycles of one invocation. The budget
// lives in the composed hooks; run itself never counts iterations.
func (w *Worker) run(ctx context.Context, sess *session.Session, messages []provider.Message) (Result, error) {
	toolDefs := w.registry.Definitions()
	cancelled := false

	for {
		resp, err := w.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       w.model,
			MaxTokens:   w.maxTokens,
			Temperature: w.temperature,
		})
		if err != nil {
			// The provider has already retried; the failure is terminal for
			// this invocation and the attempt does not consume budget.
			_ = w.hooks.OnModelCallCompleted(false)
			return Result{}, fmt.Errorf("%w: %s", ErrModelUnavailable, err)
		}
		if hookErr := w.hooks.OnModelCallCompleted(true); hookErr != nil {
			return Result{}, hookErr
		}

		if len(resp.ToolCalls) == 0 {
			sess.Append(session.Turn{Role: provider.RoleAssistant, Content: resp.Content})
			kind := ResultMessage
			if cancelled {
				kind = ResultCancelled
			}
			return Result{Kind: kind, Text: resp.Content}, nil
		}

		assistant := provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		messages = append(messages, assistant)
		sess.Append(session.Turn{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := w.executeToolCall(ctx, tc, &cancelled)
			messages = append(messages, provider.Message{
				Role:       provider.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
			sess.Append(session.Turn{
				Role:       provider.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
}

// executeToolCall runs one requested operation behind the approval gate. A
// denial becomes the operation's result so the model can react to it in
// natural language; it is never raised as an error and never retried here.
func (w *Worker) executeToolCall(ctx context.Context, tc provider.ToolCall, cancelled *bool) string {
	outcome := w.gate.BeforeOperation(ctx, tc.Name, tc.Arguments)
	if !outcome.Allow {
		if outcome.Withdrawn {
			*cancelled = true
		}
		return outcome.Narrative
	}

	w.hooks.OnToolCallStart(tc.Name, tc.Arguments)
	result, err := w.registry.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		result = fmt.Sprintf("Error: %v", err)
	}
	w.hooks.OnToolCallCompleted(tc.Name, result, err)
	return result
}

func sessionKey(sessionID string, kind WorkerKind) string {
	return sessionID + ":" + string(kind)
}
