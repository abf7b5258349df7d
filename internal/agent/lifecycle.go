package agent

import "log/slog"

// Hooks is the fixed lifecycle interface for one invocation. The loop fires
// the checkpoints in a strictly linear order: invocation start, one or more
// model-call completions each optionally followed by tool-call start/completed
// pairs, then invocation end. OnInvocationEnd always runs, including after a
// loop-limit condition.
type Hooks interface {
	// OnInvocationStart marks the boundary of a new invocation.
	OnInvocationStart(owner string)
	// OnModelCallCompleted reports one model-call outcome. A returned error
	// stops the invocation before any further model call.
	OnModelCallCompleted(succeeded bool) error
	// OnToolCallStart fires before an allowed operation executes.
	OnToolCallStart(name string, args map[string]any)
	// OnToolCallCompleted fires after an operation finishes, successfully
	// or not.
	OnToolCallCompleted(name string, result string, err error)
	// OnInvocationEnd finalizes diagnostics for the invocation.
	OnInvocationEnd()
}

// MultiHooks composes hooks in order. Every hook sees every checkpoint; the
// first error from OnModelCallCompleted wins but later hooks are still
// notified. Composition is resolved at construction time, not registered
// dynamically.
type MultiHooks []Hooks

func (m MultiHooks) OnInvocationStart(owner string) {
	for _, h := range m {
		h.OnInvocationStart(owner)
	}
}

func (m MultiHooks) OnModelCallCompleted(succeeded bool) error {
	var first error
	for _, h := range m {
		if err := h.OnModelCallCompleted(succeeded); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiHooks) OnToolCallStart(name string, args map[string]any) {
	for _, h := range m {
		h.OnToolCallStart(name, args)
	}
}

func (m MultiHooks) OnToolCallCompleted(name string, result string, err error) {
	for _, h := range m {
		h.OnToolCallCompleted(name, result, err)
	}
}

func (m MultiHooks) OnInvocationEnd() {
	for _, h := range m {
		h.OnInvocationEnd()
	}
}

// LogHooks emits a structured log line per lifecycle checkpoint.
type LogHooks struct {
	owner string
	calls int
}

func (l *LogHooks) OnInvocationStart(owner string) {
	l.owner = owner
	l.calls = 0
	slog.Info("Invocation started", "agent", owner)
}

func (l *LogHooks) OnModelCallCompleted(succeeded bool) error {
	if succeeded {
		l.calls++
	}
	slog.Debug("Model call completed", "agent", l.owner, "succeeded", succeeded, "calls", l.calls)
	return nil
}

func (l *LogHooks) OnToolCallStart(name string, args map[string]any) {
	slog.Debug("Tool call started", "agent", l.owner, "tool", name)
}

func (l *LogHooks) OnToolCallCompleted(name string, result string, err error) {
	slog.Debug("Tool call completed", "agent", l.owner, "tool", name,
		"result_length", len(result), "error", err)
}

func (l *LogHooks) OnInvocationEnd() {
	slog.Info("Invocation ended", "agent", l.owner, "model_calls", l.calls)
}
