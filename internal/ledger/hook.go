package ledger

import "log/slog"

// InvocationHook records invocation boundaries into the ledger. It composes
// into a worker's lifecycle hooks and keeps its own success count so the
// recorded iterations match what the loop saw.
type InvocationHook struct {
	svc       *Service
	sessionID string

	rowID int64
	calls int
}

// NewInvocationHook creates a hook recording invocations for one session.
func NewInvocationHook(svc *Service, sessionID string) *InvocationHook {
	return &InvocationHook{svc: svc, sessionID: sessionID}
}

func (h *InvocationHook) OnInvocationStart(owner string) {
	h.calls = 0
	id, err := h.svc.BeginInvocation(h.sessionID, owner)
	if err != nil {
		slog.Warn("Failed to record invocation start", "session", h.sessionID, "error", err)
		h.rowID = 0
		return
	}
	h.rowID = id
}

func (h *InvocationHook) OnModelCallCompleted(succeeded bool) error {
	if succeeded {
		h.calls++
	}
	return nil
}

func (h *InvocationHook) OnToolCallStart(name string, args map[string]any) {}

func (h *InvocationHook) OnToolCallCompleted(name string, result string, err error) {}

func (h *InvocationHook) OnInvocationEnd() {
	if h.rowID == 0 {
		return
	}
	if err := h.svc.EndInvocation(h.rowID, h.calls); err != nil {
		slog.Warn("Failed to record invocation end", "session", h.sessionID, "error", err)
	}
}
