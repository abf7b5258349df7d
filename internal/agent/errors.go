package agent

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable marks a model call that failed after the provider's
// bounded retries. No further useful work can happen in the invocation.
var ErrModelUnavailable = errors.New("model service unavailable")

// ErrSessionMismatch marks an invocation carrying a different session ID
// than the one the worker is bound to. This is a contract violation by the
// caller, not a retryable condition.
var ErrSessionMismatch = errors.New("invocation session does not match bound session")

// LoopLimitError is raised when an invocation exhausts its iteration budget.
// It is fatal to the invocation, not to the session: the conversation
// history up to this point is preserved and the next turn starts fresh.
type LoopLimitError struct {
	Owner      string
	Iterations int
	Max        int
}

func (e *LoopLimitError) Error() string {
	return fmt.Sprintf("%s: loop limit reached (%d/%d)", e.Owner, e.Iterations, e.Max)
}
