// Package approval provides the human-approval gate placed in front of
// side-effecting operations.
package approval

import (
	"context"
	"fmt"
	"log/slog"
)

// DecisionKind enumerates the three possible resolutions of an approval
// request. Cancel and Revise are distinct outcomes: an empty Revise feedback
// is still a revise, never a cancel.
type DecisionKind int

const (
	// Proceed allows the operation to execute.
	Proceed DecisionKind = iota
	// Revise blocks the operation and asks the model to adjust and retry.
	Revise
	// Cancel blocks the operation and withdraws the request.
	Cancel
)

// Decision is the resolution of one approval request.
type Decision struct {
	Kind     DecisionKind
	Feedback string // used by Revise; ignored otherwise
}

// DecisionFunc resolves an approval request for a gated operation. The
// default implementation blocks on console input; the invocation thread is
// suspended, not busy-waiting, until a decision arrives.
type DecisionFunc func(ctx context.Context, operation string, args map[string]any) (Decision, error)

// Outcome is the gate's verdict on one operation attempt.
type Outcome struct {
	Allow bool
	// Narrative is delivered to the model as the operation result when the
	// attempt is denied. It is never empty for a denial.
	Narrative string
	// Withdrawn marks a denial that withdraws the whole request, as opposed
	// to asking for an adjusted retry.
	Withdrawn bool
}

// WithdrawalNarrative is the fixed result text for a cancelled operation.
// The model is expected to acknowledge it in natural language and offer to
// start over.
const WithdrawalNarrative = "The user has withdrawn this request. " +
	"Acknowledge the cancellation and ask whether there is anything else to file. " +
	"If not, close the conversation politely."

// Recorder receives a record of every decision the gate resolves.
// Implementations must not fail the gate; recording is best-effort.
type Recorder interface {
	RecordApproval(sessionID, operation string, args map[string]any, status string)
}

// Gate intercepts a configured watch-list of operations and requires an
// external decision before they may run. Operations off the watch-list pass
// through without invoking the decision callback.
type Gate struct {
	watch     map[string]struct{}
	decide    DecisionFunc
	recorder  Recorder
	sessionID string
}

// NewGate creates a gate watching the named operations.
func NewGate(operations []string, decide DecisionFunc) *Gate {
	watch := make(map[string]struct{}, len(operations))
	for _, op := range operations {
		watch[op] = struct{}{}
	}
	return &Gate{watch: watch, decide: decide}
}

// WithRecorder attaches a best-effort decision recorder bound to sessionID.
func (g *Gate) WithRecorder(r Recorder, sessionID string) *Gate {
	g.recorder = r
	g.sessionID = sessionID
	return g
}

// Watched reports whether an operation is on the gate's watch-list.
func (g *Gate) Watched(operation string) bool {
	_, ok := g.watch[operation]
	return ok
}

// BeforeOperation resolves one operation attempt. A denial is final for this
// attempt: the gate never retries on its own, and whether to re-attempt
// belongs to the reasoning loop.
func (g *Gate) BeforeOperation(ctx context.Context, operation string, args map[string]any) Outcome {
	if !g.Watched(operation) {
		return Outcome{Allow: true}
	}

	decision, err := g.decide(ctx, operation, args)
	if err != nil {
		// Fail closed: an unresolvable approval withdraws the attempt.
		slog.Warn("Approval decision failed", "operation", operation, "error", err)
		g.record(operation, args, "error")
		return Outcome{Narrative: WithdrawalNarrative, Withdrawn: true}
	}

	switch decision.Kind {
	case Proceed:
		g.record(operation, args, "approved")
		return Outcome{Allow: true}
	case Cancel:
		g.record(operation, args, "cancelled")
		return Outcome{Narrative: WithdrawalNarrative, Withdrawn: true}
	default:
		g.record(operation, args, "revise")
		return Outcome{Narrative: reviseNarrative(decision.Feedback)}
	}
}

func reviseNarrative(feedback string) string {
	if feedback == "" {
		return "The user asked for changes before filing. " +
			"Confirm the details with the user, apply the corrections, and retry."
	}
	return fmt.Sprintf("The user requested changes: %s\n\n"+
		"Apply the corrections, confirm the updated details with the user, and retry.", feedback)
}

func (g *Gate) record(operation string, args map[string]any, status string) {
	if g.recorder == nil {
		return
	}
	g.recorder.RecordApproval(g.sessionID, operation, args, status)
}
