// Package router implements the filing desk's delegation layer: it owns the
// per-session thread registry, classifies each user turn, and forwards it to
// exactly one specialized worker.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/keihibot/keihibot/internal/agent"
	"github.com/keihibot/keihibot/internal/approval"
	"github.com/keihibot/keihibot/internal/config"
	"github.com/keihibot/keihibot/internal/ledger"
	"github.com/keihibot/keihibot/internal/prompts"
	"github.com/keihibot/keihibot/internal/provider"
	"github.com/keihibot/keihibot/internal/session"
	"github.com/keihibot/keihibot/internal/tools"
)

// ErrUnknownSession is returned for a dispatch against a session the desk
// does not hold, including one that has been reset.
var ErrUnknownSession = errors.New("unknown session")

// ClarificationReply is the desk's answer when a turn matches no worker.
const ClarificationReply = "I can help with two kinds of filings: travel expenses " +
	"(train, bus, taxi or airplane trips) and receipt expenses (purchases backed by " +
	"a receipt). Which one would you like to file?"

// loopLimitReply is the user-facing translation of an exhausted reasoning
// budget. The conversation survives; only the invocation ended.
const loopLimitReply = "This request needed more processing steps than one turn allows. " +
	"Your conversation so far is saved. Please break the request into smaller parts, " +
	"for example one trip segment or one receipt at a time."

// Thread is one conversational session: its identity context, its lazily
// created workers, and the worker the conversation is currently with.
type Thread struct {
	inv       agent.InvocationContext
	workers   map[agent.WorkerKind]*agent.Worker
	active    agent.WorkerKind
	hasActive bool
}

// Context returns the thread's invocation context.
func (t *Thread) Context() agent.InvocationContext { return t.inv }

// Desk is the delegation router. It holds an explicit registry of threads
// keyed by session id; there is no process-level current session. Dispatches
// for one session are strictly sequential; the desk serializes them.
type Desk struct {
	cfg      *config.Config
	provider provider.LLMProvider
	sessions *session.Manager
	ledger   *ledger.Service
	fares    *tools.FareTable
	decide   approval.DecisionFunc

	mu      sync.Mutex
	threads map[string]*Thread
}

// DeskOptions wires the desk's collaborators. Ledger is optional; every
// other field is required.
type DeskOptions struct {
	Config   *config.Config
	Provider provider.LLMProvider
	Sessions *session.Manager
	Ledger   *ledger.Service
	Fares    *tools.FareTable
	Decide   approval.DecisionFunc
}

// NewDesk creates an empty delegation desk.
func NewDesk(opts DeskOptions) *Desk {
	return &Desk{
		cfg:      opts.Config,
		provider: opts.Provider,
		sessions: opts.Sessions,
		ledger:   opts.Ledger,
		fares:    opts.Fares,
		decide:   opts.Decide,
		threads:  make(map[string]*Thread),
	}
}

// Open establishes a new session for an applicant and returns its id. The
// identity is validated here once; workers receive only the validated
// context.
func (d *Desk) Open(subjectName, referenceDate string) (string, error) {
	inv := agent.InvocationContext{
		SubjectName:   subjectName,
		ReferenceDate: referenceDate,
	}
	if err := inv.Validate(); err != nil {
		return "", err
	}
	inv.SessionID = uuid.NewString()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.threads[inv.SessionID] = &Thread{
		inv:     inv,
		workers: make(map[agent.WorkerKind]*agent.Worker),
	}
	return inv.SessionID, nil
}

// Thread returns the thread for a session id, if the desk holds it.
func (d *Desk) Thread(sessionID string) (*Thread, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.threads[sessionID]
	return t, ok
}

// Reset discards a session entirely: its thread, its workers, and the
// cached conversation state. After a reset the session id is unknown to the
// desk and a fresh Open is required before any further turn.
func (d *Desk) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.threads, sessionID)
	d.sessions.Forget(sessionID)
}

// Dispatch routes one user turn to a worker and returns the user-facing
// reply. It is the single place that translates worker conditions into
// user-facing text. A returned error is fatal to the process; everything
// recoverable comes back as reply text.
func (d *Desk) Dispatch(ctx context.Context, sessionID, turn string) (string, error) {
	d.mu.Lock()
	thread, ok := d.threads[sessionID]
	d.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	kind, ok := d.selectWorker(thread, turn)
	if !ok {
		return ClarificationReply, nil
	}

	worker := d.workerFor(thread, kind)
	res, err := worker.Handle(ctx, thread.inv, turn)
	if err != nil {
		var limit *agent.LoopLimitError
		if errors.As(err, &limit) {
			return loopLimitReply, nil
		}
		return "", err
	}

	thread.active = kind
	thread.hasActive = true

	// A cancellation is already phrased by the worker; forward it verbatim
	// with no success acknowledgment appended.
	return res.Text, nil
}

// selectWorker classifies the turn, keeping the conversation with its
// current worker when the turn itself carries no routing signal. Mid-filing
// answers like "yes" or a bare date stay with the worker asking for them.
func (d *Desk) selectWorker(thread *Thread, turn string) (agent.WorkerKind, bool) {
	switch Classify(turn) {
	case RouteTravel:
		return agent.KindTravel, true
	case RouteReceipt:
		return agent.KindReceipt, true
	default:
		if thread.hasActive {
			return thread.active, true
		}
		return "", false
	}
}

func (d *Desk) workerFor(thread *Thread, kind agent.WorkerKind) *agent.Worker {
	if w, ok := thread.workers[kind]; ok {
		return w
	}
	w := d.newWorker(thread, kind)
	thread.workers[kind] = w
	return w
}

// newWorker builds one specialized worker with its own gate and loop budget.
// Nothing here is shared across kinds except the provider, the session
// store, and the propagated identity.
func (d *Desk) newWorker(thread *Thread, kind agent.WorkerKind) *agent.Worker {
	rules := prompts.Rules{
		AmountCeiling:     d.cfg.Rules.AmountCeiling,
		ApprovalThreshold: d.cfg.Rules.ApprovalThreshold,
		WindowDays:        d.cfg.Rules.WindowDays,
	}

	var (
		displayName string
		watchedOp   string
		prompt      func(inv agent.InvocationContext) string
	)
	switch kind {
	case agent.KindTravel:
		displayName = "travel desk"
		watchedOp = "travel_report_generator"
		prompt = func(inv agent.InvocationContext) string {
			return prompts.TravelSystemPrompt(inv.SubjectName, inv.ReferenceDate, rules)
		}
	default:
		displayName = "receipt desk"
		watchedOp = "receipt_report_generator"
		prompt = func(inv agent.InvocationContext) string {
			return prompts.ReceiptSystemPrompt(inv.SubjectName, inv.ReferenceDate, rules)
		}
	}

	gate := approval.NewGate([]string{watchedOp}, d.decide)
	var extra []agent.Hooks
	if d.ledger != nil {
		gate.WithRecorder(d.ledger, thread.inv.SessionID)
		extra = append(extra, ledger.NewInvocationHook(d.ledger, thread.inv.SessionID))
	}

	w := agent.NewWorker(agent.WorkerOptions{
		Kind:          kind,
		DisplayName:   displayName,
		Provider:      d.provider,
		Gate:          gate,
		Sessions:      d.sessions,
		SystemPrompt:  prompt,
		Model:         d.cfg.Model.Name,
		MaxTokens:     d.cfg.Model.MaxTokens,
		Temperature:   d.cfg.Model.Temperature,
		MaxIterations: d.cfg.Model.WorkerMaxIterations,
		HistoryWindow: d.cfg.Model.HistoryWindowMessages,
		ExtraHooks:    extra,
	})

	reportCfg := tools.ReportConfig{
		OutputDir:     d.cfg.Paths.ReportsDir,
		AmountCeiling: d.cfg.Rules.AmountCeiling,
		Subject:       w.CurrentSubject,
	}
	switch kind {
	case agent.KindTravel:
		w.Registry().Register(tools.NewFareTool(d.fares))
		w.Registry().Register(tools.NewTravelReportTool(reportCfg))
	default:
		w.Registry().Register(tools.NewReceiptReportTool(reportCfg))
	}
	return w
}
