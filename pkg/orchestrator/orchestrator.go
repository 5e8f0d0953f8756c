// Package orchestrator implements spec.md §4.4's Agent Orchestrator: the
// glue around the external language-model client that intercepts tool
// calls, drives auto-checkpointing, and hands off restoration.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rollbackagent/engine/pkg/engineconfig"
	"github.com/rollbackagent/engine/pkg/logger"
	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/modelclient"
	"github.com/rollbackagent/engine/pkg/observability"
	"github.com/rollbackagent/engine/pkg/sessionmgr"
	"github.com/rollbackagent/engine/pkg/tooltrack"
	"golang.org/x/sync/semaphore"
)

// Orchestrator owns exactly one internal session for its lifetime. On
// rollback, the caller constructs a new Orchestrator and retires this one
// — no shared mutable state between instances (spec.md §9, "Dynamic
// per-session collaborators").
type Orchestrator struct {
	store    model.Store
	sessions *sessionmgr.Manager
	registry *tooltrack.Registry
	track    *tooltrack.Track
	client   modelclient.Client
	cfg      *engineconfig.Config

	externalSessionID int64
	internalSessionID int64
	modelSessionID    string

	restoredHistory []model.Turn
	restoredPending bool

	events  chan Event
	metrics *observability.Metrics

	// sem enforces spec.md §5's "at most one run() in flight for a given
	// internal session" — non-blocking, since a concurrent attempt must
	// fail busy rather than queue.
	sem *semaphore.Weighted
}

// Options configures New.
type Options struct {
	Store             model.Store
	Sessions          *sessionmgr.Manager
	Registry          *tooltrack.Registry
	Client            modelclient.Client
	Config            *engineconfig.Config
	ExternalSessionID int64
	InternalSession   *model.InternalSession
	// RestoredHistory, if non-nil, is injected as prior context on the
	// first Run call after construction from a checkpoint (spec.md §4.4.2).
	RestoredHistory []model.Turn
	Events          chan Event
	// Metrics is optional; a nil Metrics makes every Observe* call a no-op.
	Metrics *observability.Metrics
}

// New constructs an orchestrator bound to opts.InternalSession. Callers
// compose the tool set ahead of time (caller-provided tools ∪ built-in
// checkpoint tools) by registering all of them on opts.Registry before
// calling New.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:             opts.Store,
		sessions:          opts.Sessions,
		registry:          opts.Registry,
		client:            opts.Client,
		cfg:               opts.Config,
		externalSessionID: opts.ExternalSessionID,
		internalSessionID: opts.InternalSession.ID,
		modelSessionID:    opts.InternalSession.ModelSessionID,
		events:            opts.Events,
		metrics:           opts.Metrics,
		sem:               semaphore.NewWeighted(1),
	}
	o.track = tooltrack.NewTrack(opts.Registry, opts.Store.Track(), o.internalSessionID)
	if opts.RestoredHistory != nil {
		o.restoredHistory = opts.RestoredHistory
		o.restoredPending = true
	}
	return o
}

func (o *Orchestrator) InternalSessionID() int64 { return o.internalSessionID }

func (o *Orchestrator) emit(e Event) {
	if o.events == nil {
		return
	}
	select {
	case o.events <- e:
	default:
		logger.GetLogger().Warn("orchestrator: dropped event, channel full", "kind", e.Kind)
	}
}

// Run executes one user turn per spec.md §4.4's seven-step contract.
func (o *Orchestrator) Run(ctx context.Context, userUtterance string) (err error) {
	if !o.sem.TryAcquire(1) {
		return model.ErrBusy
	}
	defer o.sem.Release(1)

	ctx, span := observability.GetTracer("orchestrator").Start(ctx, observability.SpanOrchestratorRun)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		o.metrics.ObserveTurn(outcome, time.Since(start))
		span.End()
	}()

	// Step 1: append the user's utterance to history.
	if err := o.sessions.AppendTurn(ctx, o.internalSessionID, model.RoleUser, userUtterance); err != nil {
		return fmt.Errorf("orchestrator: append user turn: %w", err)
	}

	// Step 6 bookkeeping: the Track length right now is "before this
	// turn's tools fired" — captured before the model call, since no tool
	// can execute before the model requests it.
	trackLenBeforeTurn, err := o.track.Len(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: read track length: %w", err)
	}

	// Step 2: inject restored history exactly once.
	var injectedHistory []model.Turn
	if o.restoredPending {
		injectedHistory = boundHistory(o.restoredHistory, o.cfg.HistoryRunsInjected)
		o.restoredPending = false
	}

	tools := o.toolDescriptors()

	// Step 3: invoke the model client; it may issue zero or more tool calls.
	resp, err := o.client.Run(ctx, o.modelSessionID, userUtterance, injectedHistory, tools)
	if err != nil {
		return fmt.Errorf("orchestrator: model call: %w", err)
	}

	toolWasCalled := false
	lastToolName := ""
	for _, call := range resp.ToolCalls {
		toolWasCalled = true
		lastToolName = call.Name
		o.invokeTool(ctx, call)
	}

	// Step 4: append the textual response.
	if err := o.sessions.AppendTurn(ctx, o.internalSessionID, model.RoleAssistant, resp.Text); err != nil {
		return fmt.Errorf("orchestrator: append assistant turn: %w", err)
	}

	// Step 5 (persistence) happens as part of AppendTurn/invokeTool above,
	// each of which writes through to the store immediately.

	// Step 6: auto-checkpoint, unless the last tool called this turn was
	// itself a checkpoint tool.
	if o.cfg.AutoCheckpoint && toolWasCalled && !tooltrack.ReservedCheckpointTools[lastToolName] {
		cp, err := o.sessions.Snapshot(ctx, o.internalSessionID, "After "+lastToolName, true, trackLenBeforeTurn)
		if err != nil {
			// Auto-checkpoint failures are logged but do not fail the
			// enclosing run (spec.md §7).
			logger.GetLogger().Error("orchestrator: auto-checkpoint failed", "error", err)
		} else {
			o.metrics.ObserveCheckpoint(true)
			o.emit(Event{Kind: EventCheckpointCreated, CheckpointID: cp.ID, Auto: true})
		}
	}

	// Step 7: surface a rollback request without performing it.
	sess, err := o.store.InternalSessions().GetByID(ctx, o.internalSessionID)
	if err != nil {
		return fmt.Errorf("orchestrator: reload session: %w", err)
	}
	if requested, _ := sess.State["rollback_requested"].(bool); requested {
		targetID, _ := toInt64(sess.State["rollback_checkpoint_id"])
		o.emit(Event{Kind: EventRollbackRequested, TargetCheckpointID: targetID})
	}

	return nil
}

func boundHistory(history []model.Turn, maxTurns int) []model.Turn {
	if maxTurns <= 0 || len(history) <= maxTurns {
		return history
	}
	return history[len(history)-maxTurns:]
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (o *Orchestrator) toolDescriptors() []modelclient.ToolDescriptor {
	names := o.registry.Names()
	out := make([]modelclient.ToolDescriptor, 0, len(names))
	for _, name := range names {
		spec, ok := o.registry.Get(name)
		if !ok {
			continue
		}
		out = append(out, modelclient.ToolDescriptor{
			Name:        spec.Name,
			Description: spec.Description,
			Schema:      spec.Schema,
		})
	}
	return out
}
