package rollback

import (
	"context"
	"fmt"

	"github.com/rollbackagent/engine/pkg/logger"
	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/observability"
	"github.com/rollbackagent/engine/pkg/tooltrack"
)

// Result is the outcome of a successful Rollback call.
type Result struct {
	NewInternalSession *model.InternalSession
	CopiedCheckpoints  []*model.Checkpoint
	ReverseOutcomes    []tooltrack.ReverseOutcome
}

// Service implements checkpoint rollback (spec.md §4.5). It holds no
// per-session state: a Service is shared across every rollback in the
// engine.
type Service struct {
	store    model.Store
	registry *tooltrack.Registry
	events   chan Event
	metrics  *observability.Metrics
}

func NewService(store model.Store, registry *tooltrack.Registry, events chan Event) *Service {
	return &Service{store: store, registry: registry, events: events}
}

// WithMetrics attaches optional Prometheus instrumentation and returns s
// for chaining.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) emit(e Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		logger.GetLogger().Warn("rollback: dropped event, channel full", "kind", e.Kind)
	}
}

// Rollback forks a new internal session seeded from checkpointID's
// snapshot, optionally reversing every tool invocation recorded since it,
// and marks the fork current. Store failures (unknown checkpoint, fork
// transaction failure) abort the whole operation before anything is
// mutated further; individual reverse-handler failures are reported in
// the returned outcomes but never abort the fork (spec.md §4.5, §7).
func (s *Service) Rollback(ctx context.Context, externalSessionID, checkpointID int64, reverseTools bool) (result *Result, err error) {
	ctx, span := observability.GetTracer("rollback").Start(ctx, observability.SpanRollback)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ObserveRollback(outcome)
		span.End()
	}()

	cp, err := s.store.Checkpoints().GetByID(ctx, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("rollback: load checkpoint %d: %w", checkpointID, err)
	}

	source, err := s.store.InternalSessions().GetByID(ctx, cp.InternalSessionID)
	if err != nil {
		return nil, fmt.Errorf("rollback: load source session %d: %w", cp.InternalSessionID, err)
	}
	if source.ExternalSessionID != externalSessionID {
		return nil, model.ErrNotFound
	}

	var outcomes []tooltrack.ReverseOutcome
	if reverseTools {
		track := tooltrack.NewTrack(s.registry, s.store.Track(), source.ID)
		outcomes, err = track.RollbackFrom(ctx, cp.TrackPosition())
		if err != nil {
			return nil, fmt.Errorf("rollback: reverse tools: %w", err)
		}
		for _, o := range outcomes {
			ev := Event{Kind: EventToolReversed, ToolName: o.Record.ToolName, Skipped: o.Skipped, Success: o.Success}
			if o.Error != nil {
				ev.Error = o.Error.Error()
			}
			s.emit(ev)
		}
	}

	newSession, copied, err := s.store.ForkInternalSession(
		ctx, externalSessionID, source,
		model.DeepCopyState(cp.State), model.DeepCopyHistory(cp.History), *cp,
	)
	if err != nil {
		return nil, fmt.Errorf("rollback: fork session: %w", err)
	}

	s.emit(Event{Kind: EventForked, NewInternalSessionID: newSession.ID, CopiedCheckpointCount: len(copied)})

	return &Result{NewInternalSession: newSession, CopiedCheckpoints: copied, ReverseOutcomes: outcomes}, nil
}
