package orchestrator

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/logger"
	"github.com/rollbackagent/engine/pkg/modelclient"
	"github.com/rollbackagent/engine/pkg/observability"
)

// invokeTool executes one model-requested tool call and records it into
// the Track (spec.md §4.4.1). Forward errors are recorded as failed
// invocations rather than aborting the turn: a turn that calls three
// tools and the second one fails still records all three attempts, and
// the failed one is skipped (not reversed) at rollback time.
func (o *Orchestrator) invokeTool(ctx context.Context, call modelclient.ToolCall) {
	spec, ok := o.registry.Get(call.Name)
	if !ok {
		o.recordUnknownTool(ctx, call)
		return
	}

	ctx, span := observability.GetTracer("orchestrator").Start(ctx, observability.SpanToolForward)
	start := time.Now()
	result, err := spec.Forward(ctx, call.Args)
	success := err == nil
	errMsg := ""
	outcome := "ok"
	if err != nil {
		errMsg = err.Error()
		outcome = "error"
		logger.GetLogger().Error("orchestrator: tool forward failed", "tool", call.Name, "error", err)
	}
	o.metrics.ObserveTool(call.Name, outcome, time.Since(start))
	span.End()

	if _, recErr := o.track.Record(ctx, call.Name, call.Args, result, success, errMsg); recErr != nil {
		logger.GetLogger().Error("orchestrator: failed to record tool invocation", "tool", call.Name, "error", recErr)
	}
}

// recordUnknownTool records a call to a name the registry doesn't
// recognize as a failed invocation, so it is visible in the Track and
// safely skipped on rollback, rather than silently dropped.
func (o *Orchestrator) recordUnknownTool(ctx context.Context, call modelclient.ToolCall) {
	if _, err := o.track.Record(ctx, call.Name, call.Args, nil, false, "unknown tool"); err != nil {
		logger.GetLogger().Error("orchestrator: failed to record unknown tool invocation", "tool", call.Name, "error", err)
	}
}
