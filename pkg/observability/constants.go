package observability

const (
	AttrServiceName       = "service.name"
	AttrExternalSessionID = "external_session.id"
	AttrInternalSessionID = "internal_session.id"
	AttrCheckpointID      = "checkpoint.id"
	AttrToolName          = "tool.name"
	AttrErrorType         = "error.type"

	SpanOrchestratorRun  = "orchestrator.run"
	SpanToolForward      = "orchestrator.tool_forward"
	SpanToolReverse      = "rollback.tool_reverse"
	SpanCheckpointCreate = "sessionmgr.snapshot"
	SpanRollback         = "rollback.rollback"

	DefaultServiceName = "rollback-engine"
)
