package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldRunID      = "run_id"
	FieldSource     = "source"
	FieldRows       = "rows"
	FieldDiscarded  = "discarded"
	FieldBuckets    = "buckets"
	FieldBusinesses = "businesses"
	FieldFindings   = "findings"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentPipeline = "pipeline"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSource   = "source"
	ComponentReport   = "report"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpNormalize = "normalize"
	OpAggregate = "aggregate"
	OpSegment   = "segment"
	OpSynthesis = "synthesize"
	OpStore     = "store"
	OpRender    = "render"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
