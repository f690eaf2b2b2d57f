package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain. Orchestrators
// attach idea/file fields to the context so every stage event carries them.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldIdeaID is the idea being processed
	FieldIdeaID = "idea_id"

	// FieldUserID is the owning user's ID
	FieldUserID = "user_id"

	// FieldFileName is the normalized name of the file being processed
	FieldFileName = "file_name"

	// FieldStage is the pipeline stage (resolve, extract, chunk, embed, store, upload)
	FieldStage = "stage"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldAttempt is the current attempt number of a retried operation
	FieldAttempt = "attempt"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldOutcome is the operation outcome (completed, failed, skipped)
	FieldOutcome = "outcome"

	// FieldStatus is the HTTP response status code
	FieldStatus = "status"

	// FieldSize is the HTTP response body size in bytes
	FieldSize = "size"
)
