package logging

// Standard field names for structured logging.
const (
	FieldSession    = "session_id"
	FieldTopology   = "topology"
	FieldComponent  = "component"
	FieldExperiment = "experiment"
	FieldCount      = "count"
	FieldTotal      = "total"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldStore      = "store"
)
