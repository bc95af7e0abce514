package ir

// Version constants stamped on every invocation record.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the msglog runtime version.
	EngineVersion = "0.1.0"
)
