package ir

// Version constants for the action record and engine.
const (
	// RecordVersion is the version of the action/trace record layout.
	RecordVersion = "1"

	// EngineVersion is the signalstore engine version.
	EngineVersion = "0.1.0"
)
