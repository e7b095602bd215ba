package ir

// Version constants stamped into stored results.
const (
	// IRVersion is the canonical design document schema version.
	IRVersion = "1"

	// ToolVersion is the blockgen release.
	ToolVersion = "0.1.0"
)
