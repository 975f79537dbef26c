package events

import "time"

// SchemaDiagnostic is emitted for every non-fatal schema build problem.
type SchemaDiagnostic struct {
	Code    string
	Type    string
	Field   string
	Message string
}

// SchemaBuilt is emitted after a schema build finishes.
type SchemaBuilt struct {
	Types       int
	Diagnostics int
	Duration    time.Duration
	Err         error
}

// MutationPerformed is emitted after a mutation resolver ran, whether or not
// it succeeded.
type MutationPerformed struct {
	Name     string
	Input    map[string]any
	Payload  map[string]any
	Err      error
	Duration time.Duration
}

// LoaderBatch is emitted after a batched node load.
type LoaderBatch struct {
	Store    string
	Keys     int
	Found    int
	Err      error
	Duration time.Duration
}
