package testutil

// FixedRunID generates the same run id every time.
//
// The same scenario with the same FixedRunID produces byte-identical traces.
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// never runs out, which suits harness scenarios that may be re-run.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a new fixed run id generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
//
// Implements engine.RunIDGenerator interface.
func (g *FixedRunID) Generate() string {
	return g.id
}
