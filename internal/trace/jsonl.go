package trace

import (
	"encoding/json"
	"io"
)

type jsonEvent struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id,omitempty"`
	Step        int64  `json:"step,omitempty"`
	State       int    `json:"state"`
	Position    int64  `json:"position"`
	Bit         int    `json:"bit"`
	Instruction string `json:"instruction,omitempty"`
	Halt        bool   `json:"halt,omitempty"`
	Steps       int64  `json:"steps,omitempty"`
}

// JSONLines writes one JSON object per event.
type JSONLines struct {
	enc   *json.Encoder
	runID string
}

// NewJSONLines returns a JSONLines recorder writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Begin(runID string) error {
	j.runID = runID
	return j.enc.Encode(jsonEvent{Type: "begin", RunID: runID})
}

func (j *JSONLines) Step(r Record) error {
	return j.enc.Encode(jsonEvent{
		Type:        "step",
		RunID:       j.runID,
		Step:        r.Step,
		State:       int(r.State),
		Position:    r.Position,
		Bit:         int(r.Bit),
		Instruction: r.Instruction(),
		Halt:        r.Op.Halt,
	})
}

func (j *JSONLines) End(s Summary) error {
	return j.enc.Encode(jsonEvent{
		Type:     "halt",
		RunID:    s.RunID,
		State:    int(s.State),
		Position: s.Position,
		Bit:      int(s.Bit),
		Steps:    s.Steps,
	})
}
