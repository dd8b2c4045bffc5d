// Package trace receives the per-step execution records of a run.
//
// The engine reports to a Recorder and never decides whether or where the
// trace is materialized. The CLI picks a Table, JSONLines or Discard
// recorder from its flags; tests use Memory.
package trace

import (
	"errors"

	"github.com/roach88/tape/internal/machine"
)

// Record describes one executed transition, captured before the write.
type Record struct {
	Step     int64
	State    machine.State
	Position int64
	Bit      machine.Bit
	Op       machine.Operation
}

// Instruction renders the selected operation as "S,B->S2,B2,D[STOP]".
func (r Record) Instruction() string {
	return machine.Format(machine.Key{State: r.State, Bit: r.Bit}, r.Op)
}

// Summary describes how a run ended.
type Summary struct {
	RunID    string
	State    machine.State
	Position int64
	Bit      machine.Bit
	Steps    int64
}

// Recorder receives the trace of a run.
type Recorder interface {
	Begin(runID string) error
	Step(r Record) error
	End(s Summary) error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Begin(string) error { return nil }
func (Discard) Step(Record) error  { return nil }
func (Discard) End(Summary) error  { return nil }

// Multi fans records out to several recorders in order.
type Multi []Recorder

func (m Multi) Begin(runID string) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Begin(runID))
	}
	return errors.Join(errs...)
}

func (m Multi) Step(rec Record) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Step(rec))
	}
	return errors.Join(errs...)
}

func (m Multi) End(s Summary) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.End(s))
	}
	return errors.Join(errs...)
}

// Memory keeps records in memory.
type Memory struct {
	RunID   string
	Records []Record
	Summary *Summary
}

func (m *Memory) Begin(runID string) error {
	m.RunID = runID
	return nil
}

func (m *Memory) Step(r Record) error {
	m.Records = append(m.Records, r)
	return nil
}

func (m *Memory) End(s Summary) error {
	m.Summary = &s
	return nil
}
