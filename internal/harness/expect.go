package harness

import "fmt"

// checkExpectations compares the run outcome with the scenario's
// expectations and records every mismatch on r.
func checkExpectations(s *Scenario, r *Result) {
	e := s.Expect

	switch {
	case e.Error != "" && r.Err == nil:
		r.AddError(fmt.Sprintf("error: expected %s, got none", e.Error))
	case e.Error != "" && r.ErrorCode != e.Error:
		r.AddError(fmt.Sprintf("error: expected %s, got %s (%v)", e.Error, r.ErrorCode, r.Err))
	case e.Error == "" && r.Err != nil:
		r.AddError(fmt.Sprintf("unexpected error: %v", r.Err))
	}

	if e.Warnings != nil && len(r.Warnings) != *e.Warnings {
		r.AddError(fmt.Sprintf("warnings: expected %d, got %d %v", *e.Warnings, len(r.Warnings), r.Warnings))
	}

	f := r.Final
	if f == nil {
		return
	}

	if want := s.wantHalted(); f.Halted != want {
		if want {
			r.AddError(fmt.Sprintf("halted: machine still running after %d steps", f.Steps))
		} else {
			r.AddError(fmt.Sprintf("halted: machine stopped after %d steps, expected it to keep running", f.Steps))
		}
	}

	expectInt("state", e.State, f.State, r)
	expectInt("position", e.Position, f.Position, r)
	expectInt("bit", e.Bit, f.Bit, r)
	expectInt("steps", e.Steps, f.Steps, r)

	if e.Tape != nil && r.Tape != *e.Tape {
		r.AddError(fmt.Sprintf("tape: expected %q, got %q", *e.Tape, r.Tape))
	}
}

func expectInt[T int | int64](field string, want *T, got T, r *Result) {
	if want != nil && *want != got {
		r.AddError(fmt.Sprintf("%s: expected %d, got %d", field, *want, got))
	}
}
