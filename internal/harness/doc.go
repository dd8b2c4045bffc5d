// Package harness runs machine scenarios described in YAML and checks
// their outcome.
//
// # Scenario Format
//
//	name: scenario_a
//	description: "Writes a one and halts on the next one"
//	instructions: |
//	  STATES: 2
//	  0,0->1,1,R
//	  0,1->0,1,R
//	  1,0->1,0,R
//	  1,1->1,1,R STOP
//	tape: "01000000"
//	buffer_size: 8
//	max_steps: 1000
//	run_id: scenario-a
//	expect:
//	  halted: true
//	  state: 1
//	  position: 1
//	  bit: 1
//	  steps: 5
//	  tape: "01100000"
//
// The transition table comes from exactly one of instructions (inline) or
// instructions_file (relative to the scenario file). The tape comes from
// tape (inline, may be empty) or tape_file; either way the run works on a
// private copy, so scenario inputs are never modified.
//
// A scenario that expects a load failure names the error code instead:
//
//	expect:
//	  error: BAD_HEADER
//
// Codes are the machine.ParseErrorCode and tape.ErrorCode values.
//
// # Deterministic Testing
//
// Every run uses a fixed run id (run_id, or "test-run-default") so the
// table trace is byte-identical across runs and can be compared against a
// golden file with RunWithGolden or by the "tape test" command.
//
// max_steps bounds the run (default DefaultMaxSteps). A machine that is
// still running when the budget is spent is reported as not halted, which
// lets scenarios pin down machines that never stop.
package harness
